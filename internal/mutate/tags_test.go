package mutate

import (
	"reflect"
	"testing"
)

func TestDiffTags(t *testing.T) {
	cases := []struct {
		name       string
		current    []string
		desired    []string
		wantRemove []string
		wantAdd    []string
	}{
		{"swap", []string{"Personal", "Work"}, []string{"Work", "Health"}, []string{"Personal"}, []string{"Health"}},
		{"same", []string{"a", "b"}, []string{"b", "a"}, []string{}, []string{}},
		{"empty to some", nil, []string{"x", "x", " y "}, []string{}, []string{"x", "y"}},
		{"some to empty", []string{"x", "y"}, []string{}, []string{"x", "y"}, []string{}},
		{"blank ignored", []string{"a", ""}, []string{"a", "  "}, []string{}, []string{}},
	}
	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			d := DiffTags(tt.current, tt.desired)
			if !reflect.DeepEqual(d.Remove, tt.wantRemove) {
				t.Fatalf("remove = %#v, want %#v", d.Remove, tt.wantRemove)
			}
			if !reflect.DeepEqual(d.Add, tt.wantAdd) {
				t.Fatalf("add = %#v, want %#v", d.Add, tt.wantAdd)
			}
		})
	}
}

func TestDiffTags_ApplyReachesDesired(t *testing.T) {
	sets := [][]string{nil, {"a"}, {"a", "b"}, {"b", "c", "d"}, {"d"}}
	for _, cur := range sets {
		for _, want := range sets {
			got := ApplyTagDiff(cur, DiffTags(cur, want))
			if !reflect.DeepEqual(tagSet(got), tagSet(want)) {
				t.Fatalf("apply(diff(%v,%v)) = %v", cur, want, got)
			}
			if again := DiffTags(got, want); !again.Empty() {
				t.Fatalf("diff after apply not empty: %+v", again)
			}
		}
	}
}

func TestApplyTagDiff_DoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b"}
	_ = ApplyTagDiff(in, TagDiff{Remove: []string{"a"}, Add: []string{"c"}})
	if !reflect.DeepEqual(in, []string{"a", "b"}) {
		t.Fatalf("input mutated: %v", in)
	}
}
