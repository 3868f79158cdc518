package main

import (
	"reflect"
	"testing"
)

const u = "6f1c1ad0-8b8e-4d5c-9a51-0f7f1f3e2b11"

func TestRewriteDirectLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"taskbridge"},
			want: []string{"taskbridge"},
		},
		{
			name: "numeric id first token",
			in:   []string{"taskbridge", "3"},
			want: []string{"taskbridge", "tasks", "show", "3"},
		},
		{
			name: "uuid after value flag",
			in:   []string{"taskbridge", "--config", "./cfg.toml", u},
			want: []string{"taskbridge", "--config", "./cfg.toml", "tasks", "show", u},
		},
		{
			name: "prefixed uuid after equals flag",
			in:   []string{"taskbridge", "--format=table", "uuid:" + u},
			want: []string{"taskbridge", "--format=table", "tasks", "show", "uuid:" + u},
		},
		{
			name: "after bool flag",
			in:   []string{"taskbridge", "--pretty", "12"},
			want: []string{"taskbridge", "--pretty", "tasks", "show", "12"},
		},
		{
			name: "after double dash",
			in:   []string{"taskbridge", "--task-bin", "/usr/bin/task", "--", "3"},
			want: []string{"taskbridge", "--task-bin", "/usr/bin/task", "tasks", "show", "--", "3"},
		},
		{
			name: "zero is not an id",
			in:   []string{"taskbridge", "0"},
			want: []string{"taskbridge", "0"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"taskbridge", "tasks", "show", "3"},
			want: []string{"taskbridge", "tasks", "show", "3"},
		},
		{
			name: "value flag value is not mistaken for an id",
			in:   []string{"taskbridge", "--log-level", "debug", "serve"},
			want: []string{"taskbridge", "--log-level", "debug", "serve"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
