package mutate

import "strings"

type TagDiff struct {
	Remove []string `json:"remove"`
	Add    []string `json:"add"`
}

func (d TagDiff) Empty() bool { return len(d.Remove) == 0 && len(d.Add) == 0 }

// DiffTags returns the removals (in current order) and additions (in desired
// order) that turn current into desired. Blank tags are ignored and duplicates
// collapse.
func DiffTags(current, desired []string) TagDiff {
	want := tagSet(desired)
	have := tagSet(current)

	d := TagDiff{Remove: []string{}, Add: []string{}}
	seen := map[string]bool{}
	for _, t := range current {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if !want[t] {
			d.Remove = append(d.Remove, t)
		}
	}
	seen = map[string]bool{}
	for _, t := range desired {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if !have[t] {
			d.Add = append(d.Add, t)
		}
	}
	return d
}

// ApplyTagDiff applies removals then additions to tags and returns a new slice.
func ApplyTagDiff(tags []string, d TagDiff) []string {
	drop := tagSet(d.Remove)
	out := make([]string, 0, len(tags)+len(d.Add))
	present := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || drop[t] || present[t] {
			continue
		}
		present[t] = true
		out = append(out, t)
	}
	for _, t := range d.Add {
		t = strings.TrimSpace(t)
		if t == "" || present[t] {
			continue
		}
		present[t] = true
		out = append(out, t)
	}
	return out
}

func tagSet(tags []string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			m[t] = true
		}
	}
	return m
}

func withoutTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.TrimSpace(t) != tag {
			out = append(out, t)
		}
	}
	return out
}
