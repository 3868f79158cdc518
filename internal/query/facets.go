package query

import (
	"sort"

	"taskbridge/internal/model"
)

// FacetSet lists the distinct tags and projects of a task collection.
type FacetSet struct {
	Tags     []string `json:"tags"`
	Projects []string `json:"projects"`
}

// Facets returns the sorted unique tags and projects of tasks. The
// archived sentinel tag is not offered as a facet.
func Facets(tasks []model.ViewTask) FacetSet {
	tags := map[string]bool{}
	projects := map[string]bool{}
	for _, t := range tasks {
		for _, tag := range t.Tags {
			if tag != "" && tag != model.ArchivedTag {
				tags[tag] = true
			}
		}
		if t.Project != "" {
			projects[t.Project] = true
		}
	}
	return FacetSet{Tags: sortedKeys(tags), Projects: sortedKeys(projects)}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
