// Package query filters and sorts classified tasks.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"taskbridge/internal/model"
	"taskbridge/internal/statusutil"
)

type SortKey string

const (
	SortNone      SortKey = ""
	SortPriority  SortKey = "priority"
	SortProject   SortKey = "project"
	SortTags      SortKey = "tags"
	SortCreated   SortKey = "created"
	SortCompleted SortKey = "completed"
	SortUrgency   SortKey = "urgency"
)

func SortKeys() []SortKey {
	return []SortKey{SortPriority, SortProject, SortTags, SortCreated, SortCompleted, SortUrgency}
}

type InvalidQueryError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Query is an immutable filter/sort specification. The zero value matches
// everything and keeps input order.
type Query struct {
	Search          string
	Priority        string // statusutil.PriorityFilterAll, "H", "M" or "L"
	IncludeTags     []string
	IncludeProjects []string
	ExcludeTags     []string
	ExcludeProjects []string
	Sort            SortKey
}

// Parse builds a Query from request parameters. List parameters may be repeated
// or comma-separated.
func Parse(v url.Values) (Query, error) {
	q := Query{
		Search:          strings.TrimSpace(v.Get("q")),
		IncludeTags:     list(v["tag"]),
		IncludeProjects: list(v["project"]),
		ExcludeTags:     list(v["xtag"]),
		ExcludeProjects: list(v["xproject"]),
	}
	p, err := statusutil.NormalizePriorityFilter(v.Get("priority"))
	if err != nil {
		return Query{}, &InvalidQueryError{Field: "priority", Value: v.Get("priority"), Reason: "expected all, H, M or L"}
	}
	q.Priority = p

	s := SortKey(strings.ToLower(strings.TrimSpace(v.Get("sort"))))
	if s != SortNone && !validSort(s) {
		return Query{}, &InvalidQueryError{Field: "sort", Value: string(s), Reason: "unknown sort key"}
	}
	q.Sort = s
	return q, nil
}

// Values renders q back into request parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Priority != "" && q.Priority != statusutil.PriorityFilterAll {
		v.Set("priority", q.Priority)
	}
	for _, t := range q.IncludeTags {
		v.Add("tag", t)
	}
	for _, p := range q.IncludeProjects {
		v.Add("project", p)
	}
	for _, t := range q.ExcludeTags {
		v.Add("xtag", t)
	}
	for _, p := range q.ExcludeProjects {
		v.Add("xproject", p)
	}
	if q.Sort != SortNone {
		v.Set("sort", string(q.Sort))
	}
	return v
}

func validSort(s SortKey) bool {
	for _, k := range SortKeys() {
		if k == s {
			return true
		}
	}
	return false
}

func list(raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// Matches reports whether t passes every filter of q.
func (q Query) Matches(t model.Task) bool {
	if q.Priority != "" && q.Priority != statusutil.PriorityFilterAll && string(t.Priority) != q.Priority {
		return false
	}
	if q.Search != "" {
		s := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Description), s) &&
			!strings.Contains(strings.ToLower(t.Project), s) &&
			!strings.Contains(strings.ToLower(t.FullDescription), s) {
			return false
		}
	}
	if len(q.IncludeTags) > 0 && !intersects(t.Tags, q.IncludeTags) {
		return false
	}
	if len(q.IncludeProjects) > 0 && !contains(q.IncludeProjects, t.Project) {
		return false
	}
	if len(q.ExcludeTags) > 0 && intersects(t.Tags, q.ExcludeTags) {
		return false
	}
	if len(q.ExcludeProjects) > 0 && contains(q.ExcludeProjects, t.Project) {
		return false
	}
	return true
}

// Filter returns the tasks that match q, preserving order.
func (q Query) Filter(tasks []model.ViewTask) []model.ViewTask {
	out := make([]model.ViewTask, 0, len(tasks))
	for _, t := range tasks {
		if q.Matches(t.Task) {
			out = append(out, t)
		}
	}
	return out
}

// SortTasks returns a stably sorted copy of tasks. view is the view being listed;
// sorting by completion time is only meaningful for completed and archived views.
func (q Query) SortTasks(tasks []model.ViewTask, view model.ViewState) ([]model.ViewTask, error) {
	out := append([]model.ViewTask(nil), tasks...)
	less, err := comparator(q.Sort, view)
	if err != nil {
		return nil, err
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out, nil
}

// Apply filters then sorts.
func (q Query) Apply(tasks []model.ViewTask, view model.ViewState) ([]model.ViewTask, error) {
	return q.SortTasks(q.Filter(tasks), view)
}

func comparator(key SortKey, view model.ViewState) (func(a, b model.ViewTask) bool, error) {
	switch key {
	case SortNone:
		return nil, nil
	case SortPriority:
		return func(a, b model.ViewTask) bool { return a.Priority.Rank() > b.Priority.Rank() }, nil
	case SortProject:
		return func(a, b model.ViewTask) bool { return a.Project < b.Project }, nil
	case SortTags:
		return func(a, b model.ViewTask) bool { return firstTag(a.Tags) < firstTag(b.Tags) }, nil
	case SortCreated:
		return func(a, b model.ViewTask) bool { return a.Entry.After(b.Entry.Time) }, nil
	case SortCompleted:
		if !view.Terminal() {
			return nil, &InvalidQueryError{Field: "sort", Value: string(key), Reason: "only valid for the completed and archived views"}
		}
		return func(a, b model.ViewTask) bool { return a.End.After(b.End.Time) }, nil
	case SortUrgency:
		return func(a, b model.ViewTask) bool { return a.Urgency > b.Urgency }, nil
	default:
		return nil, &InvalidQueryError{Field: "sort", Value: string(key), Reason: "unknown sort key"}
	}
}

func firstTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

func intersects(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
