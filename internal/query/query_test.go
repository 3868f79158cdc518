package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbridge/internal/model"
)

func mustTS(t *testing.T, s string) model.Timestamp {
	t.Helper()
	ts, err := model.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func sample(t *testing.T) []model.ViewTask {
	return []model.ViewTask{
		{Task: model.Task{UUID: "1", Description: "Buy milk", Project: "Home", Priority: model.PriorityLow, Tags: []string{"errand"}, Entry: mustTS(t, "20240101T000000Z"), Urgency: 1.5}, State: model.ViewPending},
		{Task: model.Task{UUID: "2", Description: "Write report", FullDescription: "Quarterly numbers for finance", Project: "Work", Priority: model.PriorityHigh, Tags: []string{"office", "deep"}, Entry: mustTS(t, "20240103T000000Z"), Urgency: 9}, State: model.ViewPending},
		{Task: model.Task{UUID: "3", Description: "Call plumber", Project: "Home", Priority: model.PriorityMedium, Tags: []string{}, Entry: mustTS(t, "20240102T000000Z"), Urgency: 4}, State: model.ViewPending},
		{Task: model.Task{UUID: "4", Description: "Review PR", Project: "Work", Priority: model.PriorityMedium, Tags: []string{"deep"}, Entry: mustTS(t, "20240104T000000Z"), Urgency: 4}, State: model.ViewPending},
	}
}

func uuids(tasks []model.ViewTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.UUID)
	}
	return out
}

func TestParse(t *testing.T) {
	q, err := Parse(url.Values{
		"q":        {"  milk "},
		"priority": {"high"},
		"tag":      {"a,b", "b", "c"},
		"xproject": {"Work"},
		"sort":     {"Priority"},
	})
	require.NoError(t, err)
	assert.Equal(t, "milk", q.Search)
	assert.Equal(t, "H", q.Priority)
	assert.Equal(t, []string{"a", "b", "c"}, q.IncludeTags)
	assert.Equal(t, []string{"Work"}, q.ExcludeProjects)
	assert.Equal(t, SortPriority, q.Sort)

	round, err := Parse(q.Values())
	require.NoError(t, err)
	assert.Equal(t, q, round)
}

func TestParse_Defaults(t *testing.T) {
	q, err := Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "all", q.Priority)
	assert.Equal(t, SortNone, q.Sort)
	assert.Len(t, q.Filter(sample(t)), 4)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(url.Values{"priority": {"urgent"}})
	var qe *InvalidQueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "priority", qe.Field)

	_, err = Parse(url.Values{"sort": {"alphabetical"}})
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "sort", qe.Field)
}

func TestFilter(t *testing.T) {
	tasks := sample(t)
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"search description", Query{Search: "MILK"}, []string{"1"}},
		{"search project", Query{Search: "work"}, []string{"2", "4"}},
		{"search full description", Query{Search: "finance"}, []string{"2"}},
		{"priority", Query{Priority: "M"}, []string{"3", "4"}},
		{"include tags", Query{IncludeTags: []string{"deep", "errand"}}, []string{"1", "2", "4"}},
		{"include projects", Query{IncludeProjects: []string{"Home"}}, []string{"1", "3"}},
		{"exclude tags", Query{ExcludeTags: []string{"deep"}}, []string{"1", "3"}},
		{"exclude projects", Query{ExcludeProjects: []string{"Home"}}, []string{"2", "4"}},
		{"combined", Query{Priority: "M", ExcludeProjects: []string{"Home"}, IncludeTags: []string{"deep"}}, []string{"4"}},
		{"no match", Query{Search: "nothing"}, []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, uuids(tc.q.Filter(tasks)))
		})
	}
}

func TestSort(t *testing.T) {
	tasks := sample(t)
	cases := []struct {
		key  SortKey
		want []string
	}{
		{SortNone, []string{"1", "2", "3", "4"}},
		{SortPriority, []string{"2", "3", "4", "1"}},
		{SortProject, []string{"1", "3", "2", "4"}},
		{SortTags, []string{"3", "4", "1", "2"}},
		{SortCreated, []string{"4", "2", "3", "1"}},
		{SortUrgency, []string{"2", "3", "4", "1"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.key), func(t *testing.T) {
			got, err := Query{Sort: tc.key}.SortTasks(tasks, model.ViewPending)
			require.NoError(t, err)
			assert.Equal(t, tc.want, uuids(got))
		})
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, uuids(tasks), "input must not be reordered")
}

func TestSort_Stable(t *testing.T) {
	tasks := make([]model.ViewTask, 0, 50)
	for i := 0; i < 50; i++ {
		p := model.PriorityMedium
		if i%3 == 0 {
			p = model.PriorityHigh
		}
		tasks = append(tasks, model.ViewTask{Task: model.Task{ID: i, Priority: p}})
	}
	got, err := Query{Sort: SortPriority}.SortTasks(tasks, model.ViewPending)
	require.NoError(t, err)
	last := map[model.Priority]int{}
	for _, tk := range got {
		if prev, ok := last[tk.Priority]; ok {
			assert.Greater(t, tk.ID, prev, "equal keys must keep input order")
		}
		last[tk.Priority] = tk.ID
	}
}

func TestSort_CompletedOnlyForTerminalViews(t *testing.T) {
	tasks := []model.ViewTask{
		{Task: model.Task{UUID: "a", End: mustTS(t, "20240101T000000Z")}, State: model.ViewCompleted},
		{Task: model.Task{UUID: "b", End: mustTS(t, "20240201T000000Z")}, State: model.ViewCompleted},
	}
	got, err := Query{Sort: SortCompleted}.SortTasks(tasks, model.ViewCompleted)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, uuids(got))

	_, err = Query{Sort: SortCompleted}.SortTasks(tasks, model.ViewPending)
	var qe *InvalidQueryError
	assert.True(t, errors.As(err, &qe))
}

func TestFacets(t *testing.T) {
	tasks := sample(t)
	tasks = append(tasks, model.ViewTask{Task: model.Task{Project: "Work", Tags: []string{model.ArchivedTag, "deep"}}})
	f := Facets(tasks)
	assert.Equal(t, []string{"deep", "errand", "office"}, f.Tags)
	assert.Equal(t, []string{"Home", "Work"}, f.Projects)
}
