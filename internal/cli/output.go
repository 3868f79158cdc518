package cli

import (
	"fmt"
	"strings"

	"taskbridge/internal/format"
	"taskbridge/internal/journal"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/publish"
	"taskbridge/internal/tasks"
)

// The types below give command results a table and markdown form. Their JSON
// form is that of the wrapped value.

type listOut tasks.ListResult

func (l listOut) Table() format.Table { return format.TaskTable(l.Tasks) }

func (l listOut) Markdown() string {
	return publish.RenderViewIndexMarkdown(l.title(), l.Tasks)
}

func (l listOut) title() string {
	if l.View == "" {
		return "All tasks"
	}
	return strings.ToUpper(string(l.View[:1])) + string(l.View[1:]) + " tasks"
}

type taskOut model.ViewTask

func (t taskOut) Table() format.Table { return format.TaskTable([]model.ViewTask{model.ViewTask(t)}) }

func (t taskOut) Markdown() string {
	return publish.RenderTaskMarkdown(model.ViewTask(t), publish.RenderOptions{IncludeAnnotations: true})
}

func planTable(plan []mutate.Intent) format.Table {
	t := format.Table{Headers: []string{"#", "Intent"}}
	for i, in := range plan {
		t.Rows = append(t.Rows, []string{fmt.Sprint(i), in.String()})
	}
	return t
}

type mutationOut tasks.MutationResult

func (m mutationOut) Table() format.Table {
	t := format.Table{Headers: []string{"#", "Intent", "Outcome", "Error"}}
	for _, s := range m.Steps {
		t.Rows = append(t.Rows, []string{fmt.Sprint(s.Index), s.Intent.String(), string(s.Outcome), s.Error})
	}
	return t
}

func (m mutationOut) Markdown() string {
	if m.Task != nil {
		return taskOut(*m.Task).Markdown()
	}
	if !m.Changed {
		return "_Nothing to do._"
	}
	var b strings.Builder
	for _, s := range m.Steps {
		fmt.Fprintf(&b, "- %s: %s\n", s.Intent.String(), s.Outcome)
	}
	return b.String()
}

type previewOut tasks.Preview

func (p previewOut) Table() format.Table { return planTable(p.Plan) }

func (p previewOut) Markdown() string {
	if len(p.Plan) == 0 {
		return "_Nothing to do._"
	}
	var b strings.Builder
	b.WriteString("## Plan\n\n")
	for i, in := range p.Plan {
		fmt.Fprintf(&b, "%d. %s\n", i+1, in.String())
	}
	return b.String()
}

type journalOut []journal.Entry

func (j journalOut) Table() format.Table {
	t := format.Table{Headers: []string{"At", "Operation", "Task", "Intent", "Outcome", "Error"}}
	for _, e := range j {
		task := e.TaskUUID
		if task == "" {
			task = e.TaskRef
		}
		t.Rows = append(t.Rows, []string{
			e.At.UTC().Format("2006-01-02 15:04:05"),
			e.Operation,
			task,
			e.Intent.String(),
			string(e.Outcome),
			e.Error,
		})
	}
	return t
}
