package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"taskbridge/internal/model"
)

type RenderOptions struct {
	// IncludeAnnotations appends every annotation after the description.
	IncludeAnnotations bool
}

// RenderTaskMarkdown renders one task as a markdown page.
func RenderTaskMarkdown(t model.ViewTask, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(t.Description))
	writeLn("")

	writeLn("## Meta")
	writeLn("")
	if t.UUID != "" {
		writeLn("- UUID: " + t.UUID)
	}
	if t.ID > 0 {
		writeLn(fmt.Sprintf("- ID: %d", t.ID))
	}
	writeLn("- State: " + string(t.State))
	writeLn("- Project: " + t.Project)
	writeLn("- Priority: " + priorityLabel(t.Priority))
	if tags := visibleTags(t.Tags); len(tags) > 0 {
		writeLn("- Tags: " + strings.Join(tags, ", "))
	}
	if t.Wait != "" {
		writeLn("- Waiting until: " + formatWait(t.Wait))
	}
	if s := formatTS(t.Entry); s != "" {
		writeLn("- Created: " + s)
	}
	if s := formatTS(t.Due); s != "" {
		writeLn("- Due: " + s)
	}
	if s := formatTS(t.End); s != "" {
		writeLn("- Completed: " + s)
	}
	if t.ArchiveDue {
		writeLn("- Archive due: true")
	}
	writeLn(fmt.Sprintf("- Urgency: %.2f", t.Urgency))

	if full := strings.TrimSpace(t.FullDescription); full != "" && full != strings.TrimSpace(t.Description) {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(full)
	}

	if opt.IncludeAnnotations && len(t.Annotations) > 0 {
		writeLn("")
		writeLn("## Notes")
		writeLn("")
		for _, a := range t.Annotations {
			head := "###"
			if s := formatTS(a.Entry); s != "" {
				head += " " + s
			} else {
				head += " Note"
			}
			writeLn(head)
			writeLn("")
			body := strings.TrimSpace(a.Description)
			if body == "" {
				body = "(empty)"
			}
			writeLn(body)
			writeLn("")
		}
	}
	return buf.String()
}

// RenderViewIndexMarkdown renders a task list as a markdown index linking to
// per-task pages under tasks/.
func RenderViewIndexMarkdown(title string, tasks []model.ViewTask) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", strings.TrimSpace(title))
	if len(tasks) == 0 {
		buf.WriteString("_No tasks._\n")
		return buf.String()
	}
	for _, t := range tasks {
		meta := []string{string(t.State), t.Project, priorityLabel(t.Priority)}
		if tags := visibleTags(t.Tags); len(tags) > 0 {
			meta = append(meta, "+"+strings.Join(tags, " +"))
		}
		fmt.Fprintf(&buf, "- [%s](tasks/%s.md) (%s)\n", escapeLinkText(t.Description), pageName(t), strings.Join(meta, ", "))
	}
	return buf.String()
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "high"
	case model.PriorityLow:
		return "low"
	default:
		return "medium"
	}
}

func visibleTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" && t != model.ArchivedTag {
			out = append(out, t)
		}
	}
	return out
}

func formatTS(ts model.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func formatWait(raw string) string {
	if ts, err := model.ParseTimestamp(raw); err == nil && !ts.IsZero() {
		return formatTS(ts)
	}
	return raw
}

func escapeLinkText(s string) string {
	r := strings.NewReplacer("[", `\[`, "]", `\]`)
	return r.Replace(strings.TrimSpace(s))
}

// pageName is the file stem for a task page: the uuid when known.
func pageName(t model.ViewTask) string {
	if t.UUID != "" {
		return t.UUID
	}
	return fmt.Sprintf("id-%d", t.ID)
}
