package format

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"taskbridge/internal/model"
)

const (
	DefaultWidth = 100
	maxCellWidth = 48
)

type Table struct {
	Headers []string
	Rows    [][]string
}

// ColorProfile returns the color profile for out, honoring NO_COLOR and
// CLICOLOR_FORCE. Non-terminal writers get plain ASCII.
func ColorProfile(out io.Writer) termenv.Profile {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return termenv.Ascii
	}
	return termenv.NewOutput(out).EnvColorProfile()
}

// WriteTable renders t with a rounded border, truncating wide cells.
func WriteTable(w io.Writer, t Table, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(ColorProfile(w))
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	dim := r.NewStyle().Padding(0, 1).Faint(true)

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out := make([]string, len(row))
		for i, c := range row {
			out[i] = truncate(c, maxCellWidth)
		}
		rows = append(rows, out)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers(t.Headers...).
		Rows(rows...).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col == 0:
				return dim
			default:
				return cell
			}
		})
	_, err := fmt.Fprintln(w, tbl.String())
	return err
}

func truncate(s string, w int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if xansi.StringWidth(s) <= w {
		return s
	}
	return xansi.Truncate(s, w, "…")
}

// TaskTable lays out tasks one per row.
func TaskTable(tasks []model.ViewTask) Table {
	t := Table{Headers: []string{"Ref", "State", "Pri", "Project", "Description", "Tags"}}
	for _, task := range tasks {
		t.Rows = append(t.Rows, []string{
			TaskRef(task),
			string(task.State),
			string(task.Priority),
			task.Project,
			task.Description,
			strings.Join(displayTags(task.Tags), " "),
		})
	}
	return t
}

// TaskRef is the shortest handle a user can type for the task: the working-set id
// for pending tasks, otherwise the first uuid segment.
func TaskRef(t model.ViewTask) string {
	if t.State == model.ViewPending && t.ID > 0 {
		return fmt.Sprintf("%d", t.ID)
	}
	if i := strings.IndexByte(t.UUID, '-'); i > 0 {
		return t.UUID[:i]
	}
	return t.UUID
}

func displayTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" && t != model.ArchivedTag {
			out = append(out, "+"+t)
		}
	}
	return out
}
