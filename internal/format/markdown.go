package format

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. A fixed style avoids terminal background
	// queries that WithAutoStyle would issue.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// WriteMarkdown renders md for the terminal behind w. Without color support the
// plain "notty" style is used.
func WriteMarkdown(w io.Writer, md string, width int) error {
	style := "dark"
	if ColorProfile(w) == termenv.Ascii {
		style = "notty"
	}
	out, err := RenderMarkdown(md, style, width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func RenderMarkdown(md, style string, width int) (string, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	if width < 20 {
		width = DefaultWidth
	}

	key := fmt.Sprintf("%s:%d", style, width)
	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return "", err
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
