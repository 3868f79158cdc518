package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskbridge/internal/docs"
	"taskbridge/internal/format"
)

type topicsOut []string

func (t topicsOut) Markdown() string {
	var b strings.Builder
	b.WriteString("# Topics\n\n")
	for _, name := range t {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}

type docOut struct {
	Topic string `json:"topic"`
	Body  string `json:"markdown"`
}

func (d docOut) Markdown() string { return d.Body }

func newDocsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show reference topics (" + strings.Join(docs.Topics(), ", ") + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, topicsOut(docs.Topics()))
			}
			md, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown topic: %s (available: %s)", args[0], strings.Join(docs.Topics(), ", ")))
			}
			// Reading docs defaults to rendered markdown rather than JSON.
			if !cmd.Flags().Changed("format") && app.Format == format.JSON {
				return format.WriteMarkdown(cmd.OutOrStdout(), md, termWidth())
			}
			return writeOut(cmd, app, docOut{Topic: strings.ToLower(strings.TrimSpace(args[0])), Body: md})
		},
	}
}
