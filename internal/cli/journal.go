package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"taskbridge/internal/journal"
	"taskbridge/internal/model"
	"taskbridge/internal/tasks"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the log of executed intents",
	}

	var limit int
	var task string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent journal entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return writeErr(cmd, errors.New("--limit must be positive"))
			}
			opts := journal.ListOptions{Limit: limit}
			if t := strings.TrimSpace(task); t != "" {
				id, err := model.ParseIdentifier(t)
				if err != nil {
					return writeErr(cmd, err)
				}
				u, ok := id.UUID()
				if !ok {
					return writeErr(cmd, errors.New("--task needs a task uuid"))
				}
				opts.TaskUUID = u
			}
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				entries, err := svc.History(ctx, opts)
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []journal.Entry{}
				}
				return writeOut(cmd, app, journalOut(entries))
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "Maximum number of entries")
	listCmd.Flags().StringVar(&task, "task", "", "Only entries for this task uuid")

	cmd.AddCommand(listCmd)
	return cmd
}
