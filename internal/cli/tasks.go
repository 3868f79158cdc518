package cli

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/publish"
	"taskbridge/internal/query"
	"taskbridge/internal/statusutil"
	"taskbridge/internal/tasks"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List, inspect and change tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	for _, t := range transitionCmds {
		cmd.AddCommand(newTransitionCmd(app, t))
	}
	cmd.AddCommand(newTasksAnnotateCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksPublishCmd(app))
	return cmd
}

// withService runs fn against a freshly wired service.
func withService(app *App, cmd *cobra.Command, fn func(ctx context.Context, svc *tasks.Service) error) error {
	ctx := cmd.Context()
	svc, _, done, err := app.openService(ctx, cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer done()
	if err := fn(ctx, svc); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func parseViewFlag(raw string) (model.ViewState, error) {
	if strings.TrimSpace(raw) == "" || strings.EqualFold(strings.TrimSpace(raw), "all") {
		return "", nil
	}
	return statusutil.NormalizeViewState(raw)
}

func newTasksListCmd(app *App) *cobra.Command {
	var view, search, priority, sortKey string
	var tags, projects, xtags, xprojects []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in a view",
		Example: strings.TrimSpace(`
taskbridge tasks list --view pending --sort priority
taskbridge tasks list --view done --tag Work --xproject Home --format table
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseViewFlag(view)
			if err != nil {
				return writeErr(cmd, err)
			}
			q, err := query.Parse(url.Values{
				"q":        {search},
				"priority": {priority},
				"tag":      tags,
				"project":  projects,
				"xtag":     xtags,
				"xproject": xprojects,
				"sort":     {sortKey},
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				res, err := svc.List(ctx, v, q)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, listOut(res))
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "pending", "View (pending|blocked|completed|archived|all)")
	cmd.Flags().StringVar(&search, "q", "", "Case-insensitive text search over description and project")
	cmd.Flags().StringVar(&priority, "priority", "all", "Priority filter (all|H|M|L)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Only tasks with any of these tags (repeatable)")
	cmd.Flags().StringSliceVar(&projects, "project", nil, "Only tasks in any of these projects (repeatable)")
	cmd.Flags().StringSliceVar(&xtags, "xtag", nil, "Hide tasks with any of these tags (repeatable)")
	cmd.Flags().StringSliceVar(&xprojects, "xproject", nil, "Hide tasks in any of these projects (repeatable)")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort key (priority|project|tags|created|completed|urgency)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <uuid-or-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				t, err := svc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return writeOut(cmd, app, taskOut(t))
			})
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	var note, project, priority string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Create a task",
		Example: strings.TrimSpace(`
taskbridge tasks add "Buy milk" --project Personal --priority H --tag errand
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := statusutil.NormalizePriority(priority)
			if err != nil {
				return writeErr(cmd, err)
			}
			in := model.NewTask{
				Description:     strings.Join(args, " "),
				FullDescription: note,
				Project:         project,
				Priority:        p,
				Tags:            tags,
			}
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				res, err := svc.Create(ctx, in)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, mutationOut(res))
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Full description, stored as the first annotation")
	cmd.Flags().StringVar(&project, "project", "", "Project")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (H|M|L)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var description, project, priority, status string
	var tags []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update <uuid-or-id>",
		Short: "Change attributes, tags or status",
		Long: strings.TrimSpace(`
Only the flags you pass are changed. --tags replaces the whole tag set; the
difference to the current tags is applied as individual removals and additions.

Blocking or completing a task ignores every other flag.
`),
		Example: strings.TrimSpace(`
taskbridge tasks update 3 --tags Work,Health
taskbridge tasks update 3 --status blocked
taskbridge tasks update 3 --status pending --priority L --dry-run
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := updateRequest(cmd, description, project, priority, status, tags)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				if dryRun {
					p, err := svc.PlanUpdate(ctx, args[0], req)
					if err != nil {
						return err
					}
					return writeOut(cmd, app, previewOut(p))
				}
				res, err := svc.Update(ctx, args[0], req)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, mutationOut(res))
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&project, "project", "", "New project (empty clears it)")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority (H|M|L)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Desired tag set (comma separated; empty clears)")
	cmd.Flags().StringVar(&status, "status", "", "New status (pending|blocked|completed|archived)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without running it")
	return cmd
}

// updateRequest keeps only the flags that were set.
func updateRequest(cmd *cobra.Command, description, project, priority, status string, tags []string) (mutate.UpdateRequest, error) {
	var req mutate.UpdateRequest
	f := cmd.Flags()
	if f.Changed("description") {
		req.Description = &description
	}
	if f.Changed("project") {
		req.Project = &project
	}
	if f.Changed("priority") {
		p, err := statusutil.NormalizePriority(priority)
		if err != nil || p == "" {
			p = model.Priority(strings.TrimSpace(priority))
		}
		req.Priority = &p
	}
	if f.Changed("tags") {
		t := append([]string{}, tags...)
		req.Tags = &t
	}
	if f.Changed("status") {
		st, err := statusutil.NormalizeViewState(status)
		if err != nil {
			return mutate.UpdateRequest{}, err
		}
		req.Status = &st
	}
	if !req.HasAttributes() && req.Status == nil {
		return mutate.UpdateRequest{}, errors.New("nothing to update (pass at least one of --description, --project, --priority, --tags, --status)")
	}
	return req, nil
}

type transitionCmd struct {
	use   string
	short string
	run   func(svc *tasks.Service) func(ctx context.Context, ref string) (tasks.MutationResult, error)
}

var transitionCmds = []transitionCmd{
	{"complete", "Mark a task done", func(s *tasks.Service) func(context.Context, string) (tasks.MutationResult, error) { return s.Complete }},
	{"reopen", "Return a task to pending", func(s *tasks.Service) func(context.Context, string) (tasks.MutationResult, error) { return s.Reopen }},
	{"block", "Defer a task until unblocked", func(s *tasks.Service) func(context.Context, string) (tasks.MutationResult, error) { return s.Block }},
	{"unblock", "Clear the wait on a blocked task", func(s *tasks.Service) func(context.Context, string) (tasks.MutationResult, error) { return s.Unblock }},
	{"archive", "Archive a completed task", func(s *tasks.Service) func(context.Context, string) (tasks.MutationResult, error) { return s.Archive }},
	{"unarchive", "Move an archived task back to completed", func(s *tasks.Service) func(context.Context, string) (tasks.MutationResult, error) { return s.Unarchive }},
}

func newTransitionCmd(app *App, t transitionCmd) *cobra.Command {
	return &cobra.Command{
		Use:   t.use + " <uuid-or-id>",
		Short: t.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				res, err := t.run(svc)(ctx, args[0])
				if err != nil {
					return err
				}
				return writeOut(cmd, app, mutationOut(res))
			})
		},
	}
}

func newTasksAnnotateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate <uuid-or-id> <note>",
		Short: "Add a note to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := strings.Join(args[1:], " ")
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				res, err := svc.Annotate(ctx, args[0], note)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, mutationOut(res))
			})
		},
	}
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <uuid-or-id>",
		Short: "Delete a task (requires --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				res, err := svc.Delete(ctx, args[0], yes)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, mutationOut(res))
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

func newTasksPublishCmd(app *App) *cobra.Command {
	var toDir, view string
	var overwrite, annotations bool

	cmd := &cobra.Command{
		Use:   "publish [uuid-or-id]",
		Short: "Write Markdown pages for one task or a whole view",
		Example: strings.TrimSpace(`
taskbridge tasks publish --view completed --to ./notes
taskbridge tasks publish 3 --to ./notes --overwrite
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(toDir) == "" {
				return writeErr(cmd, errors.New("missing --to"))
			}
			v, err := parseViewFlag(view)
			if err != nil {
				return writeErr(cmd, err)
			}
			opt := publish.WriteOptions{IncludeAnnotations: annotations, Overwrite: overwrite}
			return withService(app, cmd, func(ctx context.Context, svc *tasks.Service) error {
				var res publish.WriteResult
				if len(args) == 1 {
					t, err := svc.Get(ctx, args[0])
					if err != nil {
						return err
					}
					res, err = publish.WriteTask(t, toDir, opt)
					if err != nil {
						return err
					}
				} else {
					list, err := svc.List(ctx, v, query.Query{})
					if err != nil {
						return err
					}
					res, err = publish.WriteView(listOut(list).title(), list.Tasks, toDir, opt)
					if err != nil {
						return err
					}
				}
				return writeOut(cmd, app, res, "git status", "git add -A")
			})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	cmd.Flags().StringVar(&view, "view", "pending", "View to publish when no task is given")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().BoolVar(&annotations, "notes", true, "Include annotations")
	return cmd
}
