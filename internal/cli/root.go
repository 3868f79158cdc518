package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taskbridge/internal/config"
	"taskbridge/internal/format"
	"taskbridge/internal/journal"
	"taskbridge/internal/logging"
	"taskbridge/internal/taskwarrior"
	"taskbridge/internal/tasks"
)

type App struct {
	ConfigPath string
	TaskBin    string
	LogLevel   string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskbridge",
		Short:        "REST API, web UI and CLI over Taskwarrior",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the API and UI on localhost
  taskbridge serve

  # Scriptable commands
  taskbridge tasks list --view pending --sort priority
  taskbridge tasks update 3 --tags Work,Health

  # Direct lookup (shortcut for: taskbridge tasks show <uuid-or-id>)
  taskbridge 3
`),
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TASKBRIDGE_CONFIG", ""), "Path to config.toml (default: user config dir)")
	cmd.PersistentFlags().StringVar(&app.TaskBin, "task-bin", envOr("TASKBRIDGE_TASK_BIN", ""), "Taskwarrior executable (overrides taskwarrior.bin)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("TASKBRIDGE_LOG_LEVEL", ""), "Log level (debug|info|warn|error; overrides logging.level)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKBRIDGE_FORMAT", format.JSON), "Output format ("+strings.Join(format.Formats(), "|")+")")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func (a *App) configPath() (string, error) {
	if p := strings.TrimSpace(a.ConfigPath); p != "" {
		return p, nil
	}
	return config.Path()
}

// loadConfig reads the config file and applies flag overrides.
func (a *App) loadConfig() (config.Config, string, error) {
	path, err := a.configPath()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}
	if b := strings.TrimSpace(a.TaskBin); b != "" {
		cfg.Taskwarrior.Bin = b
	}
	if l := strings.TrimSpace(a.LogLevel); l != "" {
		cfg.Logging.Level = l
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	return cfg, path, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) logging.Logger {
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	return logging.New(cmd.ErrOrStderr(), level)
}

func newClient(cfg config.Config, logger logging.Logger) *taskwarrior.Client {
	return &taskwarrior.Client{
		Bin:     cfg.Taskwarrior.Bin,
		TaskRC:  cfg.Taskwarrior.TaskRC,
		DataDir: cfg.Taskwarrior.DataDir,
		Timeout: cfg.Taskwarrior.Timeout.Duration,
		Logger:  logger.With(logging.F("component", "taskwarrior")),
	}
}

// openService wires the task service for one command. done drains background
// work and closes the journal.
func (a *App) openService(ctx context.Context, cmd *cobra.Command) (svc *tasks.Service, cfg config.Config, done func(), err error) {
	cfg, path, err := a.loadConfig()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	logger := newLogger(cmd, cfg)

	var j journal.Journal = journal.Nop()
	if cfg.Journal.Enabled {
		st, err := journal.Open(ctx, cfg.JournalPath(path))
		if err != nil {
			return nil, config.Config{}, nil, err
		}
		j = st
	}

	svc = &tasks.Service{
		Tool:         newClient(cfg, logger),
		Journal:      j,
		Logger:       logger.With(logging.F("component", "tasks")),
		ArchiveAfter: cfg.ArchiveAfter(),
	}
	return svc, cfg, func() {
		svc.Drain()
		if err := j.Close(); err != nil {
			logger.Warn("close journal", logging.Err(err))
		}
	}, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

type envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

// writeOut wraps v in the {"data": ...} envelope for json and yaml. Table and
// markdown render v itself.
func writeOut(cmd *cobra.Command, app *App, v any, hints ...string) error {
	var out any = envelope{Data: v, Hints: hints}
	if app.Format == format.TableFmt || app.Format == format.Markdown {
		out = v
	}
	return format.Write(cmd.OutOrStdout(), out, app.Format, format.Options{
		Pretty: app.PrettyJSON,
		Width:  termWidth(),
	})
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func termWidth() int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && n > 0 {
		return n
	}
	return 0
}
