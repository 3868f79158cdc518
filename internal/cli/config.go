package cli

import (
	"github.com/spf13/cobra"

	"taskbridge/internal/config"
	"taskbridge/internal/logging"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the config file",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			out := map[string]any{
				"path":        path,
				"journalPath": cfg.JournalPath(path),
				"config":      cfg,
			}
			// A missing or broken task binary is reported, not fatal.
			if v, err := newClient(cfg, logging.Nop()).Version(cmd.Context()); err != nil {
				out["taskwarriorError"] = err.Error()
			} else {
				out["taskwarriorVersion"] = v
			}
			return writeOut(cmd, app, out)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Write(path, config.Default(), force); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"path": path}, "edit "+path)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(showCmd, initCmd)
	return cmd
}
