package cli

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskbridge/internal/logging"
	"taskbridge/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and web UI",
		Example: strings.TrimSpace(`
# Serve on the configured address (default 127.0.0.1:3001)
taskbridge serve

# Pick another port and open a browser
taskbridge serve --addr :3335 --open
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cfg, done, err := app.openService(ctx, cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if a := strings.TrimSpace(addr); a != "" {
				cfg.Server.Addr = a
			}
			logger := newLogger(cmd, cfg)
			srv, err := web.NewServer(web.ServerConfig{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  cfg.Server.ReadTimeout.Duration,
				WriteTimeout: cfg.Server.WriteTimeout.Duration,
				Refresh:      cfg.UI.Refresh.Duration,
				Logger:       logger,
			}, svc)
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"

			opened := false
			openErr := ""
			if open {
				if err := openURL(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}
			_ = writeOut(cmd, app, map[string]any{
				"addr":      ln.Addr().String(),
				"url":       url,
				"opened":    opened,
				"openError": openErr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "taskbridge running at %s\n", url)

			if err := srv.Serve(ctx, ln); err != nil {
				return writeErr(cmd, err)
			}
			logger.Info("stopped", logging.F("addr", ln.Addr().String()))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("TASKBRIDGE_ADDR", ""), "Bind address (host:port or :port; overrides server.addr)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the UI in your default browser")
	return cmd
}

func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

