package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/logging"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
	"github.com/shinji-kodama/serverless-workshop/internal/port"
	"github.com/shinji-kodama/serverless-workshop/internal/sentiment"
)

// autoPortSpan is how far above the requested port --auto-port searches.
const autoPortSpan = 100

// serveFlags holds the flag values for the serve command.
type serveFlags struct {
	addr     string
	autoPort bool
}

// NewServeCommand creates the "serve" cobra command.
func NewServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sentiment API locally",
		Long: `Serve the sentiment API on this machine.

Routes:
  POST /sentiment        {"text": "..."}
  POST /sentiment/batch  {"texts": ["...", "..."]}
  GET  /health

The local server uses a small word-list classifier so it works offline.
Stop it with Ctrl+C.

Examples:
  workshop serve
  workshop serve --addr 127.0.0.1:9000
  workshop serve --auto-port`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (default from WORKSHOP_LISTEN_ADDR or 127.0.0.1:8000)")
	cmd.Flags().BoolVar(&flags.autoPort, "auto-port", false, "Use the next free port if the requested one is busy")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, flags *serveFlags) error {
	c := currentConfig()
	addr := flags.addr
	if addr == "" {
		addr = c.ListenAddr
	}

	resolved, err := port.Resolve(addr, flags.autoPort, autoPortSpan)
	if err != nil {
		return model.WrapCLIError(model.ExitPortUnavailable, "cannot listen on "+addr, err)
	}
	if resolved != addr {
		VerboseLog("port busy, using %s instead of %s", resolved, addr)
	}

	ln, err := net.Listen("tcp", resolved)
	if err != nil {
		return model.WrapCLIError(model.ExitPortUnavailable, "cannot listen on "+resolved, err)
	}

	svc := sentiment.NewService(sentiment.NewLexiconClassifier(), c.MaxConcurrentRequests)
	srv := sentiment.NewServer(svc, sentiment.ServerConfig{
		AppName:        c.AppName,
		RequestTimeout: c.RequestTimeout,
	}, logging.Get("server"))
	VerboseLog("serving up to %d concurrent requests", svc.MaxConcurrency())

	base := "http://" + ln.Addr().String()
	w := cmd.OutOrStdout()
	if IsJSONOutput() {
		if err := writeJSON(w, map[string]string{"url": base, "app": c.AppName}); err != nil {
			_ = ln.Close()
			return err
		}
	} else {
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(c.AppName), mutedStyle.Render("listening on "+base))
		fmt.Fprintf(w, "   POST %s%s\n", base, sentiment.PathSentiment)
		fmt.Fprintf(w, "   GET  %s%s\n", base, sentiment.PathHealth)
	}

	if err := srv.Serve(ctx, ln); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	VerboseLog("server stopped")
	return nil
}
