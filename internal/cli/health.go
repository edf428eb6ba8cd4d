package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
	"github.com/shinji-kodama/serverless-workshop/internal/sentiment"
)

// NewHealthCommand creates the "health" cobra command.
func NewHealthCommand() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Call the health endpoint of a running API",
		Long: `Call GET /health on a running sentiment API.

--endpoint accepts either the health URL itself or the server root.
Without it, the local server address (WORKSHOP_LISTEN_ADDR) is used.

Examples:
  workshop health
  workshop health --endpoint https://you--sentiment-analyzer-health.modal.run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := currentConfig()
			url := endpoint
			if url == "" {
				url = "http://" + c.ListenAddr
			}
			return runHealth(cmd.Context(), cmd.OutOrStdout(), healthClientFor(url).WithTimeout(c.RequestTimeout))
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Health URL or server root")

	return cmd
}

// healthClientFor builds a client whose health URL is u when u already
// points at a health route (or a platform endpoint), else u + /health.
func healthClientFor(u string) *sentiment.Client {
	trimmed := strings.TrimSuffix(u, "/")
	if strings.HasSuffix(trimmed, sentiment.PathHealth) || isPlatformEndpoint(trimmed) {
		return sentiment.NewEndpointClient("", trimmed)
	}
	return sentiment.NewClient(trimmed)
}

type healthChecker interface {
	Health(ctx context.Context) (*model.Health, error)
}

func runHealth(ctx context.Context, w io.Writer, c healthChecker) error {
	h, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		return writeJSON(w, h)
	}
	fmt.Fprintf(w, "%s %s: %s\n", statusIcon(healthStatus(h)), h.Service, h.Status)
	if h.Message != "" {
		fmt.Fprintf(w, "   %s\n", mutedStyle.Render(h.Message))
	}
	return nil
}

func healthStatus(h *model.Health) model.StepStatus {
	if h.Status == "healthy" {
		return model.StepPass
	}
	return model.StepWarn
}
