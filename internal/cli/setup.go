package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/config"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
	"github.com/shinji-kodama/serverless-workshop/internal/platform"
	"github.com/shinji-kodama/serverless-workshop/internal/setup"
)

// NewSetupCommand creates the "setup" cobra command.
func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Install, authenticate and verify the deployment platform",
		Long: `Prepare this machine for the workshop.

Runs four steps in order and stops at the first failure:
  1. install the platform client if it cannot be imported
  2. load the optional .env.local (never fails)
  3. authenticate with the platform (opens a browser)
  4. verify the connection

Examples:
  workshop setup
  workshop setup --env-file .env.workshop`,
		// A broken .env.local must not stop setup; the environment step
		// reports it instead.
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLenientConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := currentConfig()
			return runWorkflow(cmd.Context(), cmd.OutOrStdout(), newSetupPlatform(c), c.EnvFile, cfgErr)
		},
	}
}

// newSetupPlatform wires the real platform manager. The interactive login
// writes to stdout, so in JSON mode it is moved to stderr to keep stdout
// parseable. Tests replace it with a fake.
var newSetupPlatform = func(c *config.Config) setup.Platform {
	runner := platform.NewExecRunner()
	if IsJSONOutput() {
		runner.Stdout = os.Stderr
	}
	return platform.NewManager(runner,
		platform.WithPython(c.Python),
		platform.WithBinary(c.PlatformBin),
	)
}

// runWorkflow runs the setup steps against p and prints the outcome.
// envErr is the error, if any, that kept envPath from being applied.
func runWorkflow(ctx context.Context, w io.Writer, p setup.Platform, envPath string, envErr error) error {
	var reporter setup.Reporter
	if !IsJSONOutput() {
		reporter = &textReporter{w: w}
		fmt.Fprintln(w, bannerStyle.Render("Serverless ML Workshop setup"))
	}

	results, err := setup.New(p, envPath, reporter).WithEnvError(envErr).Run(ctx)

	if IsJSONOutput() {
		type setupJSON struct {
			Success bool               `json:"success"`
			Steps   []model.StepResult `json:"steps"`
		}
		if jerr := writeJSON(w, setupJSON{Success: err == nil, Steps: results}); jerr != nil {
			return jerr
		}
		return err
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n\n", successStyle.Render("Setup complete! You're ready for the workshop."))
	fmt.Fprintln(w, titleStyle.Render("Next steps:"))
	for _, s := range setup.NextSteps {
		fmt.Fprintf(w, "   %s\n", s)
	}
	return nil
}
