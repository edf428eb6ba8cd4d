package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/config"
	"github.com/shinji-kodama/serverless-workshop/internal/platform"
)

// deployer is the part of platform.Manager the deploy command uses.
type deployer interface {
	Deploy(ctx context.Context, file string, env []string) (*platform.Deployment, error)
}

// NewDeployCommand creates the "deploy" cobra command.
func NewDeployCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy [file]",
		Short: "Deploy the sentiment API to the platform",
		Long: `Deploy the sentiment API app and print its endpoint URLs.

The file defaults to sentiment_api.py (WORKSHOP_DEPLOY_FILE). The deploy
runs in the file's directory so files next to the app resolve. The app
name and concurrency limit from your configuration are passed to the
deploy as SENTIMENT_APP_NAME and MAX_CONCURRENT_REQUESTS.

Examples:
  workshop deploy
  workshop deploy my_app.py --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := currentConfig()
			file := c.DeployFile
			if len(args) == 1 {
				file = args[0]
			}
			mgr := platform.NewManager(nil,
				platform.WithPython(c.Python),
				platform.WithBinary(c.PlatformBin),
				platform.WithWorkDir(filepath.Dir(file)))
			return runDeploy(cmd.Context(), cmd.OutOrStdout(), mgr, c, file)
		},
	}
}

// runDeploy deploys file. d runs in the file's directory, so only the base
// name is handed to it.
func runDeploy(ctx context.Context, w io.Writer, d deployer, c *config.Config, file string) error {
	if !IsJSONOutput() {
		fmt.Fprintf(w, "Deploying %s as %q...\n", file, c.AppName)
	}
	VerboseLog("deploy env: %v", c.DeployEnv())

	dep, err := d.Deploy(ctx, filepath.Base(file), c.DeployEnv())
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return writeJSON(w, dep)
	}

	fmt.Fprintf(w, "%s\n", successStyle.Render("Deployed "+dep.File))
	if len(dep.Endpoints) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No endpoint URLs found in the deploy output."))
		return nil
	}
	fmt.Fprintln(w, titleStyle.Render("Endpoints:"))
	for _, u := range dep.Endpoints {
		fmt.Fprintf(w, "   %s\n", u)
	}
	fmt.Fprintf(w, "\nTry it:  workshop analyze --endpoint %s \"I love this workshop!\"\n", dep.Endpoints[0])
	return nil
}
