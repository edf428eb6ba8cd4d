package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/config"
	"github.com/shinji-kodama/serverless-workshop/internal/credentials"
	"github.com/shinji-kodama/serverless-workshop/internal/docker"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
	"github.com/shinji-kodama/serverless-workshop/internal/platform"
	"github.com/shinji-kodama/serverless-workshop/internal/port"
)

// NewDoctorCommand creates the "doctor" cobra command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the workshop prerequisites without changing anything",
		Long: `Run non-interactive checks of the workshop prerequisites.

Unlike setup, doctor never installs or logs in. It reports every check
and exits non-zero only when a required one fails. Docker and the local
listen port are informational.

Examples:
  workshop doctor
  workshop doctor --json`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLenientConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := currentConfig()
			deps := doctorDeps{
				envErr: cfgErr,
				platform: platform.NewManager(nil,
					platform.WithPython(c.Python),
					platform.WithBinary(c.PlatformBin)),
				loadCredentials: func() (*credentials.Store, error) {
					path, err := credentials.DefaultPath()
					if err != nil {
						return nil, err
					}
					return credentials.Load(path)
				},
				dockerProbe: docker.Probe,
			}
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), c, deps)
		},
	}
}

// doctorPlatform is the part of platform.Manager doctor uses.
type doctorPlatform interface {
	IsInstalled(ctx context.Context) bool
	Version(ctx context.Context) (string, error)
}

// doctorDeps are the probes doctor runs. Tests replace them with fakes.
type doctorDeps struct {
	envErr          error
	platform        doctorPlatform
	loadCredentials func() (*credentials.Store, error)
	dockerProbe     func(ctx context.Context) (*docker.Status, error)
}

// doctorCheck is one named probe. Required checks fail the command.
type doctorCheck struct {
	name     string
	title    string
	required bool
	run      func(ctx context.Context) model.StepResult
}

// doctorResult is a StepResult plus whether it was required.
type doctorResult struct {
	model.StepResult
	Required bool `json:"required"`
}

func doctorChecks(c *config.Config, deps doctorDeps) []doctorCheck {
	return []doctorCheck{
		{name: "platform", title: "Platform client", required: true, run: func(ctx context.Context) model.StepResult {
			return checkPlatform(ctx, deps.platform)
		}},
		{name: "environment", title: "Environment file", run: func(context.Context) model.StepResult {
			return checkEnvFile(c, deps.envErr)
		}},
		{name: "credentials", title: "Platform credentials", required: true, run: func(context.Context) model.StepResult {
			return checkCredentials(deps.loadCredentials)
		}},
		{name: "docker", title: "Docker daemon", run: func(ctx context.Context) model.StepResult {
			return checkDocker(ctx, deps.dockerProbe)
		}},
		{name: "port", title: "Local API port", run: func(context.Context) model.StepResult {
			return checkListenPort(c.ListenAddr)
		}},
	}
}

// runDoctor runs every check, prints the report, and returns an error
// when a required check failed.
func runDoctor(ctx context.Context, w io.Writer, c *config.Config, deps doctorDeps) error {
	checks := doctorChecks(c, deps)
	results := make([]doctorResult, 0, len(checks))

	failures := 0
	for _, chk := range checks {
		res := chk.run(ctx)
		res.Name = chk.name
		res.Title = chk.title
		VerboseLog("doctor %s: %s", chk.name, res.Status)

		// Optional checks never fail the run; downgrade them to warnings.
		if res.Status == model.StepFail && !chk.required {
			res.Status = model.StepWarn
		}
		if res.Status == model.StepFail {
			failures++
		}
		results = append(results, doctorResult{StepResult: res, Required: chk.required})
	}

	if IsJSONOutput() {
		type doctorJSON struct {
			Healthy bool           `json:"healthy"`
			Checks  []doctorResult `json:"checks"`
		}
		if err := writeJSON(w, doctorJSON{Healthy: failures == 0, Checks: results}); err != nil {
			return err
		}
	} else {
		printDoctorText(w, results)
	}

	if failures > 0 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%d required check(s) failed; run 'workshop setup' to fix them", failures))
	}
	return nil
}

func printDoctorText(w io.Writer, results []doctorResult) {
	fmt.Fprintln(w, titleStyle.Render("Workshop doctor"))
	for _, r := range results {
		fmt.Fprintf(w, "\n%s\n", r.Title)
		fmt.Fprint(w, formatStepResult(r.StepResult))
	}
}

func checkPlatform(ctx context.Context, p doctorPlatform) model.StepResult {
	if !p.IsInstalled(ctx) {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Platform client is not installed",
			Remediation: "Run 'workshop setup' or 'pip install modal'",
		}
	}
	v, err := p.Version(ctx)
	if err != nil {
		return model.StepResult{
			Status:      model.StepWarn,
			Message:     "Platform client is importable but the CLI did not run",
			Remediation: "Make sure the modal command is on your PATH (or set MODAL_BIN)",
			Detail:      err.Error(),
		}
	}
	return model.StepResult{Status: model.StepPass, Message: "Installed: " + v}
}

func checkEnvFile(c *config.Config, loadErr error) model.StepResult {
	if loadErr != nil {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     fmt.Sprintf("%s could not be applied - using default settings", c.EnvFile),
			Remediation: "Fix the reported line or value, or remove the file",
			Detail:      loadErr.Error(),
		}
	}
	if c.EnvFileLoaded {
		return model.StepResult{
			Status:  model.StepPass,
			Message: fmt.Sprintf("Loaded %s (app %q, max %d concurrent requests)", c.EnvFile, c.AppName, c.MaxConcurrentRequests),
		}
	}
	return model.StepResult{
		Status:  model.StepWarn,
		Message: fmt.Sprintf("No %s found - using default settings", c.EnvFile),
	}
}

func checkCredentials(load func() (*credentials.Store, error)) model.StepResult {
	store, err := load()
	if err != nil {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Could not read platform credentials",
			Remediation: "Run 'modal setup' to recreate them",
			Detail:      err.Error(),
		}
	}
	if !store.Authenticated() {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Not authenticated: " + store.Describe(),
			Remediation: "Run 'workshop setup' or 'modal setup'",
		}
	}
	return model.StepResult{Status: model.StepPass, Message: "Authenticated with " + store.Describe()}
}

func checkDocker(ctx context.Context, probe func(context.Context) (*docker.Status, error)) model.StepResult {
	st, err := probe(ctx)
	if err != nil {
		return model.StepResult{
			Status:  model.StepWarn,
			Message: "Docker is not available (only needed to build images locally)",
			Detail:  err.Error(),
		}
	}
	return model.StepResult{
		Status:  model.StepPass,
		Message: fmt.Sprintf("Docker %s (%s/%s) at %s", st.Version, st.OS, st.Arch, st.Host),
	}
}

func checkListenPort(addr string) model.StepResult {
	host, p, err := port.SplitAddr(addr)
	if err != nil {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     err.Error(),
			Remediation: "Fix WORKSHOP_LISTEN_ADDR (e.g. 127.0.0.1:8000)",
		}
	}
	if !port.NewScanner(host).IsPortAvailable(p, "tcp") {
		return model.StepResult{
			Status:      model.StepWarn,
			Message:     fmt.Sprintf("Port %d is already in use", p),
			Remediation: "Use 'workshop serve --auto-port' or set WORKSHOP_LISTEN_ADDR",
		}
	}
	return model.StepResult{Status: model.StepPass, Message: fmt.Sprintf("%s is free for 'workshop serve'", addr)}
}
