// Package setup implements the one-time workshop setup sequence.
//
// The sequence is strictly linear:
//
//	install → environment → authenticate → verify
//
// Each step either passes (or warns) and the next one runs, or fails and
// the workflow stops. Steps after a failure are reported as skipped and
// are never executed. The environment step only reports whether the
// optional env file exists, so it can warn but never fail.
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/serverless-workshop/internal/logging"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// Step names, in execution order.
const (
	StepInstall      = "install"
	StepEnvironment  = "environment"
	StepAuthenticate = "authenticate"
	StepVerify       = "verify"
)

// Platform is the subset of platform.Manager the workflow needs.
type Platform interface {
	IsInstalled(ctx context.Context) bool
	Install(ctx context.Context) error
	Authenticate(ctx context.Context) error
	VerifyConnection(ctx context.Context) error
}

// Reporter receives progress events. Implementations render them for the
// terminal or collect them for JSON output.
type Reporter interface {
	// StepStarted is called before a step runs. index is 1-based.
	StepStarted(index, total int, title string)

	// Note prints an informational line while a step is running.
	Note(message string)

	// StepFinished is called with the outcome of every step, including
	// skipped ones.
	StepFinished(result model.StepResult)
}

// Workflow runs the setup steps.
type Workflow struct {
	platform Platform
	envFile  string
	envErr   error
	reporter Reporter
}

// New creates a Workflow. envFile is the path of the optional environment
// file; reporter may be nil to discard progress.
func New(p Platform, envFile string, reporter Reporter) *Workflow {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Workflow{platform: p, envFile: envFile, reporter: reporter}
}

// WithEnvError records that the env file existed but could not be applied
// (unreadable, malformed or holding invalid values). The environment step
// then warns and setup continues on default settings.
func (w *Workflow) WithEnvError(err error) *Workflow {
	w.envErr = err
	return w
}

type step struct {
	name  string
	title string
	run   func(ctx context.Context) model.StepResult
}

func (w *Workflow) steps() []step {
	return []step{
		{StepInstall, "Checking platform installation", w.checkInstall},
		{StepEnvironment, "Loading environment settings", w.checkEnvironment},
		{StepAuthenticate, "Setting up platform authentication", w.authenticate},
		{StepVerify, "Verifying platform connection", w.verify},
	}
}

// Run executes the steps in order and returns one result per step.
//
// When a step fails, the returned error is a model.CLIError with
// ExitGeneralError naming the step; the remaining steps are returned
// with StepSkipped status.
func (w *Workflow) Run(ctx context.Context) ([]model.StepResult, error) {
	logger := logging.Get("setup")
	steps := w.steps()
	results := make([]model.StepResult, 0, len(steps))

	for i, s := range steps {
		if failed := model.FirstFailure(results); failed != nil {
			skipped := model.StepResult{
				Name:    s.name,
				Title:   s.title,
				Status:  model.StepSkipped,
				Message: fmt.Sprintf("not attempted because %q failed", failed.Name),
			}
			results = append(results, skipped)
			w.reporter.StepFinished(skipped)
			continue
		}

		w.reporter.StepStarted(i+1, len(steps), s.title)
		logger.Debug("step started", "step", s.name)

		res := s.run(ctx)
		res.Name = s.name
		res.Title = s.title
		results = append(results, res)
		w.reporter.StepFinished(res)
		logger.Debug("step finished", "step", s.name, "status", res.Status)
	}

	if failed := model.FirstFailure(results); failed != nil {
		msg := fmt.Sprintf("setup failed at step %q: %s", failed.Name, failed.Message)
		if failed.Detail != "" {
			return results, model.WrapCLIError(model.ExitGeneralError, msg, errors.New(failed.Detail))
		}
		return results, model.NewCLIError(model.ExitGeneralError, msg)
	}
	return results, nil
}

func (w *Workflow) checkInstall(ctx context.Context) model.StepResult {
	if w.platform.IsInstalled(ctx) {
		return model.StepResult{
			Status:  model.StepPass,
			Message: "Platform client is already installed - ready to proceed",
		}
	}

	w.reporter.Note("Platform client not found on your system - installing now...")
	w.reporter.Note("This may take a minute to download and install...")

	if err := w.platform.Install(ctx); err != nil {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Failed to install the platform client",
			Remediation: "Install it manually with 'pip install modal' and run setup again",
			Detail:      err.Error(),
		}
	}

	if !w.platform.IsInstalled(ctx) {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Platform client was installed but still cannot be imported",
			Remediation: "Check that pip installed into the same Python that setup uses (WORKSHOP_PYTHON)",
		}
	}

	return model.StepResult{
		Status:  model.StepPass,
		Message: "Platform client installed successfully",
	}
}

func (w *Workflow) checkEnvironment(_ context.Context) model.StepResult {
	name := filepath.Base(w.envFile)

	if w.envErr != nil {
		return model.StepResult{
			Status:      model.StepWarn,
			Message:     fmt.Sprintf("Could not apply %s - using default settings", name),
			Remediation: fmt.Sprintf("Fix or remove %s, then run setup again to use your settings", name),
			Detail:      w.envErr.Error(),
		}
	}

	info, err := os.Stat(w.envFile)
	switch {
	case err == nil && !info.IsDir():
		return model.StepResult{
			Status:  model.StepPass,
			Message: fmt.Sprintf("Custom environment variables loaded from %s", name),
			Detail:  fmt.Sprintf("You can edit %s to customize app names and settings", name),
		}
	case err == nil:
		return model.StepResult{
			Status:  model.StepWarn,
			Message: fmt.Sprintf("%s is a directory - using default settings", name),
		}
	case errors.Is(err, os.ErrNotExist):
		return model.StepResult{
			Status:  model.StepWarn,
			Message: fmt.Sprintf("No %s file found - using default settings", name),
			Detail:  fmt.Sprintf("You can create %s later to customize your deployments", name),
		}
	default:
		return model.StepResult{
			Status:  model.StepWarn,
			Message: fmt.Sprintf("Could not read %s - using default settings", name),
			Detail:  err.Error(),
		}
	}
}

func (w *Workflow) authenticate(ctx context.Context) model.StepResult {
	w.reporter.Note("This will open a browser window where you can:")
	w.reporter.Note("1. Create a free account (if you don't have one)")
	w.reporter.Note("2. Authorize this computer to deploy")
	w.reporter.Note("3. Get your authentication tokens")

	if err := w.platform.Authenticate(ctx); err != nil {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Authentication failed",
			Remediation: "Please run 'modal setup' manually in your terminal and try again",
			Detail:      err.Error(),
		}
	}
	return model.StepResult{
		Status:  model.StepPass,
		Message: "Authentication successful - you can now deploy models",
	}
}

func (w *Workflow) verify(ctx context.Context) model.StepResult {
	if err := w.platform.VerifyConnection(ctx); err != nil {
		return model.StepResult{
			Status:      model.StepFail,
			Message:     "Connection test failed",
			Remediation: "Try running 'modal setup' again or check your internet connection",
			Detail:      err.Error(),
		}
	}
	return model.StepResult{
		Status:  model.StepPass,
		Message: "Connection verified - ready to deploy real models",
	}
}

// NextSteps is the guidance printed after a successful setup.
var NextSteps = []string{
	"Deploy the sentiment API:  workshop deploy",
	"Run the API locally:       workshop serve",
	"Try some sentences:        workshop analyze \"I love this workshop!\"",
	"Check a deployed endpoint: workshop health --endpoint <url>",
}

type nopReporter struct{}

func (nopReporter) StepStarted(int, int, string)  {}
func (nopReporter) Note(string)                   {}
func (nopReporter) StepFinished(model.StepResult) {}
