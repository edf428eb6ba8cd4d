package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// fakePlatform records which operations ran and fails the ones configured.
type fakePlatform struct {
	installed        bool
	installMakesItOK bool
	installErr       error
	authErr          error
	verifyErr        error

	calls []string
}

func (f *fakePlatform) IsInstalled(context.Context) bool {
	f.calls = append(f.calls, "is-installed")
	return f.installed
}

func (f *fakePlatform) Install(context.Context) error {
	f.calls = append(f.calls, "install")
	if f.installErr == nil && f.installMakesItOK {
		f.installed = true
	}
	return f.installErr
}

func (f *fakePlatform) Authenticate(context.Context) error {
	f.calls = append(f.calls, "authenticate")
	return f.authErr
}

func (f *fakePlatform) VerifyConnection(context.Context) error {
	f.calls = append(f.calls, "verify")
	return f.verifyErr
}

// recordingReporter collects every event for assertions.
type recordingReporter struct {
	started  []string
	notes    []string
	finished []model.StepResult
}

func (r *recordingReporter) StepStarted(_, _ int, title string) {
	r.started = append(r.started, title)
}

func (r *recordingReporter) Note(message string) {
	r.notes = append(r.notes, message)
}

func (r *recordingReporter) StepFinished(res model.StepResult) {
	r.finished = append(r.finished, res)
}

func envFileIn(t *testing.T, create bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env.local")
	if create {
		require.NoError(t, os.WriteFile(path, []byte("SENTIMENT_APP_NAME=x\n"), 0o644))
	}
	return path
}

func statuses(results []model.StepResult) []model.StepStatus {
	out := make([]model.StepStatus, len(results))
	for i, r := range results {
		out[i] = r.Status
	}
	return out
}

// TestRun_AllStepsSucceed checks that a fully working platform yields no error
// and every step runs exactly once, in order.
func TestRun_AllStepsSucceed(t *testing.T) {
	p := &fakePlatform{installed: true}
	rep := &recordingReporter{}

	results, err := New(p, envFileIn(t, true), rep).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.StepStatus{model.StepPass, model.StepPass, model.StepPass, model.StepPass}, statuses(results))
	assert.Equal(t, []string{"is-installed", "authenticate", "verify"}, p.calls)
	assert.Len(t, rep.started, 4)
	assert.Len(t, rep.finished, 4)
}

// TestRun_MissingEnvFileNeverFails checks the optional file branch: with or
// without the file the workflow succeeds.
func TestRun_MissingEnvFileNeverFails(t *testing.T) {
	for _, present := range []bool{true, false} {
		p := &fakePlatform{installed: true}
		results, err := New(p, envFileIn(t, present), nil).Run(context.Background())
		require.NoError(t, err)

		env := results[1]
		assert.Equal(t, StepEnvironment, env.Name)
		if present {
			assert.Equal(t, model.StepPass, env.Status)
			assert.Contains(t, env.Message, "loaded from .env.local")
		} else {
			assert.Equal(t, model.StepWarn, env.Status)
			assert.Contains(t, env.Message, "No .env.local file found")
		}
	}
}

// TestRun_EnvPathIsDirectory checks that an unusable env path only warns.
func TestRun_EnvPathIsDirectory(t *testing.T) {
	p := &fakePlatform{installed: true}
	results, err := New(p, t.TempDir(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StepWarn, results[1].Status)
}

// TestRun_EnvErrorOnlyWarns checks that an env file that could not be
// applied is reported on the environment step and the run continues.
func TestRun_EnvErrorOnlyWarns(t *testing.T) {
	p := &fakePlatform{installed: true}
	loadErr := errors.New(`unterminated quoted value "abc`)

	results, err := New(p, envFileIn(t, true), nil).WithEnvError(loadErr).Run(context.Background())
	require.NoError(t, err)

	env := results[1]
	assert.Equal(t, model.StepWarn, env.Status)
	assert.Contains(t, env.Message, "Could not apply .env.local")
	assert.Equal(t, loadErr.Error(), env.Detail)
	assert.Equal(t, []string{"is-installed", "authenticate", "verify"}, p.calls)
}

// TestRun_InstallsWhenMissing checks the install branch followed by a re-check.
func TestRun_InstallsWhenMissing(t *testing.T) {
	p := &fakePlatform{installMakesItOK: true}
	rep := &recordingReporter{}

	results, err := New(p, envFileIn(t, false), rep).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"is-installed", "install", "is-installed", "authenticate", "verify"}, p.calls)
	assert.Equal(t, "Platform client installed successfully", results[0].Message)
	assert.NotEmpty(t, rep.notes)
}

// TestRun_StopsAtFirstFailure checks that a failing step ends the run with
// ExitGeneralError and that no later step is attempted.
func TestRun_StopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		platform  *fakePlatform
		wantCalls []string
		wantState []model.StepStatus
		failStep  string
	}{
		{
			name:      "install fails",
			platform:  &fakePlatform{installErr: errors.New("pip exploded")},
			wantCalls: []string{"is-installed", "install"},
			wantState: []model.StepStatus{model.StepFail, model.StepSkipped, model.StepSkipped, model.StepSkipped},
			failStep:  StepInstall,
		},
		{
			name:      "install succeeds but import still fails",
			platform:  &fakePlatform{},
			wantCalls: []string{"is-installed", "install", "is-installed"},
			wantState: []model.StepStatus{model.StepFail, model.StepSkipped, model.StepSkipped, model.StepSkipped},
			failStep:  StepInstall,
		},
		{
			name:      "authentication fails",
			platform:  &fakePlatform{installed: true, authErr: errors.New("browser closed")},
			wantCalls: []string{"is-installed", "authenticate"},
			wantState: []model.StepStatus{model.StepPass, model.StepWarn, model.StepFail, model.StepSkipped},
			failStep:  StepAuthenticate,
		},
		{
			name:      "verification fails",
			platform:  &fakePlatform{installed: true, verifyErr: errors.New("network unreachable")},
			wantCalls: []string{"is-installed", "authenticate", "verify"},
			wantState: []model.StepStatus{model.StepPass, model.StepWarn, model.StepPass, model.StepFail},
			failStep:  StepVerify,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &recordingReporter{}
			results, err := New(tt.platform, envFileIn(t, false), rep).Run(context.Background())
			require.Error(t, err)

			var cliErr *model.CLIError
			require.ErrorAs(t, err, &cliErr)
			assert.Equal(t, model.ExitGeneralError, cliErr.Code)
			assert.Contains(t, cliErr.Message, tt.failStep)

			assert.Equal(t, tt.wantCalls, tt.platform.calls)
			assert.Equal(t, tt.wantState, statuses(results))

			failed := model.FirstFailure(results)
			require.NotNil(t, failed)
			assert.Equal(t, tt.failStep, failed.Name)
			assert.NotEmpty(t, failed.Remediation)

			// Skipped steps are reported but never started.
			failedIndex := 0
			for i, r := range results {
				if r.Failed() {
					failedIndex = i
				}
			}
			assert.Len(t, rep.started, failedIndex+1)
			assert.Len(t, rep.finished, 4)
		})
	}
}

// TestRun_FailureDetailIsWrapped checks that the underlying error text is kept.
func TestRun_FailureDetailIsWrapped(t *testing.T) {
	p := &fakePlatform{installed: true, verifyErr: errors.New("token rejected")}
	_, err := New(p, envFileIn(t, false), nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token rejected")
}
