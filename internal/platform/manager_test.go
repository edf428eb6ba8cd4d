package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// fakeRunner records every command and answers from a table keyed by the
// rendered command line. Commands missing from the table succeed with
// empty output.
type fakeRunner struct {
	calls   []Command
	outputs map[string]Output
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]Output),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (Output, error) {
	f.calls = append(f.calls, cmd)
	key := cmd.String()
	return f.outputs[key], f.errs[key]
}

// TestIsInstalled verifies the import check uses the configured interpreter.
func TestIsInstalled(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(r, WithPython("/usr/bin/python3.11"))

	assert.True(t, m.IsInstalled(context.Background()))
	require.Len(t, r.calls, 1)
	assert.Equal(t, "/usr/bin/python3.11", r.calls[0].Name)
	assert.Equal(t, []string{"-c", "import modal"}, r.calls[0].Args)

	r.errs["/usr/bin/python3.11 -c import modal"] = errors.New("exit status 1")
	assert.False(t, m.IsInstalled(context.Background()))
}

// TestInstall verifies pip is invoked and that stderr is carried into the error.
func TestInstall(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(r)

	require.NoError(t, m.Install(context.Background()))
	assert.Equal(t, "python3 -m pip install modal", r.calls[0].String())

	r.outputs["python3 -m pip install modal"] = Output{Stderr: "No matching distribution\n"}
	r.errs["python3 -m pip install modal"] = errors.New("exit status 1")

	err := m.Install(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitPlatformUnavailable, cliErr.Code)
	assert.Contains(t, cliErr.Message, "No matching distribution")
}

// TestAuthenticate verifies the login flow runs attached to the terminal.
func TestAuthenticate(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(r, WithBinary("/opt/bin/modal"))

	require.NoError(t, m.Authenticate(context.Background()))
	require.Len(t, r.calls, 1)
	assert.True(t, r.calls[0].Interactive)
	assert.Equal(t, "/opt/bin/modal setup", r.calls[0].String())

	r.errs["/opt/bin/modal setup"] = errors.New("exit status 2")
	err := m.Authenticate(context.Background())

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

// TestVerifyConnection verifies the connectivity check command and its error mapping.
func TestVerifyConnection(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(r)

	require.NoError(t, m.VerifyConnection(context.Background()))
	assert.Equal(t, "modal app list", r.calls[0].String())
	assert.False(t, r.calls[0].Interactive)

	r.outputs["modal app list"] = Output{Stderr: "Token missing"}
	r.errs["modal app list"] = errors.New("exit status 1")
	err := m.VerifyConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token missing")
}

// TestVersion verifies the version output is trimmed.
func TestVersion(t *testing.T) {
	r := newFakeRunner()
	r.outputs["modal --version"] = Output{Stdout: "modal client version: 0.64.0\n"}
	m := NewManager(r)

	v, err := m.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "modal client version: 0.64.0", v)
}

// TestDeploy verifies deploy arguments, working directory, env passthrough
// and endpoint extraction.
func TestDeploy(t *testing.T) {
	r := newFakeRunner()
	r.outputs["modal deploy sentiment_api.py"] = Output{Stdout: `✓ Created objects.
├── 🔨 Created web function sentiment_endpoint => https://ws--sentiment-analyzer-sentiment-endpoint.modal.run
└── 🔨 Created web function health_check => https://ws--sentiment-analyzer-health-check.modal.run
✓ App deployed! 🎉
`}
	m := NewManager(r, WithWorkDir("/work"))

	dep, err := m.Deploy(context.Background(), "sentiment_api.py", []string{"SENTIMENT_APP_NAME=demo"})
	require.NoError(t, err)

	assert.Equal(t, "/work", r.calls[0].Dir)
	assert.Equal(t, []string{"SENTIMENT_APP_NAME=demo"}, r.calls[0].Env)
	assert.Equal(t, "sentiment_api.py", dep.File)
	assert.Equal(t, []string{
		"https://ws--sentiment-analyzer-sentiment-endpoint.modal.run",
		"https://ws--sentiment-analyzer-health-check.modal.run",
	}, dep.Endpoints)
}

// TestDeploy_Failure verifies deploy failures carry the deploy exit code.
func TestDeploy_Failure(t *testing.T) {
	r := newFakeRunner()
	r.errs["modal deploy missing.py"] = errors.New("exit status 1")
	m := NewManager(r)

	_, err := m.Deploy(context.Background(), "missing.py", nil)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitDeployFailed, cliErr.Code)
}

// TestParseEndpointURLs covers deduplication, trailing punctuation and
// output without any URL.
func TestParseEndpointURLs(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "no urls",
			output: "App deployed!",
			want:   []string{},
		},
		{
			name:   "trailing period stripped",
			output: "View at https://a--app-fn.modal.run.",
			want:   []string{"https://a--app-fn.modal.run"},
		},
		{
			name:   "duplicates removed",
			output: "https://a--x.modal.run\nhttps://a--x.modal.run\nhttps://a--y.modal.run/path",
			want:   []string{"https://a--x.modal.run", "https://a--y.modal.run/path"},
		},
		{
			name:   "other hosts ignored",
			output: "https://modal.com/apps/ws/main/deployed/app",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEndpointURLs(tt.output))
		})
	}
}
