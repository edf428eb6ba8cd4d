// Package platform provides the serverless platform operations used by
// the setup workflow and the deploy command.
//
// Design decisions:
//   - The platform's client library is a Python package, so "installed"
//     means importable by the configured interpreter, not merely present
//     on PATH. This matches what a deployment script will actually need.
//   - Authentication is interactive (it opens a browser), so it runs
//     attached to the terminal rather than with captured output.
//   - All failures are wrapped in model.CLIError so the CLI layer can map
//     them to exit codes.
package platform

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// DefaultPackage is the Python package that provides the platform client.
const DefaultPackage = "modal"

// Manager runs platform operations through a Runner.
type Manager struct {
	runner  Runner
	python  string
	bin     string
	pkg     string
	workDir string
}

// Option configures a Manager.
type Option func(*Manager)

// WithPython sets the Python interpreter used for the import check and pip.
func WithPython(python string) Option {
	return func(m *Manager) {
		m.python = python
	}
}

// WithBinary sets the platform CLI binary name or path.
func WithBinary(bin string) Option {
	return func(m *Manager) {
		m.bin = bin
	}
}

// WithWorkDir sets the working directory for deploy commands.
func WithWorkDir(dir string) Option {
	return func(m *Manager) {
		m.workDir = dir
	}
}

// NewManager creates a Manager. A nil runner uses NewExecRunner.
func NewManager(runner Runner, opts ...Option) *Manager {
	if runner == nil {
		runner = NewExecRunner()
	}
	m := &Manager{
		runner: runner,
		python: "python3",
		bin:    DefaultPackage,
		pkg:    DefaultPackage,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsInstalled reports whether the platform's Python package is importable.
// Any failure to run the interpreter counts as "not installed".
func (m *Manager) IsInstalled(ctx context.Context) bool {
	_, err := m.runner.Run(ctx, Command{
		Name: m.python,
		Args: []string{"-c", "import " + m.pkg},
	})
	return err == nil
}

// Install installs the platform's Python package with pip.
func (m *Manager) Install(ctx context.Context) error {
	cmd := Command{
		Name: m.python,
		Args: []string{"-m", "pip", "install", m.pkg},
	}
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return wrapCommandError(model.ExitPlatformUnavailable,
			fmt.Sprintf("failed to install %s", m.pkg), out, err)
	}
	return nil
}

// Version returns the platform CLI's version string.
func (m *Manager) Version(ctx context.Context) (string, error) {
	out, err := m.runner.Run(ctx, Command{Name: m.bin, Args: []string{"--version"}})
	if err != nil {
		return "", wrapCommandError(model.ExitPlatformUnavailable,
			fmt.Sprintf("%s --version failed", m.bin), out, err)
	}
	return strings.TrimSpace(out.Stdout), nil
}

// Authenticate runs the platform's interactive login flow.
func (m *Manager) Authenticate(ctx context.Context) error {
	cmd := Command{Name: m.bin, Args: []string{"setup"}, Interactive: true}
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return wrapCommandError(model.ExitGeneralError,
			fmt.Sprintf("%s failed", cmd), out, err)
	}
	return nil
}

// VerifyConnection checks that the stored credentials are accepted by the
// platform. Listing apps is the cheapest call that needs both network
// access and a valid token.
func (m *Manager) VerifyConnection(ctx context.Context) error {
	cmd := Command{Name: m.bin, Args: []string{"app", "list"}}
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return wrapCommandError(model.ExitGeneralError,
			fmt.Sprintf("%s failed", cmd), out, err)
	}
	return nil
}

// Deployment describes a finished deploy.
type Deployment struct {
	// File is the deployed source file.
	File string `json:"file"`

	// Endpoints are the web endpoint URLs printed by the platform.
	Endpoints []string `json:"endpoints"`

	// Output is the raw deploy output.
	Output string `json:"-"`
}

// Deploy deploys file (e.g. "sentiment_api.py") and returns the endpoint
// URLs the platform reported. Extra KEY=VALUE pairs in env are passed to
// the deploy process so app names and limits from .env.local apply.
func (m *Manager) Deploy(ctx context.Context, file string, env []string) (*Deployment, error) {
	cmd := Command{
		Name: m.bin,
		Args: []string{"deploy", file},
		Dir:  m.workDir,
		Env:  env,
	}
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return nil, wrapCommandError(model.ExitDeployFailed,
			fmt.Sprintf("deploy of %s failed", file), out, err)
	}

	combined := out.Stdout + "\n" + out.Stderr
	return &Deployment{
		File:      file,
		Endpoints: ParseEndpointURLs(combined),
		Output:    out.Stdout,
	}, nil
}

// endpointRegex matches web endpoint URLs as printed by the platform,
// e.g. https://workspace--sentiment-analyzer-sentiment-endpoint.modal.run
var endpointRegex = regexp.MustCompile(`https://[A-Za-z0-9.-]+\.modal\.run[^\s"'<>)]*`)

// ParseEndpointURLs extracts endpoint URLs from deploy output, deduplicated
// and in order of first appearance.
func ParseEndpointURLs(output string) []string {
	matches := endpointRegex.FindAllString(output, -1)
	seen := make(map[string]bool, len(matches))
	urls := make([]string, 0, len(matches))
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;")
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// wrapCommandError builds a CLIError that includes stderr when present.
func wrapCommandError(code model.ExitCode, message string, out Output, err error) error {
	if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
		message = fmt.Sprintf("%s: %s", message, stderr)
	}
	return model.WrapCLIError(code, message, err)
}
