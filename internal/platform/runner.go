package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes one external process invocation.
type Command struct {
	// Name is the binary to run (resolved through PATH).
	Name string

	// Args are the arguments passed to the binary.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// Interactive connects the process to the terminal (stdin/stdout/stderr)
	// instead of capturing output. Used for browser-based login flows
	// that prompt the user.
	Interactive bool
}

// String renders the command line for log and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Output is the captured result of a non-interactive command.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes commands. Implementations must return a non-nil error
// when the process cannot be started or exits with a non-zero status.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner is the os/exec implementation of Runner.
type ExecRunner struct {
	// Stdin, Stdout and Stderr are used for interactive commands.
	// Nil values fall back to the process's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates an ExecRunner bound to the process's standard streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it to finish.
//
// Non-interactive commands have stdout and stderr captured separately so
// stderr can be included in error messages while stdout is returned for
// parsing. Interactive commands inherit the terminal and return empty output.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	// #nosec G204 -- command names come from configuration, not request input
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	// Extra variables are appended to the inherited environment. When a
	// key appears twice, exec uses the last value, so c.Env wins.
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	// The login flow prints a URL and waits for the browser, so the
	// learner must see its output as it happens.
	if c.Interactive {
		cmd.Stdin = orReader(r.Stdin, os.Stdin)
		cmd.Stdout = orWriter(r.Stdout, os.Stdout)
		cmd.Stderr = orWriter(r.Stderr, os.Stderr)
		if err := cmd.Run(); err != nil {
			return Output{}, fmt.Errorf("%s: %w", c, err)
		}
		return Output{}, nil
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return out, fmt.Errorf("%s: %w", c, err)
	}
	return out, nil
}

func orReader(r, fallback io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return fallback
}

func orWriter(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
