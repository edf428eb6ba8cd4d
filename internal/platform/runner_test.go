package platform

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive ExecRunner with /bin/sh, which is available on every
// CI runner this project targets.

func TestExecRunner_CapturesOutput(t *testing.T) {
	r := NewExecRunner()

	out, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo hello; echo oops >&2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.Stdout)
	assert.Equal(t, "oops\n", out.Stderr)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner()

	out, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo denied >&2; exit 3"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Equal(t, "denied\n", out.Stderr)
}

func TestExecRunner_ExtraEnvAndDir(t *testing.T) {
	r := NewExecRunner()
	dir := t.TempDir()

	out, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo $WORKSHOP_TEST_VAR; pwd"},
		Dir:  dir,
		Env:  []string{"WORKSHOP_TEST_VAR=from-env"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "from-env", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], strings.TrimPrefix(dir, "/private")))
}

func TestExecRunner_Interactive(t *testing.T) {
	var stdout bytes.Buffer
	r := &ExecRunner{
		Stdin:  strings.NewReader("typed\n"),
		Stdout: &stdout,
	}

	out, err := r.Run(context.Background(), Command{
		Name:        "sh",
		Args:        []string{"-c", "read line; echo got $line"},
		Interactive: true,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Stdout, "interactive output goes to the terminal, not the result")
	assert.Equal(t, "got typed\n", stdout.String())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "modal", Command{Name: "modal"}.String())
	assert.Equal(t, "modal app list", Command{Name: "modal", Args: []string{"app", "list"}}.String())
}
