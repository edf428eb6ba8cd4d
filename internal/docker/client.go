package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// probeTimeout bounds each daemon round trip. Docker Desktop on macOS can
// take a few seconds to answer after waking up.
const probeTimeout = 5 * time.Second

// windowsPipe is the default Docker Desktop named pipe.
const windowsPipe = `//./pipe/docker_engine`

// Status describes a reachable Docker daemon.
type Status struct {
	Host       string `json:"host"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
}

// Client wraps the Docker Engine SDK client.
//
//	c, err := docker.NewClient()
//	if err != nil { /* no socket */ }
//	defer c.Close()
//	st, err := c.Probe(ctx)
type Client struct {
	inner *client.Client
	host  string
}

// NewClient connects to DOCKER_HOST when set, otherwise to the first
// default socket that exists for this OS. Failures are CLIErrors with
// ExitPlatformUnavailable.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectDockerHost()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitPlatformUnavailable, "Docker socket not found", err)
		}
		host = detected
	}
	return newClientWithHost(host)
}

func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitPlatformUnavailable,
			fmt.Sprintf("failed to create Docker client for %q", host), err)
	}
	return &Client{inner: c, host: host}, nil
}

// socketCandidates lists the unix socket paths probed on goos, most
// preferred first. Windows uses a named pipe instead and returns nil.
func socketCandidates(goos, home string) []string {
	switch goos {
	case "linux":
		return []string{"/var/run/docker.sock"}
	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if home != "" {
			paths = append(paths,
				filepath.Join(home, ".docker", "run", "docker.sock"),
				filepath.Join(home, ".colima", "default", "docker.sock"),
			)
		}
		return paths
	default:
		return nil
	}
}

// detectDockerHost checks for socket files rather than connecting;
// Probe handles connectivity.
func detectDockerHost() (string, error) {
	if runtime.GOOS == "windows" {
		// os.Stat does not work on named pipes, so probe with a brief dial.
		conn, err := net.DialTimeout("pipe", windowsPipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", windowsPipe, err)
		}
		_ = conn.Close()
		return "npipe://" + windowsPipe, nil
	}

	home, _ := os.UserHomeDir()
	paths := socketCandidates(runtime.GOOS, home)
	if len(paths) == 0 {
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return detectUnixSocket(paths)
}

// detectUnixSocket returns a unix:// URI for the first existing path.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v; is Docker running?", paths)
}

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapCLIError(model.ExitPlatformUnavailable,
			"Docker daemon is not responding; is Docker running?", err)
	}
	return nil
}

// Probe pings the daemon and reports its version details.
func (c *Client) Probe(ctx context.Context) (*Status, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c.version(ctx)
}

func (c *Client) version(ctx context.Context) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	v, err := c.inner.ServerVersion(ctx)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitPlatformUnavailable, "failed to query Docker version", err)
	}
	return &Status{
		Host:       c.host,
		Version:    v.Version,
		APIVersion: v.APIVersion,
		OS:         v.Os,
		Arch:       v.Arch,
	}, nil
}

// Close releases the client. It is safe on a zero Client.
func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Probe connects with NewClient, probes the daemon and closes the client.
func Probe(ctx context.Context) (*Status, error) {
	c, err := NewClient()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()
	return c.Probe(ctx)
}
