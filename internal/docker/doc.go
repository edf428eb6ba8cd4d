// Package docker provides Docker Engine API access for the
// serverless-workshop CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Daemon reachability (Ping) and version queries for diagnostics
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
//
// Docker is optional for the workshop: deployments build images remotely on
// the platform. A running daemon is only needed to test custom container
// images locally, so the doctor command reports a missing daemon as a
// warning.
package docker
