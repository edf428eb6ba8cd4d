package port

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loopback = "127.0.0.1"

// occupy starts a TCP listener on an OS-assigned loopback port and returns
// the port. The listener is closed when the test ends.
func occupy(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", loopback+":0")
	require.NoError(t, err, "failed to start test listener")
	t.Cleanup(func() { _ = ln.Close() })

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return tcpAddr.Port
}

// TestIsPortAvailable_FreePort verifies that IsPortAvailable returns true
// for a port that no process is using. The port comes from
// FindAvailablePort rather than being hardcoded, to avoid CI flakiness.
func TestIsPortAvailable_FreePort(t *testing.T) {
	scanner := NewScanner(loopback)

	freePort, err := scanner.FindAvailablePort(50000, 50100, "tcp")
	require.NoError(t, err, "should find at least one free port in 50000-50100")

	assert.True(t, scanner.IsPortAvailable(freePort, "tcp"), "port %d should be available", freePort)
}

// TestIsPortAvailable_UsedPort verifies that a bound port is reported as used.
func TestIsPortAvailable_UsedPort(t *testing.T) {
	port := occupy(t)

	scanner := NewScanner(loopback)
	assert.False(t, scanner.IsPortAvailable(port, "tcp"), "port %d should be in use", port)
}

// TestIsPortAvailable_UDP verifies UDP port scanning works correctly.
func TestIsPortAvailable_UDP(t *testing.T) {
	conn, err := net.ListenPacket("udp", loopback+":0")
	require.NoError(t, err, "failed to start test UDP listener")
	defer func() { _ = conn.Close() }()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	scanner := NewScanner(loopback)
	assert.False(t, scanner.IsPortAvailable(udpAddr.Port, "udp"), "UDP port %d should be in use", udpAddr.Port)
}

// TestIsPortAvailable_UnknownProtocol verifies the fail-safe behavior for
// unrecognized protocols.
func TestIsPortAvailable_UnknownProtocol(t *testing.T) {
	scanner := NewScanner(loopback)
	assert.False(t, scanner.IsPortAvailable(50000, "sctp"))
}

// TestFindAvailablePort_NoneAvailable verifies that a fully occupied range
// yields an error.
func TestFindAvailablePort_NoneAvailable(t *testing.T) {
	port := occupy(t)

	scanner := NewScanner(loopback)
	_, err := scanner.FindAvailablePort(port, port, "tcp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no available")
}

// TestSplitAddr covers valid and invalid listen addresses.
func TestSplitAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{addr: "127.0.0.1:8000", wantHost: "127.0.0.1", wantPort: 8000},
		{addr: ":9000", wantHost: "", wantPort: 9000},
		{addr: "[::1]:8080", wantHost: "::1", wantPort: 8080},
		{addr: "localhost", wantErr: true},
		{addr: "127.0.0.1:http", wantErr: true},
		{addr: "127.0.0.1:70000", wantErr: true},
		{addr: "127.0.0.1:0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, p, err := SplitAddr(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, p)
		})
	}
}

// TestResolve_FreePortUnchanged verifies a free address is returned as-is.
func TestResolve_FreePortUnchanged(t *testing.T) {
	free, err := NewScanner(loopback).FindAvailablePort(52000, 52100, "tcp")
	require.NoError(t, err)

	addr := net.JoinHostPort(loopback, strconv.Itoa(free))
	got, err := Resolve(addr, false, 0)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

// TestResolve_BusyPort verifies the strict and auto-port behaviors.
func TestResolve_BusyPort(t *testing.T) {
	port := occupy(t)
	addr := net.JoinHostPort(loopback, strconv.Itoa(port))

	_, err := Resolve(addr, false, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")

	got, err := Resolve(addr, true, 50)
	require.NoError(t, err)
	assert.NotEqual(t, addr, got)

	_, gotPort, err := SplitAddr(got)
	require.NoError(t, err)
	assert.Greater(t, gotPort, port)
	assert.LessOrEqual(t, gotPort, port+50)
}
