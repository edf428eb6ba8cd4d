// Package port checks host port availability for the local sentiment API.
//
// The serve command verifies its listen address before starting the HTTP
// server so a clash with another process (a second workshop server, a
// notebook, another dev server) is reported with a clear exit code instead
// of a bind error deep inside net/http.
package port

import (
	"fmt"
	"net"
	"strconv"
)

// Scanner checks whether specific ports are available on the host machine.
//
// It asks the operating system directly via net.Listen / net.ListenPacket,
// rather than parsing /proc/net/* or relying on external commands like
// lsof or ss which may require elevated permissions.
//
// The scanner binds on the same interface the server will listen on. A
// port that is taken on 127.0.0.1 can still be free on another interface,
// so probing ":port" would give a different answer than the real bind.
type Scanner struct {
	// host is the interface address probed. Empty means all interfaces.
	host string
}

// NewScanner creates a Scanner that probes the given host interface.
// Pass "" to probe all interfaces.
func NewScanner(host string) *Scanner {
	return &Scanner{host: host}
}

// IsPortAvailable checks whether a single port is free.
//
// For TCP, it attempts net.Listen. For UDP, it attempts net.ListenPacket.
// If the bind succeeds, the port is available and the listener is closed
// again before returning.
//
// Parameters:
//   - port: the port number to check (1-65535)
//   - protocol: "tcp" or "udp"
//
// Returns true if the port is free, false if it is in use or the protocol
// is unknown.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	// JoinHostPort brackets IPv6 hosts ("[::1]:8000"); plain string
	// formatting would produce an address net.Listen rejects.
	addr := net.JoinHostPort(s.host, strconv.Itoa(port))

	switch protocol {
	case "tcp":
		// If another process already holds the port, Listen fails with
		// "address already in use".
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		// We only needed to know whether the bind works, not to accept
		// connections, so the listener is closed right away.
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		// UDP is connectionless, so ListenPacket (returning a PacketConn)
		// is the equivalent probe.
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		// Unknown protocol: report unavailable rather than guess.
		return false
	}
}

// FindAvailablePort scans [startPort, endPort] (inclusive) and returns the
// first free port for the given protocol.
//
// The search is sequential, so repeated runs on the same machine pick the
// same port. That keeps the URL printed by "workshop serve --auto-port"
// stable between restarts.
//
// Returns an error if every port in the range is taken.
func (s *Scanner) FindAvailablePort(startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}

// SplitAddr parses a listen address ("127.0.0.1:8000", ":8000") into host
// and port.
func SplitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	p, err := strconv.Atoi(portStr)
	if err != nil || p < 1 || p > 65535 {
		return "", 0, fmt.Errorf("invalid port in listen address %q", addr)
	}
	return host, p, nil
}

// Resolve checks addr and returns an address that can be bound.
//
// If the requested port is free, addr is returned unchanged. Otherwise,
// when autoPort is true, the next free port within span ports above the
// requested one is used; when autoPort is false an error is returned.
//
// Example: with 127.0.0.1:8000 taken by a notebook server,
//
//	Resolve("127.0.0.1:8000", true, 100)  // "127.0.0.1:8001", nil
//	Resolve("127.0.0.1:8000", false, 100) // "", "port 8000 is already in use ..."
//
// There is an unavoidable gap between this check and the real bind; the
// caller still handles a failing net.Listen.
func Resolve(addr string, autoPort bool, span int) (string, error) {
	host, p, err := SplitAddr(addr)
	if err != nil {
		return "", err
	}

	s := NewScanner(host)
	if s.IsPortAvailable(p, "tcp") {
		return addr, nil
	}
	if !autoPort {
		return "", fmt.Errorf("port %d is already in use on %q", p, host)
	}

	// Clamp the search window to the valid port range.
	end := p + span
	if end > 65535 {
		end = 65535
	}
	free, err := s.FindAvailablePort(p+1, end, "tcp")
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(free)), nil
}
