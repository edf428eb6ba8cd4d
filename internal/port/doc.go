// Package port implements host port availability scanning for the
// serverless-workshop CLI.
//
// The Scanner asks the OS whether a port can be bound via net.Listen().
// Resolve builds on it for the serve command: it either confirms the
// requested listen address or, with --auto-port, walks upward to the
// next free port.
package port
