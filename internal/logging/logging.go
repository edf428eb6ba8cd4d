// Package logging provides the CLI's diagnostic logger.
//
// Diagnostics go to stderr through charmbracelet/log so they never mix
// with command output on stdout (which may be JSON). The default level
// only shows warnings and errors; --verbose lowers it to debug.
//
//	logger := logging.New(os.Stderr, verbose)
//	logger.Debug("running command", "cmd", "modal app list")
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	global = New(os.Stderr, false)
)

// New creates a logger writing to w. When verbose is true the level is
// debug and timestamps are included.
func New(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		TimeFormat:      time.TimeOnly,
		Prefix:          "workshop",
	})
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// Default returns the process-wide logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Get returns a child of the process-wide logger tagged with component.
func Get(component string) *log.Logger {
	return Default().With("component", component)
}
