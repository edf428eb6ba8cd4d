// Package model defines the domain types and value objects for the
// serverless-workshop CLI.
//
// This package contains pure data structures with no external dependencies:
// setup step results, the sentiment endpoint's request/response shapes,
// and the health payload served by the local API.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
