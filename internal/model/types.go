// Package model defines the domain types for the serverless-workshop CLI.
//
// These types are shared between the setup workflow, the diagnostics
// command, and the sentiment API (server and client sides). They carry
// JSON tags because most of them are rendered with --json or sent over HTTP.
package model

import (
	"fmt"
)

// StepStatus is the outcome of a single setup or doctor check.
type StepStatus string

const (
	// StepPass means the check succeeded.
	StepPass StepStatus = "pass"

	// StepWarn means the check found something worth reporting but
	// the workflow can continue (e.g., the optional .env.local is absent).
	StepWarn StepStatus = "warn"

	// StepFail means the check failed. In the setup workflow this aborts
	// the run and every later step is reported as skipped.
	StepFail StepStatus = "fail"

	// StepSkipped means the check was never attempted because an earlier
	// step failed.
	StepSkipped StepStatus = "skipped"
)

// String returns the string representation of StepStatus.
func (s StepStatus) String() string {
	return string(s)
}

// IsValid checks whether the StepStatus value is one of the predefined states.
func (s StepStatus) IsValid() bool {
	switch s {
	case StepPass, StepWarn, StepFail, StepSkipped:
		return true
	default:
		return false
	}
}

// StepResult records what happened during one check.
type StepResult struct {
	// Name is the short step identifier (e.g., "install", "authenticate").
	Name string `json:"name"`

	// Title is the human-readable step heading printed during setup.
	Title string `json:"title"`

	// Status is the outcome of the step.
	Status StepStatus `json:"status"`

	// Message is the one-line summary shown to the learner.
	Message string `json:"message"`

	// Remediation tells the learner what to do when the step failed.
	Remediation string `json:"remediation,omitempty"`

	// Detail carries the underlying error text or command output, if any.
	Detail string `json:"detail,omitempty"`
}

// Failed reports whether the step failed.
func (r StepResult) Failed() bool {
	return r.Status == StepFail
}

// FirstFailure returns the first failed step in results, or nil.
func FirstFailure(results []StepResult) *StepResult {
	for i := range results {
		if results[i].Failed() {
			return &results[i]
		}
	}
	return nil
}

// Sentiment labels returned by the API.
const (
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
	LabelPositive = "Positive"
)

// Result status values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// AnalyzeRequest is the body of POST /sentiment.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// BatchRequest is the body of POST /sentiment/batch.
type BatchRequest struct {
	Texts []string `json:"texts"`
}

// Result is a single sentiment analysis outcome.
//
// Successful results carry Label, Score, Confidence and Emoji. Failed
// results carry Error and Status "error"; Text is echoed in both cases
// when it was supplied. Score is a pointer so a genuine 0 is still
// encoded while failed results omit it.
type Result struct {
	Text       string   `json:"text,omitempty"`
	Label      string   `json:"label,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Emoji      string   `json:"emoji,omitempty"`
	Status     string   `json:"status"`
	Error      string   `json:"error,omitempty"`
}

// OK reports whether the result is a successful analysis.
func (r Result) OK() bool {
	return r.Status == ResultSuccess
}

// String renders the result the way the workshop prints it,
// e.g. "Positive 😊 (97.3%)".
func (r Result) String() string {
	if !r.OK() {
		return "error: " + r.Error
	}
	return fmt.Sprintf("%s %s (%s)", r.Label, r.Emoji, r.Confidence)
}

// Health is the static payload of GET /health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Message string `json:"message"`
}

// ExitCode defines CLI exit codes. Every failure of the setup workflow
// maps to ExitGeneralError; the remaining codes are used by the other
// commands so scripts can tell failures apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error, including any
	// failed setup step.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates bad arguments, flags or input files.
	ExitInvalidInput ExitCode = 2

	// ExitPlatformUnavailable indicates the platform CLI is missing or
	// not authenticated.
	ExitPlatformUnavailable ExitCode = 3

	// ExitPortUnavailable indicates the local API could not bind its port.
	ExitPortUnavailable ExitCode = 4

	// ExitDeployFailed indicates the platform rejected a deployment.
	ExitDeployFailed ExitCode = 5

	// ExitEndpointUnreachable indicates a deployed endpoint did not answer
	// or answered with an unexpected status.
	ExitEndpointUnreachable ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
