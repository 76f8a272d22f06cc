// Package errs defines the pipeline's error taxonomy. Every stage failure
// surfaces as one of these types so callers can distinguish operator mistakes
// (ConfigError), collaborator failures (UpstreamError), bad data
// (ParseError), missing prerequisites (MissingAssetError) and child-process
// problems (TimeoutError, ProcessExitError) with errors.As.
package errs

import (
	"fmt"
	"time"
)

// ConfigError means a credential or required setting is missing. It is never
// retried and is surfaced verbatim to the operator.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

// UpstreamError means an external service call failed or returned a non
// success status.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Service, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

// ParseError means a response or file did not match the expected shape.
type ParseError struct {
	What   string
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return "parse " + e.What
	}
	return fmt.Sprintf("parse %s: %s", e.What, e.Detail)
}

// MissingAssetError means a prerequisite artifact is absent. RunFirst names
// the upstream stage that produces it, so the message tells the operator how
// to recover.
type MissingAssetError struct {
	Asset    string
	Path     string
	RunFirst string
}

func (e *MissingAssetError) Error() string {
	msg := fmt.Sprintf("missing %s at %s", e.Asset, e.Path)
	if e.RunFirst != "" {
		msg += fmt.Sprintf(" (run the %s stage first)", e.RunFirst)
	}
	return msg
}

// MissingStoryMetaError means a clip was submitted for story composition
// without story metadata attached.
type MissingStoryMetaError struct {
	ClipID string
}

func (e *MissingStoryMetaError) Error() string {
	return "clip " + e.ClipID + " has no story metadata"
}

// TimeoutError means a child process exceeded its duration budget and was
// forcibly terminated.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Budget)
}

// ProcessExitError means a child process returned non-zero. Tail holds a
// bounded slice of its error output for diagnosis.
type ProcessExitError struct {
	Cmd      string
	ExitCode int
	Tail     string
}

func (e *ProcessExitError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("%s exited with code %d", e.Cmd, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d:\n%s", e.Cmd, e.ExitCode, e.Tail)
}
