package runner

import (
	"context"
	"errors"
	"fmt"
)

// SpawnError indicates the interpreter could not be started
type SpawnError struct {
	Script      string
	Interpreter string
	Cause       error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s with %s: %v", e.Script, e.Interpreter, e.Cause)
}

func (e *SpawnError) Unwrap() error {
	return e.Cause
}

// ExitError indicates the script ran but did not finish cleanly
type ExitError struct {
	Script string
	Code   int
	Stderr string // last line written to stderr, if any
	Cause  error
}

func (e *ExitError) Error() string {
	if e.Interrupted() {
		return fmt.Sprintf("%s interrupted: %v", e.Script, e.Cause)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Script, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Script, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// Interrupted reports whether the process was stopped by cancellation or timeout
func (e *ExitError) Interrupted() bool {
	return errors.Is(e.Cause, context.Canceled) || errors.Is(e.Cause, context.DeadlineExceeded)
}

// UnknownScriptError indicates a script id outside the fixed set
type UnknownScriptError struct {
	ID string
}

func (e *UnknownScriptError) Error() string {
	return fmt.Sprintf("unknown script: %s", e.ID)
}
