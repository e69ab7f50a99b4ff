package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for common client conditions.
var (
	ErrUnknownProvider = errors.New("unknown provider type")
	ErrNotConnected    = errors.New("client not connected")
	ErrAlreadyClosed   = errors.New("client already closed")
)

// CLINotFoundError indicates the backend executable could not be resolved.
type CLINotFoundError struct {
	Tool string
	Hint string
}

func (e *CLINotFoundError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s CLI not found: %s", e.Tool, e.Hint)
	}
	return fmt.Sprintf("%s CLI not found", e.Tool)
}

// ProcessError represents a subprocess-level failure (spawn, pipes, exit).
type ProcessError struct {
	Cause   error
	Message string
}

func (e *ProcessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("process error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("process error: %s", e.Message)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}
