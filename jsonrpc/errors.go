package jsonrpc

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport lifecycle conditions.
var (
	ErrNotStarted      = errors.New("transport not started")
	ErrAlreadyStarted  = errors.New("transport already started")
	ErrTransportClosed = errors.New("transport closed")
	ErrRequestTimeout  = errors.New("request timed out")
)

// ProcessError represents a subprocess launch or pipe failure.
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
