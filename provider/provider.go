// Package provider defines the pluggable AI-backend abstraction: the
// provider identity set, the generic client options, the unified parsed
// stream message, and the Client/Provider/StreamParser interfaces each
// backend implements.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskos/deskagent/osactions"
)

// Type identifies a backend kind. The set is closed: adding a provider
// means implementing the interfaces below and registering its constructor
// in the registry.
type Type string

const (
	// TypeClaude is the Claude CLI backend (stream-json over stdio).
	TypeClaude Type = "claude"
	// TypeCodex is the Codex app-server backend (JSON-RPC over stdio).
	TypeCodex Type = "codex"
)

// Types lists all known provider types in priority order.
func Types() []Type {
	return []Type{TypeClaude, TypeCodex}
}

// ParseType normalizes a string into a known Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %v)", ErrUnknownProvider, s, Types())
}

// ClientOptions is the provider-agnostic connection configuration.
// It is translated into a provider-specific options value by
// Provider.BuildOptions and never mutated afterwards.
type ClientOptions struct {
	Tools             map[string]any
	SystemPrompt      string
	Model             string
	SessionID         string
	WorkingDir        string
	MaxThinkingTokens int
}

// ToolCall is a normalized tool invocation extracted from a stream.
type ToolCall struct {
	Input map[string]any `json:"input"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
}

// ParsedMessage is the unified parser output from any provider's stream.
// ResponseText and ThinkingText carry the running accumulation: the parser
// receives the text accumulated so far and returns it extended, so both
// fields are monotonically non-decreasing within one query.
type ParsedMessage struct {
	ResponseText string
	ThinkingText string
	SessionID    string
	Err          string
	Actions      []osactions.Action
	ToolCalls    []ToolCall
	Complete     bool
}

// StreamParser converts one raw provider event into a ParsedMessage.
//
// ParseMessage must be a pure function of its three inputs so callers can
// replay or test it deterministically. Unrecognized events pass the text
// through unchanged, emit no actions, and are not errors.
type StreamParser interface {
	ParseMessage(event map[string]any, responseText, thinkingText string) ParsedMessage
}

// Client manages one live subprocess session with a backend.
type Client interface {
	// Connect resolves the backend executable and launches it.
	// Calling Connect on an already-connected client is a no-op.
	Connect(ctx context.Context) error

	// Disconnect terminates the subprocess (graceful, then forced) and
	// is safe to call when not connected.
	Disconnect(ctx context.Context) error

	// Query sends a user message. It fails with ErrNotConnected if the
	// client is not connected.
	Query(ctx context.Context, message string) error

	// ReceiveResponse returns a lazy, finite sequence of raw events for
	// the current query only. The channel closes when the provider
	// signals completion or when the receive timeout elapses, in which
	// case a synthetic error event is yielded first so the parser can
	// close out the turn. The sequence is not restartable.
	ReceiveResponse(ctx context.Context) <-chan map[string]any

	// Interrupt best-effort signals the backend to stop generating.
	// It never fails if the backend has already exited.
	Interrupt(ctx context.Context) error

	// SessionID returns the backend-assigned session id, or "" until
	// one has been observed on the stream.
	SessionID() string
}

// Provider binds one Type to a client constructor, an option translation
// function, a stateless parser, and an availability probe.
type Provider interface {
	// Type returns this provider's identity tag.
	Type() Type

	// NewClient creates a client from provider-specific options, as
	// produced by BuildOptions.
	NewClient(opts any) Client

	// BuildOptions translates generic options into this provider's own
	// option type. It is a pure function.
	BuildOptions(base ClientOptions) any

	// Parser returns the stream parser singleton for this provider.
	Parser() StreamParser

	// CheckAvailability reports whether the backend can be used right
	// now (executable resolvable and, where applicable, authenticated).
	// It never panics and never returns an error: every probe failure
	// folds to false.
	CheckAvailability(ctx context.Context) bool
}
