// Package codex implements the Codex app-server provider. The server
// speaks JSON-RPC 2.0 over subprocess stdio: a chat/message notification
// starts a turn, and the server pushes chat/text, chat/thinking,
// chat/tool_call, chat/complete and chat/error notifications back.
package codex

import "time"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-5.2"

// DefaultReceiveTimeout bounds the wait for the next notification before
// the turn is closed out with a synthetic error event.
const DefaultReceiveTimeout = 60 * time.Second

// Notification methods pushed by the app-server, and the request/
// notification methods the client sends.
const (
	MethodChatMessage   = "chat/message"
	MethodChatCancel    = "chat/cancel"
	MethodChatText      = "chat/text"
	MethodChatThinking  = "chat/thinking"
	MethodChatToolCall  = "chat/tool_call"
	MethodChatComplete  = "chat/complete"
	MethodChatError     = "chat/error"
	MethodSessionResume = "session/resume"
)

// Options is the Codex-specific client configuration, produced from
// generic provider options by Provider.BuildOptions.
type Options struct {
	// SystemPrompt is sent with every chat/message notification.
	SystemPrompt string

	// Model selects the model flag.
	Model string

	// ThreadID is a conversation thread to resume.
	ThreadID string

	// WorkDir is the subprocess working directory.
	WorkDir string

	// ApprovalPolicy controls command approval (default "auto-edit").
	ApprovalPolicy string

	// Sandbox controls sandboxing (default "on").
	Sandbox string

	// BinaryPath overrides executable resolution.
	BinaryPath string

	// ReceiveTimeout bounds the wait between notifications.
	ReceiveTimeout time.Duration
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.ApprovalPolicy == "" {
		o.ApprovalPolicy = "auto-edit"
	}
	if o.Sandbox == "" {
		o.Sandbox = "on"
	}
	if o.ReceiveTimeout <= 0 {
		o.ReceiveTimeout = DefaultReceiveTimeout
	}
	return o
}
