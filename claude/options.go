// Package claude implements the Claude CLI provider. The CLI is spawned
// as a subprocess in stream-json mode: user messages go in as single
// lines on stdin, newline-delimited JSON events come back on stdout, and
// SIGINT aborts generation.
package claude

import "time"

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultReceiveTimeout bounds the wait for the next stream event before
// the turn is closed out with a synthetic error event.
const DefaultReceiveTimeout = 60 * time.Second

// systemPromptEnv carries the system prompt to the CLI.
const systemPromptEnv = "CLAUDE_SYSTEM_PROMPT"

// Options is the Claude-specific client configuration, produced from
// generic provider options by Provider.BuildOptions.
type Options struct {
	// SystemPrompt is passed to the CLI via the environment.
	SystemPrompt string

	// Model selects the model flag.
	Model string

	// Resume is a session id to resume instead of starting fresh.
	Resume string

	// WorkDir is the subprocess working directory.
	WorkDir string

	// BinaryPath overrides executable resolution (tests, custom installs).
	BinaryPath string

	// ReceiveTimeout bounds the wait between stream events.
	ReceiveTimeout time.Duration
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.ReceiveTimeout <= 0 {
		o.ReceiveTimeout = DefaultReceiveTimeout
	}
	return o
}
