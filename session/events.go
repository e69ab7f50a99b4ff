package session

import "github.com/deskos/deskagent/osactions"

// Event is one typed message sent to the sink. EventType returns the wire
// tag used by relaying layers.
type Event interface {
	EventType() string
}

// ConnectionStatusEvent reports the active provider and session id.
type ConnectionStatusEvent struct {
	Status    string `json:"status"`
	Provider  string `json:"provider"`
	SessionID string `json:"sessionId,omitempty"`
}

func (ConnectionStatusEvent) EventType() string { return "CONNECTION_STATUS" }

// ThinkingEvent carries the accumulated thinking text.
type ThinkingEvent struct {
	Content string `json:"content"`
}

func (ThinkingEvent) EventType() string { return "AGENT_THINKING" }

// ActionsEvent carries newly extracted actions, in document order.
type ActionsEvent struct {
	Actions []osactions.Action `json:"actions"`
}

func (ActionsEvent) EventType() string { return "ACTIONS" }

// ResponseEvent carries the accumulated response text for the current
// turn. Complete marks the final chunk.
type ResponseEvent struct {
	Content  string `json:"content"`
	Complete bool   `json:"isComplete"`
}

func (ResponseEvent) EventType() string { return "AGENT_RESPONSE" }

// ErrorEvent reports a turn-terminating error.
type ErrorEvent struct {
	Message string `json:"error"`
}

func (ErrorEvent) EventType() string { return "ERROR" }

// Sink receives session events in order. Implementations relay them to
// whatever display layer is attached (terminal, socket, test capture).
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event) error

// Send implements Sink.
func (f SinkFunc) Send(e Event) error { return f(e) }
