package osactions

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Bounds positions a window on the desktop.
type Bounds struct {
	X int `json:"x" jsonschema:"description=Left edge in pixels"`
	Y int `json:"y" jsonschema:"description=Top edge in pixels"`
	W int `json:"w" jsonschema:"description=Width in pixels"`
	H int `json:"h" jsonschema:"description=Height in pixels"`
}

// Content is a window's renderable payload.
type Content struct {
	Data     any    `json:"data" jsonschema:"description=Renderer-specific payload"`
	Renderer string `json:"renderer" jsonschema:"required,enum=markdown,enum=table,enum=html,enum=text,description=How to render the data"`
}

// WindowCreate opens a new window.
type WindowCreate struct {
	Bounds   *Bounds  `json:"bounds,omitempty"`
	Content  *Content `json:"content,omitempty"`
	Type     string   `json:"type" jsonschema:"required,enum=window.create"`
	WindowID string   `json:"windowId" jsonschema:"required,description=Unique window identifier"`
	Title    string   `json:"title" jsonschema:"required"`
}

// WindowClose closes a window.
type WindowClose struct {
	Type     string `json:"type" jsonschema:"required,enum=window.close"`
	WindowID string `json:"windowId" jsonschema:"required"`
}

// WindowFocus brings a window to the front.
type WindowFocus struct {
	Type     string `json:"type" jsonschema:"required,enum=window.focus"`
	WindowID string `json:"windowId" jsonschema:"required"`
}

// WindowSetContent replaces a window's content.
type WindowSetContent struct {
	Content  *Content `json:"content" jsonschema:"required"`
	Type     string   `json:"type" jsonschema:"required,enum=window.setContent"`
	WindowID string   `json:"windowId" jsonschema:"required"`
}

// ToastShow displays a temporary message.
type ToastShow struct {
	Type    string `json:"type" jsonschema:"required,enum=toast.show"`
	ID      string `json:"id" jsonschema:"required"`
	Message string `json:"message" jsonschema:"required"`
	Variant string `json:"variant,omitempty" jsonschema:"enum=info,enum=success,enum=warning,enum=error"`
}

// NotificationShow displays a persistent notification.
type NotificationShow struct {
	Type    string `json:"type" jsonschema:"required,enum=notification.show"`
	ID      string `json:"id" jsonschema:"required"`
	Title   string `json:"title" jsonschema:"required"`
	Message string `json:"message" jsonschema:"required"`
}

// Schemas returns the JSON schema for every typed action payload, keyed by
// action type. The schemas are embedded in the system prompt so the agent
// emits well-formed blocks.
func Schemas() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"window.create":     schemaFor[WindowCreate](),
		"window.close":      schemaFor[WindowClose](),
		"window.focus":      schemaFor[WindowFocus](),
		"window.setContent": schemaFor[WindowSetContent](),
		"toast.show":        schemaFor[ToastShow](),
		"notification.show": schemaFor[NotificationShow](),
	}
}

// schemaFor reflects a JSON schema from a payload struct's tags.
func schemaFor[T any]() json.RawMessage {
	reflector := &jsonschema.Reflector{
		DoNotReference: true, // inline definitions instead of $ref
		ExpandedStruct: true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}
