package codex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notification(method string, params map[string]any) map[string]any {
	return map[string]any{"method": method, "params": params}
}

func TestParseMessage_TextAccumulates(t *testing.T) {
	msg := Parser{}.ParseMessage(notification(MethodChatText, map[string]any{
		"text":      "Hello, ",
		"thread_id": "thread-1",
	}), "", "")
	assert.Equal(t, "Hello, ", msg.ResponseText)
	assert.Equal(t, "thread-1", msg.SessionID)

	msg = Parser{}.ParseMessage(notification(MethodChatText, map[string]any{
		"text": "world.",
	}), msg.ResponseText, "")
	assert.Equal(t, "Hello, world.", msg.ResponseText)
}

func TestParseMessage_ActionSpanningFragments(t *testing.T) {
	first := notification(MethodChatText, map[string]any{
		"text": "```json\n{\"type\": \"window.create\", ",
	})
	second := notification(MethodChatText, map[string]any{
		"text": "\"title\": \"Notes\"}\n```",
	})

	msg := Parser{}.ParseMessage(first, "", "")
	assert.Empty(t, msg.Actions)

	msg = Parser{}.ParseMessage(second, msg.ResponseText, "")
	require.Len(t, msg.Actions, 1)
	assert.Equal(t, "window.create", msg.Actions[0].Type())
}

func TestParseMessage_Thinking(t *testing.T) {
	msg := Parser{}.ParseMessage(notification(MethodChatThinking, map[string]any{
		"text": "planning",
	}), "answer so far", "")
	assert.Equal(t, "planning", msg.ThinkingText)
	assert.Equal(t, "answer so far", msg.ResponseText)
}

func TestParseMessage_ToolCall(t *testing.T) {
	msg := Parser{}.ParseMessage(notification(MethodChatToolCall, map[string]any{
		"id":        "call-1",
		"name":      "shell",
		"arguments": map[string]any{"command": "ls"},
	}), "", "")

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call-1", msg.ToolCalls[0].ID)
	assert.Equal(t, "shell", msg.ToolCalls[0].Name)
	assert.Equal(t, "ls", msg.ToolCalls[0].Input["command"])
}

func TestParseMessage_Complete(t *testing.T) {
	msg := Parser{}.ParseMessage(notification(MethodChatComplete, map[string]any{
		"thread_id": "thread-2",
	}), "done", "")
	assert.True(t, msg.Complete)
	assert.Empty(t, msg.Err)
	assert.Equal(t, "thread-2", msg.SessionID)
}

func TestParseMessage_Error(t *testing.T) {
	msg := Parser{}.ParseMessage(notification(MethodChatError, map[string]any{
		"error": "quota exceeded",
	}), "", "")
	assert.True(t, msg.Complete)
	assert.Equal(t, "quota exceeded", msg.Err)

	msg = Parser{}.ParseMessage(notification(MethodChatError, nil), "", "")
	assert.True(t, msg.Complete)
	assert.Equal(t, "Unknown error", msg.Err)
}

func TestParseMessage_UnknownMethodPassesTextThrough(t *testing.T) {
	msg := Parser{}.ParseMessage(notification("session/heartbeat", nil), "kept", "thoughts")
	assert.Equal(t, "kept", msg.ResponseText)
	assert.Equal(t, "thoughts", msg.ThinkingText)
	assert.False(t, msg.Complete)
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultModel, opts.Model)
	assert.Equal(t, "auto-edit", opts.ApprovalPolicy)
	assert.Equal(t, "on", opts.Sandbox)
	assert.Equal(t, DefaultReceiveTimeout, opts.ReceiveTimeout)

	opts = Options{Model: "gpt-5.2-mini", Sandbox: "off"}.withDefaults()
	assert.Equal(t, "gpt-5.2-mini", opts.Model)
	assert.Equal(t, "off", opts.Sandbox)
}
