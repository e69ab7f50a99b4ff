package claude

import (
	"fmt"

	"github.com/deskos/deskagent/osactions"
	"github.com/deskos/deskagent/provider"
)

// Parser converts Claude stream-json events into unified parsed messages.
// It is stateless: ParseMessage is a pure function of its inputs.
type Parser struct{}

// ParseMessage parses a single stream event. Dispatch is on the event's
// "type" discriminator; unrecognized types pass the accumulated text
// through unchanged.
func (Parser) ParseMessage(event map[string]any, responseText, thinkingText string) provider.ParsedMessage {
	msg := provider.ParsedMessage{
		ResponseText: responseText,
		ThinkingText: thinkingText,
		SessionID:    getString(event, "session_id"),
	}

	switch getString(event, "type") {
	case "system":
		// Session id already copied through above.

	case "assistant":
		switch content := event["content"].(type) {
		case string:
			msg.ResponseText += content
		case []any:
			for _, raw := range content {
				block, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				switch getString(block, "type") {
				case "text":
					msg.ResponseText += getString(block, "text")
				case "tool_use":
					msg.ToolCalls = append(msg.ToolCalls, toolCallFrom(block))
				}
			}
		}
		// Action JSON can span multiple streamed fragments, so the whole
		// accumulated response is re-scanned, not just the new text.
		msg.Actions = osactions.Extract(msg.ResponseText)

	case "thinking":
		if content, ok := event["content"].(string); ok {
			msg.ThinkingText += content
		}

	case "tool_use":
		msg.ToolCalls = append(msg.ToolCalls, toolCallFrom(event))

	case "result":
		msg.Complete = true

	case "error":
		msg.Err = errorText(event["error"])
		msg.Complete = true
	}

	return msg
}

func toolCallFrom(block map[string]any) provider.ToolCall {
	input, _ := block["input"].(map[string]any)
	return provider.ToolCall{
		ID:    getString(block, "id"),
		Name:  getString(block, "name"),
		Input: input,
	}
}

func errorText(v any) string {
	switch err := v.(type) {
	case nil:
		return "Unknown error"
	case string:
		return err
	default:
		return fmt.Sprintf("%v", err)
	}
}

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

var _ provider.StreamParser = Parser{}
