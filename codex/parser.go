package codex

import (
	"fmt"

	"github.com/deskos/deskagent/osactions"
	"github.com/deskos/deskagent/provider"
)

// Parser converts Codex app-server notifications into unified parsed
// messages. It is stateless: ParseMessage is a pure function of its
// inputs.
type Parser struct{}

// ParseMessage parses a single notification. Dispatch is on the "method"
// discriminator; unrecognized methods pass the accumulated text through
// unchanged.
func (Parser) ParseMessage(event map[string]any, responseText, thinkingText string) provider.ParsedMessage {
	msg := provider.ParsedMessage{
		ResponseText: responseText,
		ThinkingText: thinkingText,
	}

	params, _ := event["params"].(map[string]any)
	msg.SessionID = getString(params, "thread_id")

	switch getString(event, "method") {
	case MethodChatText:
		msg.ResponseText += getString(params, "text")
		// Re-scan the whole accumulated response: action JSON can span
		// multiple streamed fragments.
		msg.Actions = osactions.Extract(msg.ResponseText)

	case MethodChatThinking:
		msg.ThinkingText += getString(params, "text")

	case MethodChatToolCall:
		input, _ := params["arguments"].(map[string]any)
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
			ID:    getString(params, "id"),
			Name:  getString(params, "name"),
			Input: input,
		})

	case MethodChatComplete:
		msg.Complete = true

	case MethodChatError:
		msg.Err = errorText(params["error"])
		msg.Complete = true
	}

	return msg
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
