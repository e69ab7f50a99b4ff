package session

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/deskos/deskagent/osactions"
)

// promptPreamble instructs the agent how to drive the desktop.
const promptPreamble = `You are a desktop agent controlling a web-based OS interface.

You control the UI by emitting OS actions as fenced JSON code blocks. Each
action is a single JSON object with a "type" field. The available action
types and their JSON schemas are listed below.

Guidelines:
1. Create windows to display information, results, or interactive content.
2. Use the renderer appropriate for the content (markdown, table, html, text).
3. Keep window IDs consistent when updating existing windows.
4. Use toasts for quick feedback and notifications for persistent info.
`

// BuildSystemPrompt assembles the system prompt from the preamble and the
// generated schema for every typed action payload, so the agent emits
// blocks the extractor will accept.
func BuildSystemPrompt() string {
	schemas := osactions.Schemas()

	types := make([]string, 0, len(schemas))
	for t := range schemas {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	b.WriteString(promptPreamble)
	for _, t := range types {
		b.WriteString("\n## ")
		b.WriteString(t)
		b.WriteString("\n```json\n")
		b.WriteString(indentJSON(schemas[t]))
		b.WriteString("\n```\n")
	}
	return b.String()
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
