// Package osactions extracts structured UI commands ("OS actions") that an
// agent embeds in its free-form output as fenced JSON blocks, and defines
// the typed action payloads whose schemas are advertised to the agent.
package osactions

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Action is one extracted UI command. The only guaranteed field is "type",
// a string in one of the allowed namespaces; payload shape is not validated.
type Action map[string]any

// Namespace prefixes an action's type must carry to be extracted.
var Namespaces = []string{"window.", "notification.", "toast."}

// actionPattern matches a fenced code block (``` or ```json) whose body is
// a JSON object mentioning a namespaced "type" key. The body may span
// multiple lines but never contains a backtick.
var actionPattern = regexp.MustCompile(
	"```(?:json)?\\s*\\n(\\{[^`]*\"type\"\\s*:\\s*\"(?:window|notification|toast)[^`]*\\})\\s*\\n```")

// Extract returns every well-formed action block in text, in document
// order. Blocks that fail to parse as JSON, are not objects, or whose
// "type" does not match a namespace are skipped silently: agent output is
// free text that only sometimes contains machine-actionable JSON, so a
// failed match degrades to "no action here", never to an error.
func Extract(text string) []Action {
	var actions []Action
	for _, match := range actionPattern.FindAllStringSubmatch(text, -1) {
		var action Action
		if err := json.Unmarshal([]byte(match[1]), &action); err != nil {
			continue
		}
		if matchesNamespace(action) {
			actions = append(actions, action)
		}
	}
	return actions
}

// Type returns the action's type tag, or "" when absent or not a string.
func (a Action) Type() string {
	t, _ := a["type"].(string)
	return t
}

func matchesNamespace(a Action) bool {
	t := a.Type()
	if t == "" {
		return false
	}
	for _, ns := range Namespaces {
		if strings.HasPrefix(t, ns) {
			return true
		}
	}
	return false
}
