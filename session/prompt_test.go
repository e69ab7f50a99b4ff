package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPrompt_ContainsAllActionSchemas(t *testing.T) {
	prompt := BuildSystemPrompt()

	for _, typ := range []string{
		"window.create",
		"window.close",
		"window.focus",
		"window.setContent",
		"toast.show",
		"notification.show",
	} {
		assert.Contains(t, prompt, "## "+typ)
	}
	assert.Contains(t, prompt, "```json")
}

func TestBuildSystemPrompt_Deterministic(t *testing.T) {
	assert.Equal(t, BuildSystemPrompt(), BuildSystemPrompt())
}

func TestBuildSystemPrompt_SchemasSortedByType(t *testing.T) {
	prompt := BuildSystemPrompt()
	toast := strings.Index(prompt, "## toast.show")
	window := strings.Index(prompt, "## window.create")
	notification := strings.Index(prompt, "## notification.show")

	assert.True(t, notification < toast)
	assert.True(t, toast < window)
}
