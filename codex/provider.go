package codex

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/deskos/deskagent/provider"
	"github.com/deskos/deskagent/toolpath"
)

// probeTimeout bounds the availability-check subprocess.
const probeTimeout = 10 * time.Second

// Provider binds the Codex client, option translation, parser, and
// availability probe under the codex identity.
type Provider struct {
	parser Parser
}

// NewProvider creates the Codex provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Type returns the codex identity tag.
func (p *Provider) Type() provider.Type {
	return provider.TypeCodex
}

// NewClient creates a client from Options, as produced by BuildOptions.
func (p *Provider) NewClient(opts any) provider.Client {
	o, _ := opts.(Options)
	return NewClient(o)
}

// BuildOptions translates generic options into Codex options.
func (p *Provider) BuildOptions(base provider.ClientOptions) any {
	return Options{
		SystemPrompt: base.SystemPrompt,
		Model:        base.Model,
		ThreadID:     base.SessionID,
		WorkDir:      base.WorkingDir,
	}
}

// Parser returns the stateless stream parser.
func (p *Provider) Parser() provider.StreamParser {
	return p.parser
}

// CheckAvailability reports whether the Codex CLI is installed and logged
// in. Any probe failure folds to false.
func (p *Provider) CheckAvailability(ctx context.Context) bool {
	path, ok := toolpath.Resolve("codex")
	if !ok {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, path, "login", "status").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), "logged in")
}

var _ provider.Provider = (*Provider)(nil)
