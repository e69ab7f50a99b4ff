package claude

import (
	"context"
	"os/exec"
	"time"

	"github.com/deskos/deskagent/provider"
	"github.com/deskos/deskagent/toolpath"
)

// probeTimeout bounds the availability-check subprocess.
const probeTimeout = 10 * time.Second

// Provider binds the Claude client, option translation, parser, and
// availability probe under the claude identity.
type Provider struct {
	parser Parser
}

// NewProvider creates the Claude provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Type returns the claude identity tag.
func (p *Provider) Type() provider.Type {
	return provider.TypeClaude
}

// NewClient creates a client from Options, as produced by BuildOptions.
func (p *Provider) NewClient(opts any) provider.Client {
	o, _ := opts.(Options)
	return NewClient(o)
}

// BuildOptions translates generic options into Claude options.
func (p *Provider) BuildOptions(base provider.ClientOptions) any {
	return Options{
		SystemPrompt: base.SystemPrompt,
		Model:        base.Model,
		Resume:       base.SessionID,
		WorkDir:      base.WorkingDir,
	}
}

// Parser returns the stateless stream parser.
func (p *Provider) Parser() provider.StreamParser {
	return p.parser
}

// CheckAvailability reports whether the Claude CLI is installed and
// responsive. Any probe failure folds to false.
func (p *Provider) CheckAvailability(ctx context.Context) bool {
	path, ok := toolpath.Resolve("claude")
	if !ok {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, path, "--version").Output()
	return err == nil && len(out) > 0
}

var _ provider.Provider = (*Provider)(nil)
