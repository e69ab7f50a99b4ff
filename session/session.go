// Package session orchestrates one end-user conversation: it owns the
// active provider/client pair, drives the query→stream→forward loop, and
// handles interruption and provider hot-swap.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/deskos/deskagent/claude"
	"github.com/deskos/deskagent/codex"
	"github.com/deskos/deskagent/config"
	"github.com/deskos/deskagent/provider"
)

// ProviderSource supplies providers by identity and priority. It is the
// subset of the registry the session depends on.
type ProviderSource interface {
	Get(t provider.Type) (provider.Provider, error)
	CheckAvailability(ctx context.Context, t provider.Type) bool
	FirstAvailable(ctx context.Context, priority ...provider.Type) (provider.Provider, bool)
}

// Sentinel errors surfaced by the orchestrator.
var (
	ErrNoProvider          = errors.New("no AI provider available")
	ErrProviderUnavailable = errors.New("provider not available")
)

// maxThinkingTokens is the default thinking allowance requested from
// backends that support one.
const maxThinkingTokens = 32768

// Session owns exactly one active (Provider, Client) pair for one
// conversation.
type Session struct {
	reg      ProviderSource
	sink     Sink
	log      *slog.Logger
	provider provider.Provider
	client   provider.Client
	cfg      config.Config
	id       string
	running  atomic.Bool
	mu       sync.Mutex
}

// New creates a session. The sink must not be nil; the logger may be.
func New(reg ProviderSource, sink Sink, cfg config.Config, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		reg:  reg,
		sink: sink,
		cfg:  cfg,
		log:  log,
		id:   uuid.NewString(),
	}
}

// ID returns the local conversation id.
func (s *Session) ID() string { return s.id }

// Provider returns the active provider's identity, or "" before
// Initialize.
func (s *Session) Provider() provider.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return ""
	}
	return s.provider.Type()
}

// Initialize selects the first available provider by configured priority,
// connects a client, and reports the connection status. When no provider
// is available it emits one error event and returns ErrNoProvider.
func (s *Session) Initialize(ctx context.Context) error {
	p, ok := s.reg.FirstAvailable(ctx, s.cfg.Priority()...)
	if !ok {
		s.send(ErrorEvent{Message: "No AI provider available. Install the Claude CLI or Codex."})
		return ErrNoProvider
	}

	return s.connect(ctx, p)
}

// connect builds options for p, connects a fresh client, and installs it
// as the active pair.
func (s *Session) connect(ctx context.Context, p provider.Provider) error {
	opts := s.buildOptions(p)
	client := p.NewClient(opts)

	if err := client.Connect(ctx); err != nil {
		s.log.Error("provider connect failed", "provider", p.Type(), "error", err)
		s.send(ErrorEvent{Message: fmt.Sprintf("Failed to connect to provider: %v", err)})
		return err
	}

	s.mu.Lock()
	s.provider = p
	s.client = client
	s.mu.Unlock()

	s.log.Info("provider connected", "provider", p.Type(), "conversation", s.id)
	s.send(ConnectionStatusEvent{
		Status:    "connected",
		Provider:  string(p.Type()),
		SessionID: client.SessionID(),
	})
	return nil
}

// buildOptions translates generic options for p and layers per-provider
// configuration (binary override, receive timeout) on top.
func (s *Session) buildOptions(p provider.Provider) any {
	base := provider.ClientOptions{
		SystemPrompt:      BuildSystemPrompt(),
		Model:             s.modelFor(p.Type()),
		MaxThinkingTokens: maxThinkingTokens,
	}

	switch opts := p.BuildOptions(base).(type) {
	case claude.Options:
		opts.BinaryPath = s.cfg.Claude.Binary
		opts.ReceiveTimeout = s.cfg.Claude.ReceiveTimeout.Duration
		return opts
	case codex.Options:
		opts.BinaryPath = s.cfg.Codex.Binary
		opts.ApprovalPolicy = s.cfg.Codex.ApprovalPolicy
		opts.Sandbox = s.cfg.Codex.Sandbox
		opts.ReceiveTimeout = s.cfg.Codex.ReceiveTimeout.Duration
		return opts
	default:
		return opts
	}
}

func (s *Session) modelFor(t provider.Type) string {
	switch t {
	case provider.TypeClaude:
		return s.cfg.Claude.Model
	case provider.TypeCodex:
		return s.cfg.Codex.Model
	default:
		return ""
	}
}

// HandleMessage runs one turn: it queries the backend and drives the
// parser over the event stream, forwarding thinking updates, new action
// batches, response chunks, and errors until completion, error, or
// interruption. Each action is forwarded exactly once per turn even
// though the parser re-extracts the full set on every event.
func (s *Session) HandleMessage(ctx context.Context, content string) error {
	s.mu.Lock()
	p, client := s.provider, s.client
	s.mu.Unlock()

	if client == nil {
		return provider.ErrNotConnected
	}

	s.running.Store(true)
	defer s.running.Store(false)

	if err := client.Query(ctx, content); err != nil {
		s.log.Error("query failed", "provider", p.Type(), "error", err)
		s.send(ErrorEvent{Message: err.Error()})
		return err
	}

	parser := p.Parser()
	responseText := ""
	thinkingText := ""
	actionsSent := 0
	lastSessionID := ""

	for event := range client.ReceiveResponse(ctx) {
		if !s.running.Load() {
			break
		}

		parsed := parser.ParseMessage(event, responseText, thinkingText)

		if parsed.ThinkingText != thinkingText {
			s.send(ThinkingEvent{Content: parsed.ThinkingText})
		}
		responseText = parsed.ResponseText
		thinkingText = parsed.ThinkingText

		if len(parsed.Actions) > actionsSent {
			s.send(ActionsEvent{Actions: parsed.Actions[actionsSent:]})
			actionsSent = len(parsed.Actions)
		}

		s.send(ResponseEvent{Content: responseText, Complete: parsed.Complete})

		if parsed.Err != "" {
			s.send(ErrorEvent{Message: parsed.Err})
			break
		}

		if parsed.SessionID != "" && parsed.SessionID != lastSessionID {
			lastSessionID = parsed.SessionID
			s.send(ConnectionStatusEvent{
				Status:    "connected",
				Provider:  string(p.Type()),
				SessionID: parsed.SessionID,
			})
		}

		if parsed.Complete {
			break
		}
	}

	return nil
}

// Interrupt clears the running flag, stopping the forward loop at the
// next event, and signals the backend to stop generating.
func (s *Session) Interrupt(ctx context.Context) error {
	s.running.Store(false)

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	s.log.Debug("interrupting turn", "conversation", s.id)
	return client.Interrupt(ctx)
}

// SwitchProvider swaps the active pair to the requested identity. A
// failed availability check reports an error and leaves the current
// provider connected and usable.
func (s *Session) SwitchProvider(ctx context.Context, t provider.Type) error {
	if !s.reg.CheckAvailability(ctx, t) {
		s.send(ErrorEvent{Message: fmt.Sprintf("Provider %s is not available.", t)})
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, t)
	}

	s.mu.Lock()
	old := s.client
	s.mu.Unlock()

	if old != nil {
		if err := old.Disconnect(ctx); err != nil {
			s.log.Warn("disconnect failed during provider switch", "error", err)
		}
	}

	p, err := s.reg.Get(t)
	if err != nil {
		s.send(ErrorEvent{Message: err.Error()})
		return err
	}

	return s.connect(ctx, p)
}

// Cleanup disconnects the active client unconditionally. Safe when no
// client was ever connected.
func (s *Session) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.provider = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// send forwards one event to the sink, logging delivery failures.
func (s *Session) send(e Event) {
	if err := s.sink.Send(e); err != nil {
		s.log.Warn("sink delivery failed", "event", e.EventType(), "error", err)
	}
}
