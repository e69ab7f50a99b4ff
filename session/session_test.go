package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskos/deskagent/claude"
	"github.com/deskos/deskagent/config"
	"github.com/deskos/deskagent/provider"
)

// captureSink records every event it receives.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Send(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *captureSink) ofType(tag string) []Event {
	var out []Event
	for _, e := range s.all() {
		if e.EventType() == tag {
			out = append(out, e)
		}
	}
	return out
}

// fakeClient replays a scripted event stream.
type fakeClient struct {
	events       []map[string]any
	queries      []string
	sessionID    string
	connectErr   error
	interrupted  bool
	disconnected bool
}

func (c *fakeClient) Connect(ctx context.Context) error { return c.connectErr }
func (c *fakeClient) Disconnect(ctx context.Context) error {
	c.disconnected = true
	return nil
}
func (c *fakeClient) Query(ctx context.Context, message string) error {
	c.queries = append(c.queries, message)
	return nil
}
func (c *fakeClient) ReceiveResponse(ctx context.Context) <-chan map[string]any {
	ch := make(chan map[string]any, len(c.events))
	for _, e := range c.events {
		ch <- e
	}
	close(ch)
	return ch
}
func (c *fakeClient) Interrupt(ctx context.Context) error {
	c.interrupted = true
	return nil
}
func (c *fakeClient) SessionID() string { return c.sessionID }

// fakeBackend pairs a provider identity with one canned client. The
// stream parser is the real Claude one so scripted events use its shape.
type fakeBackend struct {
	typ       provider.Type
	client    *fakeClient
	available bool
}

func (b *fakeBackend) Type() provider.Type                          { return b.typ }
func (b *fakeBackend) NewClient(opts any) provider.Client           { return b.client }
func (b *fakeBackend) BuildOptions(base provider.ClientOptions) any { return base }
func (b *fakeBackend) Parser() provider.StreamParser                { return claude.Parser{} }
func (b *fakeBackend) CheckAvailability(ctx context.Context) bool   { return b.available }

// fakeSource serves fakeBackends by type.
type fakeSource struct {
	backends map[provider.Type]*fakeBackend
}

func (s *fakeSource) Get(t provider.Type) (provider.Provider, error) {
	b, ok := s.backends[t]
	if !ok {
		return nil, provider.ErrUnknownProvider
	}
	return b, nil
}

func (s *fakeSource) CheckAvailability(ctx context.Context, t provider.Type) bool {
	b, ok := s.backends[t]
	return ok && b.available
}

func (s *fakeSource) FirstAvailable(ctx context.Context, priority ...provider.Type) (provider.Provider, bool) {
	if len(priority) == 0 {
		priority = provider.Types()
	}
	for _, t := range priority {
		if s.CheckAvailability(ctx, t) {
			return s.backends[t], true
		}
	}
	return nil, false
}

func newTestSession(t *testing.T, src ProviderSource) (*Session, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	return New(src, sink, config.Default(), nil), sink
}

func TestInitialize_NoProviderAvailable(t *testing.T) {
	sess, sink := newTestSession(t, &fakeSource{backends: map[provider.Type]*fakeBackend{}})

	err := sess.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
	require.Len(t, sink.ofType("ERROR"), 1)
	assert.Empty(t, sink.ofType("CONNECTION_STATUS"))
}

func TestInitialize_ConnectsFirstByPriority(t *testing.T) {
	codexClient := &fakeClient{sessionID: "thread-1"}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: false, client: &fakeClient{}},
		provider.TypeCodex:  {typ: provider.TypeCodex, available: true, client: codexClient},
	}}
	sess, sink := newTestSession(t, src)

	require.NoError(t, sess.Initialize(context.Background()))
	assert.Equal(t, provider.TypeCodex, sess.Provider())

	statuses := sink.ofType("CONNECTION_STATUS")
	require.Len(t, statuses, 1)
	status := statuses[0].(ConnectionStatusEvent)
	assert.Equal(t, "connected", status.Status)
	assert.Equal(t, "codex", status.Provider)
	assert.Equal(t, "thread-1", status.SessionID)
}

func TestHandleMessage_NotConnected(t *testing.T) {
	sess, _ := newTestSession(t, &fakeSource{backends: map[provider.Type]*fakeBackend{}})
	err := sess.HandleMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, provider.ErrNotConnected)
}

func TestHandleMessage_ForwardsEachActionOnce(t *testing.T) {
	client := &fakeClient{events: []map[string]any{
		{"type": "system", "session_id": "sess-1"},
		{"type": "assistant", "content": "Opening a toast.\n```json\n{\"type\": \"toast.show\", "},
		{"type": "assistant", "content": "\"message\": \"hi\"}\n```\n"},
		{"type": "assistant", "content": "All done."},
		{"type": "result", "session_id": "sess-1"},
	}}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
	}}
	sess, sink := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))

	require.NoError(t, sess.HandleMessage(context.Background(), "show a toast"))
	assert.Equal(t, []string{"show a toast"}, client.queries)

	// The action completes on the second fragment; later events re-extract
	// the same action but must not re-forward it.
	actionEvents := sink.ofType("ACTIONS")
	require.Len(t, actionEvents, 1)
	actions := actionEvents[0].(ActionsEvent).Actions
	require.Len(t, actions, 1)
	assert.Equal(t, "toast.show", actions[0].Type())

	responses := sink.ofType("AGENT_RESPONSE")
	require.NotEmpty(t, responses)
	last := responses[len(responses)-1].(ResponseEvent)
	assert.True(t, last.Complete)
	assert.Contains(t, last.Content, "All done.")
}

func TestHandleMessage_ThinkingForwardedOnGrowthOnly(t *testing.T) {
	client := &fakeClient{events: []map[string]any{
		{"type": "thinking", "content": "hmm"},
		{"type": "assistant", "content": "answer"},
		{"type": "thinking", "content": " more"},
		{"type": "result"},
	}}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
	}}
	sess, sink := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))
	require.NoError(t, sess.HandleMessage(context.Background(), "think"))

	thinking := sink.ofType("AGENT_THINKING")
	require.Len(t, thinking, 2)
	assert.Equal(t, "hmm", thinking[0].(ThinkingEvent).Content)
	assert.Equal(t, "hmm more", thinking[1].(ThinkingEvent).Content)
}

func TestHandleMessage_ErrorStopsTurn(t *testing.T) {
	client := &fakeClient{events: []map[string]any{
		{"type": "assistant", "content": "partial"},
		{"type": "error", "error": "backend crashed"},
		{"type": "assistant", "content": " never forwarded"},
	}}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
	}}
	sess, sink := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))
	require.NoError(t, sess.HandleMessage(context.Background(), "boom"))

	errs := sink.ofType("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "backend crashed", errs[0].(ErrorEvent).Message)

	responses := sink.ofType("AGENT_RESPONSE")
	last := responses[len(responses)-1].(ResponseEvent)
	assert.NotContains(t, last.Content, "never forwarded")
}

func TestInterrupt_ForwardsToClient(t *testing.T) {
	client := &fakeClient{}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
	}}
	sess, _ := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))

	require.NoError(t, sess.Interrupt(context.Background()))
	assert.True(t, client.interrupted)
}

func TestInterrupt_WithoutClient(t *testing.T) {
	sess, _ := newTestSession(t, &fakeSource{backends: map[provider.Type]*fakeBackend{}})
	assert.NoError(t, sess.Interrupt(context.Background()))
}

func TestSwitchProvider_UnavailableLeavesCurrentUntouched(t *testing.T) {
	client := &fakeClient{}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
		provider.TypeCodex:  {typ: provider.TypeCodex, available: false, client: &fakeClient{}},
	}}
	sess, sink := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))

	err := sess.SwitchProvider(context.Background(), provider.TypeCodex)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, provider.TypeClaude, sess.Provider())
	assert.False(t, client.disconnected)
	require.Len(t, sink.ofType("ERROR"), 1)
}

func TestSwitchProvider_DisconnectsOldAndConnectsNew(t *testing.T) {
	oldClient := &fakeClient{}
	newClient := &fakeClient{sessionID: "thread-9"}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: oldClient},
		provider.TypeCodex:  {typ: provider.TypeCodex, available: true, client: newClient},
	}}
	sess, sink := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))
	require.Equal(t, provider.TypeClaude, sess.Provider())

	require.NoError(t, sess.SwitchProvider(context.Background(), provider.TypeCodex))
	assert.Equal(t, provider.TypeCodex, sess.Provider())
	assert.True(t, oldClient.disconnected)

	statuses := sink.ofType("CONNECTION_STATUS")
	require.Len(t, statuses, 2)
	assert.Equal(t, "codex", statuses[1].(ConnectionStatusEvent).Provider)
}

func TestCleanup_DisconnectsAndTolerantOfAbsentClient(t *testing.T) {
	client := &fakeClient{}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
	}}
	sess, _ := newTestSession(t, src)
	require.NoError(t, sess.Initialize(context.Background()))

	require.NoError(t, sess.Cleanup(context.Background()))
	assert.True(t, client.disconnected)
	assert.Equal(t, provider.Type(""), sess.Provider())

	// Second cleanup has no client left.
	assert.NoError(t, sess.Cleanup(context.Background()))
}

func TestNew_AssignsConversationID(t *testing.T) {
	a, _ := newTestSession(t, &fakeSource{})
	b, _ := newTestSession(t, &fakeSource{})
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSinkFailureDoesNotAbortTurn(t *testing.T) {
	client := &fakeClient{events: []map[string]any{
		{"type": "assistant", "content": "hello"},
		{"type": "result"},
	}}
	src := &fakeSource{backends: map[provider.Type]*fakeBackend{
		provider.TypeClaude: {typ: provider.TypeClaude, available: true, client: client},
	}}
	failing := SinkFunc(func(Event) error { return errors.New("sink broken") })
	sess := New(src, failing, config.Default(), nil)

	require.NoError(t, sess.Initialize(context.Background()))
	assert.NoError(t, sess.HandleMessage(context.Background(), "hi"))
}
