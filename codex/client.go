package codex

import (
	"context"
	"sync"
	"time"

	"github.com/deskos/deskagent/jsonrpc"
	"github.com/deskos/deskagent/provider"
	"github.com/deskos/deskagent/toolpath"
)

// notificationQueueSize buffers server notifications between the transport
// read loop and ReceiveResponse.
const notificationQueueSize = 100

// resumeTimeout bounds the session/resume request during Connect.
const resumeTimeout = 30 * time.Second

// Client drives one Codex app-server subprocess over JSON-RPC.
type Client struct {
	opts      Options
	transport *jsonrpc.Transport
	queue     chan map[string]any
	done      chan struct{}
	sessionID string
	mu        sync.Mutex
	connected bool
}

// NewClient creates a client from Codex-specific options.
func NewClient(opts Options) *Client {
	return &Client{
		opts:  opts.withDefaults(),
		queue: make(chan map[string]any, notificationQueueSize),
		done:  make(chan struct{}),
	}
}

// handleNotification queues a pushed message, preserving server order.
// If the queue is full the notification is dropped rather than stalling
// the transport read loop.
func (c *Client) handleNotification(msg map[string]any) {
	select {
	case c.queue <- msg:
	case <-c.done:
	default:
	}
}

// Connect resolves the app-server executable, starts the transport, and
// resumes the configured thread if any. Connecting twice is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}

	binary := c.opts.BinaryPath
	if binary == "" {
		path, ok := toolpath.Resolve("codex")
		if !ok {
			c.mu.Unlock()
			return &provider.CLINotFoundError{Tool: "codex", Hint: "install the Codex CLI and run codex login"}
		}
		binary = path
	}

	command := []string{
		binary,
		"app-server",
		"--model", c.opts.Model,
		"--approval-policy", c.opts.ApprovalPolicy,
		"--sandbox", c.opts.Sandbox,
	}

	c.transport = jsonrpc.New(command, c.handleNotification,
		jsonrpc.WithWorkDir(c.opts.WorkDir))

	if err := c.transport.Start(ctx); err != nil {
		c.transport = nil
		c.mu.Unlock()
		return err
	}

	c.connected = true
	transport := c.transport
	c.mu.Unlock()

	if c.opts.ThreadID != "" {
		// Best effort: a failed resume starts a fresh thread.
		_, _ = transport.SendRequest(ctx, MethodSessionResume,
			map[string]any{"thread_id": c.opts.ThreadID}, resumeTimeout)
	}

	return nil
}

// Query sends the user message as a chat/message notification.
func (c *Client) Query(ctx context.Context, message string) error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()

	if transport == nil || !transport.Healthy() {
		return provider.ErrNotConnected
	}

	return transport.SendNotification(MethodChatMessage, map[string]any{
		"content":       message,
		"system_prompt": c.opts.SystemPrompt,
	})
}

// ReceiveResponse yields server notifications for the current query. The
// channel closes after chat/complete or chat/error, or after
// ReceiveTimeout passes with no notifications, in which case a synthetic
// chat/error event is yielded first. Thread ids observed in notification
// params update the session id.
func (c *Client) ReceiveResponse(ctx context.Context) <-chan map[string]any {
	out := make(chan map[string]any)

	go func() {
		defer close(out)

		timer := time.NewTimer(c.opts.ReceiveTimeout)
		defer timer.Stop()

		for {
			select {
			case msg := <-c.queue:
				if params, ok := msg["params"].(map[string]any); ok {
					if id, ok := params["thread_id"].(string); ok && id != "" {
						c.mu.Lock()
						c.sessionID = id
						c.mu.Unlock()
					}
				}

				select {
				case out <- msg:
				case <-ctx.Done():
					return
				case <-c.done:
					return
				}

				if method, _ := msg["method"].(string); method == MethodChatComplete || method == MethodChatError {
					return
				}
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(c.opts.ReceiveTimeout)
			case <-timer.C:
				timeout := map[string]any{
					"method": MethodChatError,
					"params": map[string]any{"error": "Response timeout"},
				}
				select {
				case out <- timeout:
				default:
				}
				return
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()

	return out
}

// Interrupt sends a chat/cancel notification. Errors are swallowed: the
// backend may already have exited.
func (c *Client) Interrupt(ctx context.Context) error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()

	if transport != nil && transport.Healthy() {
		_ = transport.SendNotification(MethodChatCancel, map[string]any{})
	}
	return nil
}

// Disconnect shuts down the transport. Safe when not connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	transport := c.transport
	c.transport = nil
	c.mu.Unlock()

	close(c.done)
	if transport != nil {
		return transport.Shutdown()
	}
	return nil
}

// SessionID returns the thread id assigned by the server, if any.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Options returns the client's configuration.
func (c *Client) Options() Options {
	return c.opts
}

var _ provider.Client = (*Client)(nil)
