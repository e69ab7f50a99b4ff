package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/deskos/deskagent/provider"
	"github.com/deskos/deskagent/toolpath"
)

// eventQueueSize buffers parsed stream events between the reader goroutine
// and ReceiveResponse.
const eventQueueSize = 100

// Client drives one Claude CLI subprocess session.
type Client struct {
	opts      Options
	process   *processManager
	queue     chan map[string]any
	done      chan struct{}
	sessionID string
	mu        sync.Mutex
	connected bool
}

// NewClient creates a client from Claude-specific options.
func NewClient(opts Options) *Client {
	return &Client{
		opts:  opts.withDefaults(),
		queue: make(chan map[string]any, eventQueueSize),
		done:  make(chan struct{}),
	}
}

// Connect resolves the CLI executable and spawns it. Connecting an
// already-connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	binary := c.opts.BinaryPath
	if binary == "" {
		path, ok := toolpath.Resolve("claude")
		if !ok {
			return &provider.CLINotFoundError{Tool: "claude", Hint: "install with: npm install -g @anthropic-ai/claude-code"}
		}
		binary = path
	}

	c.process = newProcessManager(binary, c.opts)
	if err := c.process.Start(ctx); err != nil {
		return err
	}

	go c.readLoop()

	c.connected = true
	return nil
}

// readLoop parses each stdout line into a raw event map and queues it.
// Unparseable lines become synthetic error events so the turn can close
// out instead of hanging. Session ids carried by system events are
// captured as they pass through.
func (c *Client) readLoop() {
	c.mu.Lock()
	process := c.process
	c.mu.Unlock()
	if process == nil {
		return
	}

	for {
		line, err := process.ReadLine()
		if err != nil {
			return
		}
		if len(line) == 0 {
			continue
		}

		var event map[string]any
		if err := json.Unmarshal(line, &event); err != nil {
			event = map[string]any{
				"type":  "error",
				"error": fmt.Sprintf("JSON parse error: %v", err),
			}
		}

		if event["type"] == "system" {
			if id, ok := event["session_id"].(string); ok && id != "" {
				c.mu.Lock()
				c.sessionID = id
				c.mu.Unlock()
			}
		}

		select {
		case c.queue <- event:
		case <-c.done:
			return
		}
	}
}

// Query writes one user message line to the CLI.
func (c *Client) Query(ctx context.Context, message string) error {
	c.mu.Lock()
	process := c.process
	connected := c.connected
	c.mu.Unlock()

	if !connected || process == nil {
		return provider.ErrNotConnected
	}
	return process.WriteLine([]byte(message))
}

// ReceiveResponse yields raw stream events for the current query. The
// channel closes after a result event, or after ReceiveTimeout passes with
// no events, in which case a synthetic error event is yielded first.
func (c *Client) ReceiveResponse(ctx context.Context) <-chan map[string]any {
	out := make(chan map[string]any)

	go func() {
		defer close(out)

		timer := time.NewTimer(c.opts.ReceiveTimeout)
		defer timer.Stop()

		for {
			select {
			case event := <-c.queue:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				case <-c.done:
					return
				}
				if event["type"] == "result" {
					return
				}
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(c.opts.ReceiveTimeout)
			case <-timer.C:
				timeout := map[string]any{"type": "error", "error": "Response timeout"}
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

// Interrupt sends SIGINT to the CLI's process group to stop generation.
// It never fails, even if the process has already exited.
func (c *Client) Interrupt(ctx context.Context) error {
	c.mu.Lock()
	process := c.process
	c.mu.Unlock()

	if process != nil {
		process.Signal(syscall.SIGINT)
	}
	return nil
}

// Disconnect terminates the CLI process. Safe when not connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	process := c.process
	c.process = nil
	c.mu.Unlock()

	close(c.done)
	if process != nil {
		return process.Stop()
	}
	return nil
}

// SessionID returns the backend-assigned session id, if one has been seen.
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
