package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/deskos/deskagent/internal/procattr"
)

// DefaultRequestTimeout bounds SendRequest when no timeout is given.
const DefaultRequestTimeout = 30 * time.Second

// NotificationHandler receives server-pushed messages in the order the
// subprocess emitted them. The argument is the decoded JSON object
// ({"jsonrpc":..., "method":..., "params":...}).
type NotificationHandler func(msg map[string]any)

// Option configures a Transport.
type Option func(*Transport)

// WithWorkDir sets the subprocess working directory.
func WithWorkDir(dir string) Option {
	return func(t *Transport) { t.workDir = dir }
}

// WithEnv adds environment variables to the subprocess.
func WithEnv(env map[string]string) Option {
	return func(t *Transport) { t.env = env }
}

// WithStderrHandler sets a handler for subprocess stderr output.
func WithStderrHandler(h func([]byte)) Option {
	return func(t *Transport) { t.stderrHandler = h }
}

// rpcOutcome is the terminal state of one pending request.
type rpcOutcome struct {
	result json.RawMessage
	err    error
}

// Transport is a JSON-RPC 2.0 channel over one subprocess's stdio.
//
// Request ids are strictly increasing per instance starting at 1 and never
// reused, even after a timeout evicts an earlier id. All writes go through
// a single mutex so two concurrent senders never interleave partial lines.
type Transport struct {
	onNotification NotificationHandler
	stderrHandler  func([]byte)
	env            map[string]string
	pending        map[int64]chan rpcOutcome
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stderr         io.ReadCloser
	reader         *bufio.Reader
	done           chan struct{}
	procDone       chan struct{}
	command        []string
	workDir        string
	readWg         sync.WaitGroup
	nextID         atomic.Int64
	exited         atomic.Bool
	mu             sync.Mutex
	pendingMu      sync.Mutex
	writeMu        sync.Mutex
	started        bool
	stopping       bool
}

// New creates a transport for the given command line. The notification
// handler may be nil, in which case pushed messages are dropped.
func New(command []string, onNotification NotificationHandler, opts ...Option) *Transport {
	t := &Transport{
		command:        command,
		onNotification: onNotification,
		pending:        make(map[int64]chan rpcOutcome),
		done:           make(chan struct{}),
		procDone:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start spawns the subprocess and begins the read loop.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	t.cmd = exec.CommandContext(ctx, t.command[0], t.command[1:]...)
	procattr.Set(t.cmd)

	if t.workDir != "" {
		t.cmd.Dir = t.workDir
	}
	if len(t.env) > 0 {
		t.cmd.Env = os.Environ()
		for k, v := range t.env {
			t.cmd.Env = append(t.cmd.Env, k+"="+v)
		}
	}

	var err error
	t.stdin, err = t.cmd.StdinPipe()
	if err != nil {
		return &ProcessError{Message: "failed to get stdin pipe", Cause: err}
	}
	stdout, err := t.cmd.StdoutPipe()
	if err != nil {
		return &ProcessError{Message: "failed to get stdout pipe", Cause: err}
	}
	t.stderr, err = t.cmd.StderrPipe()
	if err != nil {
		return &ProcessError{Message: "failed to get stderr pipe", Cause: err}
	}

	if err := t.cmd.Start(); err != nil {
		return &ProcessError{Message: "failed to start process", Cause: err}
	}

	t.reader = bufio.NewReader(stdout)

	go func() {
		_ = t.cmd.Wait()
		t.exited.Store(true)
		close(t.procDone)
	}()

	if t.stderrHandler != nil {
		go t.stderrLoop()
	}

	t.readWg.Add(1)
	go t.readLoop()

	t.started = true
	return nil
}

// Healthy reports whether the subprocess is running.
func (t *Transport) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.stopping && !t.exited.Load()
}

// SendRequest writes one request and suspends the caller until the
// matching response arrives, the timeout elapses, the context is
// cancelled, or the transport shuts down. A timeout evicts this request's
// pending slot and leaves the subprocess running; other outstanding
// requests are unaffected. timeout <= 0 selects DefaultRequestTimeout.
func (t *Transport) SendRequest(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	t.mu.Lock()
	if !t.started || t.stopping {
		t.mu.Unlock()
		return nil, ErrNotStarted
	}
	t.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	id := t.nextID.Add(1)
	req, err := newRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	ch := make(chan rpcOutcome, 1)
	t.pendingMu.Lock()
	t.pending[id] = ch
	t.pendingMu.Unlock()

	if err := t.writeLine(req); err != nil {
		t.evict(id)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-ch:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return outcome.result, nil
	case <-timer.C:
		t.evict(id)
		return nil, ErrRequestTimeout
	case <-ctx.Done():
		t.evict(id)
		return nil, ctx.Err()
	case <-t.done:
		t.evict(id)
		return nil, ErrTransportClosed
	}
}

// SendNotification writes one notification. It does not suspend beyond the
// pipe write and registers nothing.
func (t *Transport) SendNotification(method string, params any) error {
	t.mu.Lock()
	if !t.started || t.stopping {
		t.mu.Unlock()
		return ErrNotStarted
	}
	t.mu.Unlock()

	notif, err := newNotification(method, params)
	if err != nil {
		return err
	}
	return t.writeLine(notif)
}

// Shutdown stops the read loop, fails every still-pending request, and
// terminates the subprocess (grace period, SIGTERM group, SIGKILL group).
// It is idempotent.
func (t *Transport) Shutdown() error {
	t.mu.Lock()
	if !t.started || t.stopping {
		t.mu.Unlock()
		return nil
	}
	t.stopping = true
	t.mu.Unlock()

	close(t.done)

	// Fail all pending requests exactly once.
	t.pendingMu.Lock()
	for id, ch := range t.pending {
		delete(t.pending, id)
		select {
		case ch <- rpcOutcome{err: ErrTransportClosed}:
		default:
		}
	}
	t.pendingMu.Unlock()

	// Close stdin to signal shutdown, then escalate.
	if t.stdin != nil {
		t.stdin.Close()
	}

	select {
	case <-t.procDone:
	case <-time.After(500 * time.Millisecond):
		if t.cmd.Process != nil {
			_ = procattr.SignalGroup(t.cmd.Process, syscall.SIGTERM)
		}
		select {
		case <-t.procDone:
		case <-time.After(500 * time.Millisecond):
			if t.cmd.Process != nil {
				_ = procattr.KillGroup(t.cmd.Process)
			}
			select {
			case <-t.procDone:
			case <-time.After(200 * time.Millisecond):
			}
		}
	}

	t.readWg.Wait()
	return nil
}

// writeLine writes one newline-terminated JSON value under the write lock.
func (t *Transport) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.stdin.Write(data); err != nil {
		return &ProcessError{Message: "failed to write to stdin", Cause: err}
	}
	return nil
}

// evict removes one pending slot; safe when the slot is already gone.
func (t *Transport) evict(id int64) {
	t.pendingMu.Lock()
	delete(t.pending, id)
	t.pendingMu.Unlock()
}

// readLoop parses one JSON value per stdout line and routes it. Lines that
// fail to parse are discarded; the loop never crashes on bad input.
func (t *Transport) readLoop() {
	defer t.readWg.Done()
	for {
		select {
		case <-t.done:
			return
		default:
		}

		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var peek struct {
			ID     *int64          `json:"id"`
			Error  *Error          `json:"error"`
			Result json.RawMessage `json:"result"`
			Method string          `json:"method"`
		}
		if err := json.Unmarshal(line, &peek); err != nil {
			continue
		}

		if peek.ID != nil {
			t.pendingMu.Lock()
			ch, ok := t.pending[*peek.ID]
			if ok {
				delete(t.pending, *peek.ID)
			}
			t.pendingMu.Unlock()

			if ok {
				outcome := rpcOutcome{result: peek.Result}
				if peek.Error != nil {
					outcome = rpcOutcome{err: peek.Error}
				}
				select {
				case ch <- outcome:
				default:
				}
				continue
			}
		}

		if peek.Method != "" && t.onNotification != nil {
			var msg map[string]any
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			t.onNotification(msg)
		}
	}
}

// stderrLoop drains stderr into the configured handler.
func (t *Transport) stderrLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := t.stderr.Read(buf)
		if n > 0 {
			t.stderrHandler(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
