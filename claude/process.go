package claude

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/deskos/deskagent/internal/procattr"
	"github.com/deskos/deskagent/provider"
)

// processManager owns the Claude CLI subprocess and its stdio pipes.
type processManager struct {
	stdin    io.WriteCloser
	stdout   io.ReadCloser
	stderr   io.ReadCloser
	cmd      *exec.Cmd
	reader   *bufio.Reader
	procDone chan struct{}
	binary   string
	opts     Options
	mu       sync.Mutex
	exited   atomic.Bool
	started  bool
	stopping bool
}

func newProcessManager(binary string, opts Options) *processManager {
	return &processManager{
		binary:   binary,
		opts:     opts,
		procDone: make(chan struct{}),
	}
}

// BuildCLIArgs builds the exact CLI invocation:
//
//	claude [--resume <id>] --model <model> --output-format stream-json --print
func (pm *processManager) BuildCLIArgs() []string {
	var args []string
	if pm.opts.Resume != "" {
		args = append(args, "--resume", pm.opts.Resume)
	}
	args = append(args,
		"--model", pm.opts.Model,
		"--output-format", "stream-json",
		"--print",
	)
	return args
}

// Start spawns the CLI process.
func (pm *processManager) Start(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.started {
		return nil
	}

	pm.cmd = exec.CommandContext(ctx, pm.binary, pm.BuildCLIArgs()...)
	procattr.Set(pm.cmd)

	if pm.opts.WorkDir != "" {
		pm.cmd.Dir = pm.opts.WorkDir
	}

	pm.cmd.Env = os.Environ()
	if pm.opts.SystemPrompt != "" {
		pm.cmd.Env = append(pm.cmd.Env, systemPromptEnv+"="+pm.opts.SystemPrompt)
	}

	var err error
	pm.stdin, err = pm.cmd.StdinPipe()
	if err != nil {
		return &provider.ProcessError{Message: "failed to get stdin pipe", Cause: err}
	}
	pm.stdout, err = pm.cmd.StdoutPipe()
	if err != nil {
		return &provider.ProcessError{Message: "failed to get stdout pipe", Cause: err}
	}
	pm.stderr, err = pm.cmd.StderrPipe()
	if err != nil {
		return &provider.ProcessError{Message: "failed to get stderr pipe", Cause: err}
	}

	if err := pm.cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &provider.CLINotFoundError{Tool: "claude", Hint: "install with: npm install -g @anthropic-ai/claude-code"}
		}
		return &provider.ProcessError{Message: "failed to start CLI process", Cause: err}
	}

	pm.reader = bufio.NewReader(pm.stdout)

	go func() {
		_ = pm.cmd.Wait()
		pm.exited.Store(true)
		close(pm.procDone)
	}()

	pm.started = true
	return nil
}

// ReadLine reads one newline-delimited line from stdout, newline trimmed.
func (pm *processManager) ReadLine() ([]byte, error) {
	pm.mu.Lock()
	reader := pm.reader
	pm.mu.Unlock()

	if reader == nil {
		return nil, io.EOF
	}

	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line, nil
}

// WriteLine writes one newline-terminated line to stdin.
func (pm *processManager) WriteLine(line []byte) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.stdin == nil || !pm.started {
		return provider.ErrNotConnected
	}
	if pm.stopping {
		return provider.ErrAlreadyClosed
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := pm.stdin.Write(buf)
	return err
}

// Signal delivers a signal to the CLI's process group. Errors from an
// already-exited process are swallowed.
func (pm *processManager) Signal(sig syscall.Signal) {
	pm.mu.Lock()
	cmd := pm.cmd
	pm.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = procattr.SignalGroup(cmd.Process, sig)
	}
}

// Healthy reports whether the subprocess is running.
func (pm *processManager) Healthy() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.started && !pm.stopping && !pm.exited.Load()
}

// Stderr returns the stderr reader.
func (pm *processManager) Stderr() io.Reader {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.stderr
}

// Stop terminates the CLI: SIGTERM to the group, grace period, SIGKILL.
// Safe to call more than once and when never started.
func (pm *processManager) Stop() error {
	pm.mu.Lock()
	if !pm.started || pm.stopping {
		pm.mu.Unlock()
		return nil
	}
	pm.stopping = true
	pm.mu.Unlock()

	if pm.stdin != nil {
		pm.stdin.Close()
	}

	if pm.cmd.Process != nil {
		_ = procattr.SignalGroup(pm.cmd.Process, syscall.SIGTERM)
	}

	select {
	case <-pm.procDone:
		return nil
	case <-time.After(500 * time.Millisecond):
	}

	if pm.cmd.Process != nil {
		_ = procattr.KillGroup(pm.cmd.Process)
	}

	select {
	case <-pm.procDone:
	case <-time.After(200 * time.Millisecond):
	}
	return nil
}
