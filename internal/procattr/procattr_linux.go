//go:build linux

// Package procattr configures spawned backend CLIs so they never outlive
// deskagent as orphans.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set puts the subprocess in its own process group and, on Linux, arranges
// for it to receive SIGTERM if this process dies without cleaning up
// (SIGKILL, OOM kill).
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
