//go:build !linux

// Package procattr configures spawned backend CLIs so they never outlive
// deskagent as orphans.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set puts the subprocess in its own process group. Pdeathsig does not
// exist off Linux; the group still allows whole-tree signal delivery
// during shutdown.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
