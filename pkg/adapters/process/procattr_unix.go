//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// isolate starts cmd in its own process group so a timeout reaches the
// children a shell leaves behind.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
