//go:build unix

package invoker

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess starts the controller in its own process group so that
// cancellation kills the whole tree, not only the direct child.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
