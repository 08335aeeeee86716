//go:build !unix

package invoker

import "os/exec"

// configureProcess keeps the exec default: cancellation kills the direct
// child only.
func configureProcess(cmd *exec.Cmd) {}
