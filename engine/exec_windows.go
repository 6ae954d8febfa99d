//go:build windows

package engine

import (
	"os/exec"
)

const (
	shell     = "cmd"
	shellFlag = "/c"
)

// makeCmdKillable configures a command so that the command and all of its children will be killed when
// it's cancelled.
func makeCmdKillable(cmd *exec.Cmd) {
	// no-op on windows, not sure how to implement that
}
