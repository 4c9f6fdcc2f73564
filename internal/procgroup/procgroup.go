// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup runs media tools in their own process group so that cancelling a
// session (SIGINT/SIGTERM on the CLI) reaps ffmpeg together with any helpers it forked.
package procgroup

import (
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Wait blocks on stdio after the group was killed.
const DefaultWaitDelay = 5 * time.Second

// Set configures cmd to start in a new process group and, when its context is
// cancelled, to kill the whole group rather than only the leader.
// Mandatory before cmd.Start for group cancellation to work.
func Set(cmd *exec.Cmd) {
	set(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return killGroup(cmd.Process.Pid)
	}
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
}
