//go:build unix

package executor

import (
	"fmt"
	"os/exec"
	"syscall"
)

// DetachedSpawner starts commands through a shell in a new session.
//
// The child is never waited for. It outlives the launcher and gets reparented to
// init; this is the intended lifetime, not a leak to fix.
type DetachedSpawner struct {
	// Shell runs the command with "-c". Defaults to "sh".
	Shell string
}

// Spawn starts command and returns once the process exists.
func (s DetachedSpawner) Spawn(command string) error {
	shell := s.Shell
	if shell == "" {
		shell = defaultShell
	}

	// Nil standard streams are connected to the null device.
	cmd := exec.Command(shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	return cmd.Process.Release()
}
