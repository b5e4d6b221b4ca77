//go:build !unix

package executor

import "fmt"

// DetachedSpawner is only implemented on unix systems.
type DetachedSpawner struct {
	Shell string
}

// Spawn always fails on this platform.
func (s DetachedSpawner) Spawn(command string) error {
	return fmt.Errorf("%w: detached launch is not supported on this platform", ErrSpawn)
}
