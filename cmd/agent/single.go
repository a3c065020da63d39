package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// acquireInstanceLock enforces one agent per machine with an exclusive
// lock file. The permission workflow assumes a single process holds the
// API key; a second instance would double-report activity and race the
// close approval.
func acquireInstanceLock() (release func(), err error) {
	path := filepath.Join(os.TempDir(), ".employee_agent.lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lock file %s exists: %w", path, err)
	}
	f.Close()

	return func() { os.Remove(path) }, nil
}
