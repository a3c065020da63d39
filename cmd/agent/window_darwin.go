//go:build darwin

package main

import (
	"bytes"
	"os/exec"
	"strings"
)

// foregroundWindowTitle asks System Events for the frontmost window name.
// Needs accessibility permission; returns "" when the probe fails.
func foregroundWindowTitle() string {
	script := `tell application "System Events" to get name of window 1 of (first application process whose frontmost is true)`

	cmd := exec.Command("osascript", "-e", script)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
