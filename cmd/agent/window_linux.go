//go:build linux

package main

import (
	"bytes"
	"os/exec"
	"strings"
)

// foregroundWindowTitle asks xdotool for the focused window's name.
// Requires an X session; returns "" when the probe fails.
func foregroundWindowTitle() string {
	cmd := exec.Command("xdotool", "getwindowfocus", "getwindowname")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
