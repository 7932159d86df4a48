package main

import (
	"fmt"
	"os/exec"
)

func ensureServerBinary() (string, error) {
	// gemini-mcp must be in the PATH
	if _, err := exec.LookPath("gemini-mcp"); err != nil {
		return "", fmt.Errorf("gemini-mcp binary not found in PATH")
	}
	return "gemini-mcp", nil
}
