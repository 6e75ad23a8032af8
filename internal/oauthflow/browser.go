package oauthflow

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser opens url in the desktop's default browser without waiting for it.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	// Reap the opener; the browser itself outlives it.
	go func() { _ = cmd.Wait() }()
	return nil
}
