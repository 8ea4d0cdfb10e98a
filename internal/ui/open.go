package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// OpenPath asks the desktop to show path in its file manager. The opener is
// detached from ctx once started so it outlives the command that launched it.
func OpenPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := openCommand(runtime.GOOS, path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos, path string) (string, []string) {
	if goos == "darwin" {
		return "open", []string{path}
	}
	return "xdg-open", []string{path}
}

// Opener returns the command OpenPath runs on this platform.
func Opener() string {
	name, _ := openCommand(runtime.GOOS, "")
	return name
}
