package preflight

import (
	"context"
	"strings"

	"polarconv/internal/config"
	"polarconv/internal/ui"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckLock(cfg.LockPath()),
		CheckFreeSpace("Free space", cfg.Paths.StateDir, uint64(cfg.Convert.MinFreeMiB)<<20),
	}

	opener := CheckBinary("Folder opener", ui.Opener(), !cfg.Convert.OpenOnSuccess)
	results = append(results, opener)

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckNtfy(ctx, topic))
	}

	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
