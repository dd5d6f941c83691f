package preflight

import (
	"context"

	"gistcast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the startup checks for the given config: directory
// access, free disk space, and the encoding binary. Provider checks are
// excluded because they cost a network round trip; the CLI status path
// runs those separately.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Staging disk space", cfg.Paths.StagingDir, minFreeBytes),
		CheckFFmpeg(cfg.FFmpegBinary()),
	}
	return results
}

// Passed reports whether every result in the set succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
