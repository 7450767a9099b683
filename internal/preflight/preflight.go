package preflight

import (
	"context"
	"strings"

	"shotline/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects which checks RunAll performs.
type Options struct {
	// Offline skips provider reachability checks.
	Offline bool
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := RunLocal(cfg)
	if opts.Offline {
		return results
	}
	results = append(results, CheckLLM(ctx, "Text provider", cfg.LLM))
	results = append(results, CheckMedia(ctx, "Media provider", cfg.Media))
	if strings.EqualFold(cfg.Media.UploadBackend, "s3") {
		results = append(results, CheckS3Config("S3 uploads", cfg.S3))
	}
	return results
}

// RunLocal checks the project files and writable directories.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Project directory", cfg.Paths.ProjectDir),
		CheckFile("Shot board", cfg.Paths.ShotsBoard),
		CheckFile("Scenes database", cfg.Paths.ScenesDB),
		CheckFile("Assets catalog", cfg.Paths.Assets),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Images output", cfg.Paths.ImagesOutput),
		CheckDirectoryAccess("Video output", cfg.Paths.VideoOutput),
	}
	if cfg.Media.FlatCopies {
		results = append(results, CheckDirectoryAccess("Flat copies", cfg.Paths.FlatOutput))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
