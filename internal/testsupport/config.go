package testsupport

import (
	"path/filepath"
	"testing"

	"shotline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted at a fresh temp project directory. All
// paths are absolute and both provider keys are set to dummy values.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Media.APIKey = "test"
	cfgVal.Paths.ProjectDir = base
	cfgVal.Paths.Assets = filepath.Join(base, "assets", "assets.yaml")
	cfgVal.Paths.ScenesDB = filepath.Join(base, "assets", "scenes_db.json")
	cfgVal.Paths.ShotsBoard = filepath.Join(base, "assets", "shots_board.json")
	cfgVal.Paths.StillsPrompts = filepath.Join(base, "prompts", "stills")
	cfgVal.Paths.VideoPrompts = filepath.Join(base, "prompts", "video")
	cfgVal.Paths.ImagesOutput = filepath.Join(base, "production", "images")
	cfgVal.Paths.VideoOutput = filepath.Join(base, "production", "video")
	cfgVal.Paths.FlatOutput = filepath.Join(base, "production", "flat_images")
	cfgVal.Paths.FailuresDir = filepath.Join(base, "failures_to_analyze")
	cfgVal.Paths.ReportsDir = filepath.Join(base, "production")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Retry.MaxAttempts = 1
	cfgVal.Retry.BaseDelaySeconds = 0
	cfgVal.Retry.MaxDelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutKeys clears both provider credentials.
func WithoutKeys() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = ""
		b.cfg.Media.APIKey = ""
	}
}

// WithWorkers sets the same worker ceiling on every stage.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Concurrency = config.Concurrency{
			StillsPrompt:   n,
			StillsInspect:  n,
			StillsGenerate: n,
			VideoPrompt:    n,
			VideoInspect:   n,
			VideoGenerate:  n,
		}
	}
}

// WithFlatCopies toggles the flat image export.
func WithFlatCopies(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Media.FlatCopies = enabled
	}
}

// BaseDir returns the project directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.ProjectDir
}
