package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains project file locations, state directories, and the API bind address.
// Project-relative entries resolve against ProjectDir.
type Paths struct {
	ProjectDir    string `toml:"project_dir"`
	Assets        string `toml:"assets"`
	ScenesDB      string `toml:"scenes_db"`
	ShotsBoard    string `toml:"shots_board"`
	StillsPrompts string `toml:"stills_prompts"`
	VideoPrompts  string `toml:"video_prompts"`
	ImagesOutput  string `toml:"images_output"`
	VideoOutput   string `toml:"video_output"`
	FlatOutput    string `toml:"flat_output"`
	FailuresDir   string `toml:"failures_dir"`
	ReportsDir    string `toml:"reports_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
}

// LLM contains text-generation connection settings.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
}

// Media contains image/video generation settings.
type Media struct {
	APIKey                   string  `toml:"api_key"`
	QueueURL                 string  `toml:"queue_url"`
	StorageURL               string  `toml:"storage_url"`
	ImageModel               string  `toml:"image_model"`
	VideoModel               string  `toml:"video_model"`
	ImageSize                string  `toml:"image_size"`
	InferenceSteps           int     `toml:"inference_steps"`
	SafetyChecker            bool    `toml:"safety_checker"`
	OutputFormat             string  `toml:"output_format"`
	LoraScale                float64 `toml:"lora_scale"`
	IdentityWeight           float64 `toml:"identity_weight"`
	VideoDuration            string  `toml:"video_duration"`
	PollIntervalSeconds      int     `toml:"poll_interval_seconds"`
	GenerationTimeoutSeconds int     `toml:"generation_timeout_seconds"`
	UploadBackend            string  `toml:"upload_backend"`
	FlatCopies               bool    `toml:"flat_copies"`
}

// S3 configures the optional S3 upload backend for reference assets.
type S3 struct {
	Bucket         string `toml:"bucket"`
	Region         string `toml:"region"`
	Prefix         string `toml:"prefix"`
	Endpoint       string `toml:"endpoint"`
	PresignMinutes int    `toml:"presign_minutes"`
}

// Retry configures the backoff policy wrapped around every provider call.
type Retry struct {
	MaxAttempts      int `toml:"max_attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
	MaxDelaySeconds  int `toml:"max_delay_seconds"`
	// AttemptTimeoutSeconds bounds a single attempt. Zero leaves it to the
	// provider client's own timeouts.
	AttemptTimeoutSeconds int `toml:"attempt_timeout_seconds"`
}

// Concurrency holds the worker ceiling for each stage.
type Concurrency struct {
	StillsPrompt   int `toml:"stills_prompt"`
	StillsInspect  int `toml:"stills_inspect"`
	StillsGenerate int `toml:"stills_generate"`
	VideoPrompt    int `toml:"video_prompt"`
	VideoInspect   int `toml:"video_inspect"`
	VideoGenerate  int `toml:"video_generate"`
}

// Batch contains scheduler-wide settings.
type Batch struct {
	// TimeoutSeconds bounds a whole batch. Zero means unbounded.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Inspection tunes the prompt inspection stage.
type Inspection struct {
	// EquivalenceThreshold is the fingerprint similarity below which a second
	// inspection pass is treated as a semantic rewrite and discarded.
	EquivalenceThreshold float64 `toml:"equivalence_threshold"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for shotline.
//
// Configuration sections by subsystem:
//   - Paths: project files, output directories, state, API bind address
//   - LLM: text generation for prompt authoring and inspection
//   - Media: image/video generation and asset download
//   - S3: optional reference-asset hosting
//   - Retry: backoff policy for provider calls
//   - Concurrency: per-stage worker ceilings
//   - Batch / Inspection: scheduler and inspection tuning
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Media         Media         `toml:"media"`
	S3            S3            `toml:"s3"`
	Retry         Retry         `toml:"retry"`
	Concurrency   Concurrency   `toml:"concurrency"`
	Batch         Batch         `toml:"batch"`
	Inspection    Inspection    `toml:"inspection"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shotline/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is loaded first without overriding variables that are
// already set. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shotline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.ImagesOutput,
		c.Paths.VideoOutput,
		c.Paths.StateDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Media.FlatCopies && strings.TrimSpace(c.Paths.FlatOutput) != "" {
		if err := os.MkdirAll(c.Paths.FlatOutput, 0o755); err != nil {
			return fmt.Errorf("create flat output directory %q: %w", c.Paths.FlatOutput, err)
		}
	}
	return nil
}

// RunLogPath returns the location of the batch history database.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.StateDir, "runlog.db")
}

// BoardLockPath returns the lock file guarding the shot board.
func (c *Config) BoardLockPath() string {
	return c.Paths.ShotsBoard + ".lock"
}

// ProjectPath resolves a project-relative path (as stored in the shot board)
// against the project directory. Absolute paths are returned unchanged.
func (c *Config) ProjectPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.ProjectDir, p)
}

// RelativeToProject expresses an absolute path relative to the project
// directory when it lies inside it, so the board stays portable.
func (c *Config) RelativeToProject(p string) string {
	if p == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(c.Paths.ProjectDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// StageWorkers returns the configured worker ceiling for a stage name.
// Unknown stages get 1.
func (c *Config) StageWorkers(stage string) int {
	var n int
	switch stage {
	case "stills_prompt":
		n = c.Concurrency.StillsPrompt
	case "stills_inspect":
		n = c.Concurrency.StillsInspect
	case "stills_generate":
		n = c.Concurrency.StillsGenerate
	case "video_prompt":
		n = c.Concurrency.VideoPrompt
	case "video_inspect":
		n = c.Concurrency.VideoInspect
	case "video_generate":
		n = c.Concurrency.VideoGenerate
	}
	if n <= 0 {
		return 1
	}
	return n
}
