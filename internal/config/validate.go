package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Provider credentials are not
// required here; commands that call providers check them via RequireLLM and
// RequireMedia so read-only commands work without keys.
func (c *Config) Validate() error {
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateConcurrency(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateInspection(); err != nil {
		return err
	}
	if c.Batch.TimeoutSeconds < 0 {
		return errors.New("batch.timeout_seconds must be >= 0")
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if err := ensurePositiveMap(map[string]int{
		"retry.max_attempts":      c.Retry.MaxAttempts,
		"retry.max_delay_seconds": c.Retry.MaxDelaySeconds,
	}); err != nil {
		return err
	}
	if c.Retry.BaseDelaySeconds < 0 {
		return errors.New("retry.base_delay_seconds must be >= 0")
	}
	if c.Retry.AttemptTimeoutSeconds < 0 {
		return errors.New("retry.attempt_timeout_seconds must be >= 0")
	}
	if c.Retry.BaseDelaySeconds > c.Retry.MaxDelaySeconds {
		return errors.New("retry.base_delay_seconds must not exceed retry.max_delay_seconds")
	}
	return nil
}

func (c *Config) validateConcurrency() error {
	return ensurePositiveMap(map[string]int{
		"concurrency.stills_prompt":   c.Concurrency.StillsPrompt,
		"concurrency.stills_inspect":  c.Concurrency.StillsInspect,
		"concurrency.stills_generate": c.Concurrency.StillsGenerate,
		"concurrency.video_prompt":    c.Concurrency.VideoPrompt,
		"concurrency.video_inspect":   c.Concurrency.VideoInspect,
		"concurrency.video_generate":  c.Concurrency.VideoGenerate,
	})
}

func (c *Config) validateMedia() error {
	if err := ensurePositiveMap(map[string]int{
		"media.inference_steps":            c.Media.InferenceSteps,
		"media.poll_interval_seconds":      c.Media.PollIntervalSeconds,
		"media.generation_timeout_seconds": c.Media.GenerationTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Media.IdentityWeight < 0 || c.Media.IdentityWeight > 1 {
		return errors.New("media.identity_weight must be between 0 and 1")
	}
	if c.Media.LoraScale < 0 {
		return errors.New("media.lora_scale must be >= 0")
	}
	switch c.Media.UploadBackend {
	case "fal":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket must be set when media.upload_backend is \"s3\"")
		}
	default:
		return fmt.Errorf("media.upload_backend must be \"fal\" or \"s3\", got %q", c.Media.UploadBackend)
	}
	return nil
}

func (c *Config) validateInspection() error {
	if c.Inspection.EquivalenceThreshold < 0 || c.Inspection.EquivalenceThreshold > 1 {
		return errors.New("inspection.equivalence_threshold must be between 0 and 1")
	}
	return nil
}

// RequireLLM reports a configuration error when text generation is not usable.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return missingKeyError("llm.api_key", "OPENROUTER_API_KEY")
	}
	return nil
}

// RequireMedia reports a configuration error when media generation is not usable.
func (c *Config) RequireMedia() error {
	if strings.TrimSpace(c.Media.APIKey) == "" {
		return missingKeyError("media.api_key", "FAL_KEY")
	}
	return nil
}

func missingKeyError(key, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/shotline/config.toml"
	}
	return fmt.Errorf("%s is required. Set %s (or add it to .env) or edit %s (create with 'shotline config init')", key, env, defaultPath)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
