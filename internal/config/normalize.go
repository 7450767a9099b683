package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeMedia()
	c.normalizeS3()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}

	project := []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.assets", &c.Paths.Assets, defaultAssets},
		{"paths.scenes_db", &c.Paths.ScenesDB, defaultScenesDB},
		{"paths.shots_board", &c.Paths.ShotsBoard, defaultShotsBoard},
		{"paths.stills_prompts", &c.Paths.StillsPrompts, defaultStillsPrompts},
		{"paths.video_prompts", &c.Paths.VideoPrompts, defaultVideoPrompts},
		{"paths.images_output", &c.Paths.ImagesOutput, defaultImagesOutput},
		{"paths.video_output", &c.Paths.VideoOutput, defaultVideoOutput},
		{"paths.flat_output", &c.Paths.FlatOutput, defaultFlatOutput},
		{"paths.failures_dir", &c.Paths.FailuresDir, defaultFailuresDir},
		{"paths.reports_dir", &c.Paths.ReportsDir, defaultReportsDir},
	}
	for _, entry := range project {
		value := strings.TrimSpace(*entry.value)
		if value == "" {
			value = entry.def
		}
		if !strings.HasPrefix(value, "~") && !filepath.IsAbs(value) {
			value = filepath.Join(c.Paths.ProjectDir, value)
		}
		if *entry.value, err = expandPath(value); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeMedia() {
	c.Media.APIKey = strings.TrimSpace(c.Media.APIKey)
	if c.Media.APIKey == "" {
		if value, ok := os.LookupEnv("FAL_KEY"); ok {
			c.Media.APIKey = strings.TrimSpace(value)
		}
	}
	c.Media.QueueURL = strings.TrimRight(strings.TrimSpace(c.Media.QueueURL), "/")
	if c.Media.QueueURL == "" {
		c.Media.QueueURL = defaultMediaQueueURL
	}
	c.Media.StorageURL = strings.TrimSpace(c.Media.StorageURL)
	if c.Media.StorageURL == "" {
		c.Media.StorageURL = defaultMediaStorageURL
	}
	c.Media.ImageModel = strings.Trim(strings.TrimSpace(c.Media.ImageModel), "/")
	if c.Media.ImageModel == "" {
		c.Media.ImageModel = defaultImageModel
	}
	c.Media.VideoModel = strings.Trim(strings.TrimSpace(c.Media.VideoModel), "/")
	if c.Media.VideoModel == "" {
		c.Media.VideoModel = defaultVideoModel
	}
	c.Media.ImageSize = strings.TrimSpace(c.Media.ImageSize)
	if c.Media.ImageSize == "" {
		c.Media.ImageSize = defaultImageSize
	}
	c.Media.OutputFormat = strings.ToLower(strings.TrimSpace(c.Media.OutputFormat))
	if c.Media.OutputFormat == "" {
		c.Media.OutputFormat = defaultOutputFormat
	}
	c.Media.VideoDuration = strings.TrimSuffix(strings.TrimSpace(c.Media.VideoDuration), "s")
	if c.Media.VideoDuration == "" {
		c.Media.VideoDuration = defaultVideoDuration
	}
	c.Media.UploadBackend = strings.ToLower(strings.TrimSpace(c.Media.UploadBackend))
	if c.Media.UploadBackend == "" {
		c.Media.UploadBackend = defaultUploadBackend
	}
}

func (c *Config) normalizeS3() {
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Endpoint = strings.TrimRight(strings.TrimSpace(c.S3.Endpoint), "/")
	if c.S3.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.S3.Region = strings.TrimSpace(value)
		}
	}
	if c.S3.PresignMinutes <= 0 {
		c.S3.PresignMinutes = defaultPresignMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
