package config

const (
	defaultProjectDir               = "."
	defaultAssets                   = "assets/assets.yaml"
	defaultScenesDB                 = "assets/scenes_db.json"
	defaultShotsBoard               = "assets/shots_board.json"
	defaultStillsPrompts            = "prompts/stills"
	defaultVideoPrompts             = "prompts/video"
	defaultImagesOutput             = "production/images"
	defaultVideoOutput              = "production/video"
	defaultFlatOutput               = "production/flat_images"
	defaultFailuresDir              = "failures_to_analyze"
	defaultReportsDir               = "production"
	defaultStateDir                 = "~/.local/share/shotline"
	defaultLogDir                   = "~/.local/share/shotline/logs"
	defaultAPIBind                  = "127.0.0.1:7490"
	defaultLLMBaseURL               = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                 = "anthropic/claude-sonnet-4.5"
	defaultLLMReferer               = "https://github.com/shotline/shotline"
	defaultLLMTitle                 = "Shotline"
	defaultLLMTimeoutSeconds        = 90
	defaultMediaQueueURL            = "https://queue.fal.run"
	defaultMediaStorageURL          = "https://rest.alpha.fal.ai/storage/upload/initiate"
	defaultImageModel               = "fal-ai/flux-lora"
	defaultVideoModel               = "fal-ai/kling-video/v2.6/pro/image-to-video"
	defaultImageSize                = "landscape_16_9"
	defaultInferenceSteps           = 28
	defaultOutputFormat             = "jpeg"
	defaultLoraScale                = 1.0
	defaultIdentityWeight           = 0.85
	defaultVideoDuration            = "5"
	defaultPollIntervalSeconds      = 3
	defaultGenerationTimeoutSeconds = 600
	defaultUploadBackend            = "fal"
	defaultPresignMinutes           = 60
	defaultRetryMaxAttempts         = 5
	defaultRetryBaseDelaySeconds    = 2
	defaultRetryMaxDelaySeconds     = 60
	defaultEquivalenceThreshold     = 0.55
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir:    defaultProjectDir,
			Assets:        defaultAssets,
			ScenesDB:      defaultScenesDB,
			ShotsBoard:    defaultShotsBoard,
			StillsPrompts: defaultStillsPrompts,
			VideoPrompts:  defaultVideoPrompts,
			ImagesOutput:  defaultImagesOutput,
			VideoOutput:   defaultVideoOutput,
			FlatOutput:    defaultFlatOutput,
			FailuresDir:   defaultFailuresDir,
			ReportsDir:    defaultReportsDir,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Media: Media{
			QueueURL:                 defaultMediaQueueURL,
			StorageURL:               defaultMediaStorageURL,
			ImageModel:               defaultImageModel,
			VideoModel:               defaultVideoModel,
			ImageSize:                defaultImageSize,
			InferenceSteps:           defaultInferenceSteps,
			SafetyChecker:            true,
			OutputFormat:             defaultOutputFormat,
			LoraScale:                defaultLoraScale,
			IdentityWeight:           defaultIdentityWeight,
			VideoDuration:            defaultVideoDuration,
			PollIntervalSeconds:      defaultPollIntervalSeconds,
			GenerationTimeoutSeconds: defaultGenerationTimeoutSeconds,
			UploadBackend:            defaultUploadBackend,
			FlatCopies:               true,
		},
		S3: S3{
			PresignMinutes: defaultPresignMinutes,
		},
		Retry: Retry{
			MaxAttempts:      defaultRetryMaxAttempts,
			BaseDelaySeconds: defaultRetryBaseDelaySeconds,
			MaxDelaySeconds:  defaultRetryMaxDelaySeconds,
		},
		Concurrency: Concurrency{
			StillsPrompt:   3,
			StillsInspect:  5,
			StillsGenerate: 10,
			VideoPrompt:    3,
			VideoInspect:   5,
			VideoGenerate:  4,
		},
		Inspection: Inspection{
			EquivalenceThreshold: defaultEquivalenceThreshold,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
