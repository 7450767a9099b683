package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shotline/internal/config"
	"shotline/internal/logging"
	"shotline/internal/retry"
	"shotline/internal/services"
	"shotline/internal/services/fal"
	"shotline/internal/services/llm"
	"shotline/internal/services/s3store"
)

// Adapter is the single contract stage workers use to reach the text and
// media providers. Implementations must be safe for concurrent use.
type Adapter interface {
	UploadAsset(ctx context.Context, path string) (string, error)
	BindReference(ctx context.Context, path string) (string, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error)
	GenerateVideo(ctx context.Context, prompt string, opts VideoOptions) (string, error)
	Download(ctx context.Context, url, dest string) error
	TextModel() string
}

// TextGenerator produces text completions.
type TextGenerator interface {
	CompleteText(ctx context.Context, system, user string) (string, error)
	Model() string
}

// MediaGenerator runs image and video models and fetches their output.
type MediaGenerator interface {
	GenerateImage(ctx context.Context, model string, args map[string]any) (string, error)
	GenerateVideo(ctx context.Context, model string, args map[string]any) (string, error)
	Download(ctx context.Context, url, dest string) error
}

// AssetUploader publishes a local file at a URL the media provider can read.
type AssetUploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Client implements Adapter on top of concrete backends.
type Client struct {
	text     TextGenerator
	media    MediaGenerator
	uploader AssetUploader
	logger   *slog.Logger

	mu   sync.Mutex
	refs map[string]*binding
}

type binding struct {
	done chan struct{}
	url  string
	err  error
}

// NewClient wires an adapter from explicit backends.
func NewClient(text TextGenerator, media MediaGenerator, uploader AssetUploader, logger *slog.Logger) *Client {
	return &Client{
		text:     text,
		media:    media,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "generation"),
		refs:     make(map[string]*binding),
	}
}

// NewFromConfig builds the llm, fal, and uploader backends described by cfg.
// All of them share one retry policy.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "generation", "config required", nil)
	}
	policy := PolicyFromConfig(cfg)
	text := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Temperature:    cfg.LLM.Temperature,
	}, llm.WithRetryPolicy(policy))
	media := fal.NewClient(fal.Config{
		APIKey:            cfg.Media.APIKey,
		QueueURL:          cfg.Media.QueueURL,
		StorageURL:        cfg.Media.StorageURL,
		PollInterval:      time.Duration(cfg.Media.PollIntervalSeconds) * time.Second,
		GenerationTimeout: time.Duration(cfg.Media.GenerationTimeoutSeconds) * time.Second,
	}, fal.WithRetryPolicy(policy))

	var uploader AssetUploader = media
	if strings.EqualFold(cfg.Media.UploadBackend, "s3") {
		s3, err := s3store.New(s3store.Config{
			Bucket:     cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			Prefix:     cfg.S3.Prefix,
			Endpoint:   cfg.S3.Endpoint,
			PresignTTL: time.Duration(cfg.S3.PresignMinutes) * time.Minute,
		}, policy)
		if err != nil {
			return nil, err
		}
		uploader = s3
	}
	return NewClient(text, media, uploader, logger), nil
}

// PolicyFromConfig translates the [retry] section into a retry.Policy.
func PolicyFromConfig(cfg *config.Config) *retry.Policy {
	return retry.New(
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithBackoff(
			time.Duration(cfg.Retry.BaseDelaySeconds)*time.Second,
			time.Duration(cfg.Retry.MaxDelaySeconds)*time.Second,
		),
		retry.WithAttemptTimeout(time.Duration(cfg.Retry.AttemptTimeoutSeconds)*time.Second),
	)
}

// TextModel reports the text model used for authoring and inspection.
func (c *Client) TextModel() string {
	if c.text == nil {
		return ""
	}
	return c.text.Model()
}

// GenerateText runs one text completion.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	if c.text == nil {
		return "", services.Wrap(services.ErrConfiguration, "", "generate text", "text backend not configured", nil)
	}
	start := time.Now()
	out, err := c.text.CompleteText(ctx, system, user)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, c.logger).Debug("text generated",
		logging.String("model", c.text.Model()),
		logging.Duration("duration", time.Since(start)),
		logging.Int("chars", len(out)),
	)
	return out, nil
}

// GenerateImage runs the image model and returns the hosted image URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	if c.media == nil {
		return "", services.Wrap(services.ErrConfiguration, "", "generate image", "media backend not configured", nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", services.Wrap(services.ErrValidation, "", "generate image", "prompt required", nil)
	}
	return c.media.GenerateImage(ctx, opts.Model, ImageArguments(prompt, opts))
}

// GenerateVideo runs the image-to-video model and returns the hosted video URL.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, opts VideoOptions) (string, error) {
	if c.media == nil {
		return "", services.Wrap(services.ErrConfiguration, "", "generate video", "media backend not configured", nil)
	}
	if strings.TrimSpace(opts.ImageURL) == "" {
		return "", services.Wrap(services.ErrMissingInput, "", "generate video", "source image url required", nil)
	}
	return c.media.GenerateVideo(ctx, opts.Model, VideoArguments(prompt, opts))
}

// Download saves a generated asset to dest.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	if c.media == nil {
		return services.Wrap(services.ErrConfiguration, "", "download", "media backend not configured", nil)
	}
	return c.media.Download(ctx, url, dest)
}

// UploadAsset publishes a local file and returns its URL.
func (c *Client) UploadAsset(ctx context.Context, path string) (string, error) {
	if c.uploader == nil {
		return "", services.Wrap(services.ErrConfiguration, "", "upload", "uploader not configured", nil)
	}
	return c.uploader.Upload(ctx, path)
}

// BindReference uploads an identity or style reference the first time it is
// requested and returns the cached URL afterwards. Concurrent callers for the
// same path wait on a single upload. Failed uploads are not cached.
func (c *Client) BindReference(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrMissingInput, "", "bind reference", "path required", nil)
	}
	c.mu.Lock()
	if b, ok := c.refs[path]; ok {
		c.mu.Unlock()
		select {
		case <-b.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if b.err == nil {
			return b.url, nil
		}
		return c.BindReference(ctx, path)
	}
	b := &binding{done: make(chan struct{})}
	c.refs[path] = b
	c.mu.Unlock()

	b.url, b.err = c.UploadAsset(ctx, path)
	if b.err != nil {
		c.mu.Lock()
		delete(c.refs, path)
		c.mu.Unlock()
	} else {
		logging.WithContext(ctx, c.logger).Info("reference bound", logging.String("reference_path", path))
	}
	close(b.done)
	if b.err != nil {
		return "", fmt.Errorf("bind reference %s: %w", path, b.err)
	}
	return b.url, nil
}

var _ Adapter = (*Client)(nil)
