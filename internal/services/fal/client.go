package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shotline/internal/fileutil"
	"shotline/internal/retry"
	"shotline/internal/services"
)

const (
	providerName        = "fal"
	defaultQueueURL     = "https://queue.fal.run"
	defaultStorageURL   = "https://rest.alpha.fal.ai/storage/upload/initiate"
	defaultPollInterval = 3 * time.Second
	defaultGenTimeout   = 10 * time.Minute
	defaultHTTPTimeout  = 2 * time.Minute
)

// Queue states reported by the status endpoint.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Config captures the runtime settings for the queue and storage APIs.
type Config struct {
	APIKey            string
	QueueURL          string
	StorageURL        string
	PollInterval      time.Duration
	GenerationTimeout time.Duration
}

// Client talks to the fal queue (submit, poll, result) and storage APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     *retry.Policy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(c *Client) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// NewClient constructs a fal client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.QueueURL = strings.TrimRight(strings.TrimSpace(cfg.QueueURL), "/")
	cfg.StorageURL = strings.TrimSpace(cfg.StorageURL)
	if cfg.QueueURL == "" {
		cfg.QueueURL = defaultQueueURL
	}
	if cfg.StorageURL == "" {
		cfg.StorageURL = defaultStorageURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenTimeout
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		policy:     retry.New(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request identifies a submitted queue job.
type Request struct {
	Model       string `json:"-"`
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

// ImageResult is the subset of an image model response shotline reads.
type ImageResult struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
	Seed int64 `json:"seed"`
}

// VideoResult is the subset of a video model response shotline reads.
type VideoResult struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

// GenerateImage runs an image model to completion and returns the first image URL.
func (c *Client) GenerateImage(ctx context.Context, model string, args map[string]any) (string, error) {
	var result ImageResult
	if err := c.Run(ctx, model, args, &result); err != nil {
		return "", err
	}
	if len(result.Images) == 0 || strings.TrimSpace(result.Images[0].URL) == "" {
		return "", &services.ProviderError{Provider: providerName, Operation: "result " + model, Attempts: 1, Err: errors.New("response contained no images")}
	}
	return result.Images[0].URL, nil
}

// GenerateVideo runs a video model to completion and returns the video URL.
func (c *Client) GenerateVideo(ctx context.Context, model string, args map[string]any) (string, error) {
	var result VideoResult
	if err := c.Run(ctx, model, args, &result); err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Video.URL) == "" {
		return "", &services.ProviderError{Provider: providerName, Operation: "result " + model, Attempts: 1, Err: errors.New("response contained no video")}
	}
	return result.Video.URL, nil
}

// Run submits a job, polls until it completes, and decodes the result into out.
// The whole cycle is bounded by the configured generation timeout.
func (c *Client) Run(ctx context.Context, model string, args map[string]any, out any) error {
	if err := c.requireKey("run"); err != nil {
		return err
	}
	req, err := c.Submit(ctx, model, args)
	if err != nil {
		return err
	}
	if err := c.Wait(ctx, req); err != nil {
		return err
	}
	return c.Result(ctx, req, out)
}

// Submit enqueues a job for model.
func (c *Client) Submit(ctx context.Context, model string, args map[string]any) (Request, error) {
	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		return Request{}, services.Wrap(services.ErrConfiguration, "", "fal submit", "model required", nil)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return Request{}, services.Wrap(services.ErrValidation, "", "fal submit", "encode arguments", err)
	}
	req := Request{Model: model}
	err = c.policy.Do(ctx, providerName, "submit "+model, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, c.cfg.QueueURL+"/"+model, body, &req)
	})
	if err != nil {
		return Request{}, err
	}
	if req.RequestID == "" {
		return Request{}, &services.ProviderError{Provider: providerName, Operation: "submit " + model, Attempts: 1, Err: errors.New("response missing request_id")}
	}
	if req.StatusURL == "" {
		req.StatusURL = fmt.Sprintf("%s/%s/requests/%s/status", c.cfg.QueueURL, model, req.RequestID)
	}
	if req.ResponseURL == "" {
		req.ResponseURL = fmt.Sprintf("%s/%s/requests/%s", c.cfg.QueueURL, model, req.RequestID)
	}
	return req, nil
}

// Status reports the queue state of a submitted job.
func (c *Client) Status(ctx context.Context, req Request) (string, error) {
	var payload struct {
		Status string `json:"status"`
	}
	err := c.policy.Do(ctx, providerName, "status "+req.Model, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, req.StatusURL, nil, &payload)
	})
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(payload.Status)), nil
}

// Wait polls the job status until COMPLETED or the generation timeout elapses.
func (c *Client) Wait(ctx context.Context, req Request) error {
	deadline := time.Now().Add(c.cfg.GenerationTimeout)
	polls := 0
	for {
		polls++
		status, err := c.Status(ctx, req)
		if err != nil {
			return err
		}
		switch status {
		case StatusCompleted:
			return nil
		case StatusInQueue, StatusInProgress:
		default:
			return &services.ProviderError{Provider: providerName, Operation: "status " + req.Model, Attempts: polls, Err: fmt.Errorf("unexpected queue status %q", status)}
		}
		if time.Now().After(deadline) {
			return &services.ProviderError{
				Provider:  providerName,
				Operation: "wait " + req.Model,
				Attempts:  polls,
				Err:       fmt.Errorf("%w: request %s still %s after %s", services.ErrTimeout, req.RequestID, status, c.cfg.GenerationTimeout),
			}
		}
		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Result fetches and decodes the completed job payload.
func (c *Client) Result(ctx context.Context, req Request, out any) error {
	return c.policy.Do(ctx, providerName, "result "+req.Model, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, req.ResponseURL, nil, out)
	})
}

// Upload stores a local file in fal storage and returns its public URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	if err := c.requireKey("upload"); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrMissingInput, "", "fal upload", "read "+path, err)
	}
	contentType := ContentType(path, data)
	initBody, err := json.Marshal(map[string]string{
		"content_type": contentType,
		"file_name":    filepath.Base(path),
	})
	if err != nil {
		return "", fmt.Errorf("fal upload: encode request: %w", err)
	}
	var target struct {
		UploadURL string `json:"upload_url"`
		FileURL   string `json:"file_url"`
	}
	err = c.policy.Do(ctx, providerName, "upload initiate", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, c.cfg.StorageURL, initBody, &target)
	})
	if err != nil {
		return "", err
	}
	if target.UploadURL == "" || target.FileURL == "" {
		return "", &services.ProviderError{Provider: providerName, Operation: "upload initiate", Attempts: 1, Err: errors.New("response missing upload_url or file_url")}
	}
	err = c.policy.Do(ctx, providerName, "upload put", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.UploadURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("fal upload: new request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		_, err = c.do(req, "fal upload")
		return err
	})
	if err != nil {
		return "", err
	}
	return target.FileURL, nil
}

// Download fetches url and writes it atomically to dest.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	var data []byte
	err := c.policy.Do(ctx, providerName, "download", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("fal download: new request: %w", err)
		}
		body, err := c.do(req, "fal download")
		if err != nil {
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return &services.ProviderError{Provider: providerName, Operation: "download", Attempts: 1, Err: errors.New("empty body")}
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return fmt.Errorf("fal download: write %s: %w", dest, err)
	}
	return nil
}

// ContentType guesses a MIME type from the extension, then the content.
func ContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func (c *Client) requireKey(op string) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "", "fal "+op, "api key required (set media.api_key or FAL_KEY)", nil)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("fal request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	payload, err := c.do(req, "fal request")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("fal request: decode response (%s): %w", retry.Snippet(string(payload)), err)
	}
	return nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, retry.StatusError(op, resp, body)
	}
	return body, nil
}
