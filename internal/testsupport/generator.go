package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"shotline/internal/generation"
)

// FakeGenerator implements generation.Adapter without network access. Nil
// hooks fall back to deterministic canned behavior. It records every call and
// is safe for concurrent use.
type FakeGenerator struct {
	Text     func(ctx context.Context, system, user string) (string, error)
	Image    func(ctx context.Context, prompt string, opts generation.ImageOptions) (string, error)
	Video    func(ctx context.Context, prompt string, opts generation.VideoOptions) (string, error)
	Fetch    func(ctx context.Context, url, dest string) error
	Upload   func(ctx context.Context, path string) (string, error)
	Model    string
	TextBody string

	mu          sync.Mutex
	textCalls   []string
	imageCalls  []generation.ImageOptions
	imagePrompt []string
	videoCalls  []generation.VideoOptions
	uploads     []string
	references  []string
	downloads   []string
}

var _ generation.Adapter = (*FakeGenerator)(nil)

func (f *FakeGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, user)
	f.mu.Unlock()
	if f.Text != nil {
		return f.Text(ctx, system, user)
	}
	if f.TextBody != "" {
		return f.TextBody, nil
	}
	return "Cinematic medium shot of the Princess on a windswept cliff, warm rim light.", nil
}

func (f *FakeGenerator) GenerateImage(ctx context.Context, prompt string, opts generation.ImageOptions) (string, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, opts)
	f.imagePrompt = append(f.imagePrompt, prompt)
	n := len(f.imageCalls)
	f.mu.Unlock()
	if f.Image != nil {
		return f.Image(ctx, prompt, opts)
	}
	return fmt.Sprintf("https://media.test/image/%d.jpg", n), nil
}

func (f *FakeGenerator) GenerateVideo(ctx context.Context, prompt string, opts generation.VideoOptions) (string, error) {
	f.mu.Lock()
	f.videoCalls = append(f.videoCalls, opts)
	n := len(f.videoCalls)
	f.mu.Unlock()
	if f.Video != nil {
		return f.Video(ctx, prompt, opts)
	}
	return fmt.Sprintf("https://media.test/video/%d.mp4", n), nil
}

// Download writes the url as the file body unless Fetch is set.
func (f *FakeGenerator) Download(ctx context.Context, url, dest string) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, dest)
	f.mu.Unlock()
	if f.Fetch != nil {
		return f.Fetch(ctx, url, dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(url), 0o644)
}

func (f *FakeGenerator) UploadAsset(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, path)
	f.mu.Unlock()
	if f.Upload != nil {
		return f.Upload(ctx, path)
	}
	return "https://media.test/upload/" + filepath.Base(path), nil
}

func (f *FakeGenerator) BindReference(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	f.references = append(f.references, path)
	f.mu.Unlock()
	return "https://media.test/ref/" + filepath.Base(path), nil
}

func (f *FakeGenerator) TextModel() string {
	if f.Model != "" {
		return f.Model
	}
	return "fake/model"
}

// TextCalls returns the user prompts passed to GenerateText.
func (f *FakeGenerator) TextCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.textCalls...)
}

// ImageCalls returns the options of every image request.
func (f *FakeGenerator) ImageCalls() []generation.ImageOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generation.ImageOptions(nil), f.imageCalls...)
}

// VideoCalls returns the options of every video request.
func (f *FakeGenerator) VideoCalls() []generation.VideoOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generation.VideoOptions(nil), f.videoCalls...)
}

// Uploads returns the local paths passed to UploadAsset.
func (f *FakeGenerator) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

// References returns the paths passed to BindReference.
func (f *FakeGenerator) References() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.references...)
}

// Downloads returns the destination paths passed to Download.
func (f *FakeGenerator) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}
