package fal_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"shotline/internal/retry"
	"shotline/internal/services"
	"shotline/internal/services/fal"
)

func newTestClient(server *httptest.Server, timeout time.Duration) *fal.Client {
	return fal.NewClient(fal.Config{
		APIKey:            "fal-secret",
		QueueURL:          server.URL,
		StorageURL:        server.URL + "/storage/upload/initiate",
		PollInterval:      time.Millisecond,
		GenerationTimeout: timeout,
	}, fal.WithRetryPolicy(retry.New(retry.WithSleeper(func(time.Duration) {}))))
}

func TestGenerateImageSubmitsPollsAndFetches(t *testing.T) {
	var polls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Key fal-secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/fal-ai/flux-lora":
			var args map[string]any
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				t.Errorf("decode args: %v", err)
			}
			if args["prompt"] != "a lone figure" {
				t.Errorf("unexpected args %v", args)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"request_id":   "req-1",
				"status_url":   server.URL + "/fal-ai/flux-lora/requests/req-1/status",
				"response_url": server.URL + "/fal-ai/flux-lora/requests/req-1",
			})
		case r.URL.Path == "/fal-ai/flux-lora/requests/req-1/status":
			status := fal.StatusInProgress
			if polls.Add(1) >= 2 {
				status = fal.StatusCompleted
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
		case r.URL.Path == "/fal-ai/flux-lora/requests/req-1":
			_, _ = io.WriteString(w, `{"images":[{"url":"https://cdn.example/img.jpg"}]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server, time.Minute)
	url, err := client.GenerateImage(context.Background(), "fal-ai/flux-lora", map[string]any{"prompt": "a lone figure"})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if url != "https://cdn.example/img.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if polls.Load() != 2 {
		t.Fatalf("expected 2 polls, got %d", polls.Load())
	}
}

func TestWaitTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"request_id":"slow"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"IN_QUEUE"}`)
	}))
	defer server.Close()

	client := newTestClient(server, 5*time.Millisecond)
	_, err := client.GenerateVideo(context.Background(), "fal-ai/kling", map[string]any{"prompt": "x"})
	var providerErr *services.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !providerErr.Timeout() || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout variant, got %v", err)
	}
}

func TestSubmitRetriesRateLimit(t *testing.T) {
	var submits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if submits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"request_id":"r2"}`)
	}))
	defer server.Close()

	req, err := newTestClient(server, time.Minute).Submit(context.Background(), "fal-ai/flux-lora", map[string]any{})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if req.RequestID != "r2" || req.StatusURL != server.URL+"/fal-ai/flux-lora/requests/r2/status" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestUploadInitiatesAndPuts(t *testing.T) {
	var put atomic.Bool
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/storage/upload/initiate":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["file_name"] != "face.png" || body["content_type"] != "image/png" {
				t.Errorf("unexpected initiate body %v", body)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"upload_url": server.URL + "/put/face.png",
				"file_url":   "https://v3.fal.media/files/face.png",
			})
		case "/put/face.png":
			data, _ := io.ReadAll(r.Body)
			if r.Method != http.MethodPut || string(data) != "png-bytes" {
				t.Errorf("unexpected upload %s %q", r.Method, data)
			}
			put.Store(true)
		}
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "face.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	url, err := newTestClient(server, time.Minute).Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://v3.fal.media/files/face.png" || !put.Load() {
		t.Fatalf("unexpected upload result %q put=%v", url, put.Load())
	}
}

func TestUploadMissingFileIsLocal(t *testing.T) {
	client := fal.NewClient(fal.Config{APIKey: "k", QueueURL: "http://127.0.0.1:1"})
	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.png"))
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
}

func TestDownloadWritesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "jpeg-data")
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "images", "SHOT_001_v1.jpg")
	if err := newTestClient(server, time.Minute).Download(context.Background(), server.URL+"/img.jpg", dest); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "jpeg-data" {
		t.Fatalf("unexpected file %q %v", data, err)
	}
}

func TestRunRequiresKey(t *testing.T) {
	client := fal.NewClient(fal.Config{})
	err := client.Run(context.Background(), "fal-ai/flux-lora", nil, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
