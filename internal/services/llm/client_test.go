package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shotline/internal/retry"
	"shotline/internal/services"
	"shotline/internal/services/llm"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func noSleep() *retry.Policy {
	return retry.New(retry.WithSleeper(func(time.Duration) {}))
}

func TestCompleteTextSendsPrompts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "shotline" {
			t.Errorf("unexpected title header %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "demo-model" || len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "describe SHOT_001" {
			t.Errorf("unexpected request %+v", req)
		}
		writeCompletion(t, w, "  At T=0 the figure stands still.  ")
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{APIKey: "secret", BaseURL: server.URL, Model: "demo-model", Title: "shotline"})
	got, err := client.CompleteText(context.Background(), "system rules", "describe SHOT_001")
	if err != nil {
		t.Fatalf("CompleteText returned error: %v", err)
	}
	if got != "At T=0 the figure stands still." {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestCompleteTextRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeCompletion(t, w, "ok")
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL}, llm.WithRetryPolicy(noSleep()))
	got, err := client.CompleteText(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("CompleteText returned error: %v", err)
	}
	if got != "ok" || calls.Load() != 3 {
		t.Fatalf("got %q after %d calls", got, calls.Load())
	}
}

func TestCompleteTextRetriesEmptyContent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeCompletion(t, w, "")
			return
		}
		writeCompletion(t, w, "second try")
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL}, llm.WithRetryPolicy(noSleep()))
	got, err := client.CompleteText(context.Background(), "", "hello")
	if err != nil || got != "second try" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestCompleteTextUnauthorizedIsProviderError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{APIKey: "bad", BaseURL: server.URL}, llm.WithRetryPolicy(noSleep()))
	_, err := client.CompleteText(context.Background(), "", "hello")
	var providerErr *services.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T %v", err, err)
	}
	if providerErr.Attempts != 1 || calls.Load() != 1 {
		t.Fatalf("401 must not be retried: attempts=%d calls=%d", providerErr.Attempts, calls.Load())
	}
	var statusErr *retry.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
}

func TestCompleteTextRequiresAPIKey(t *testing.T) {
	client := llm.NewClient(llm.Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.CompleteText(context.Background(), "", "hello")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthCheckAcceptsCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "```json\n{\"ok\":true}\n```")
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":          `{"a":1}`,
		"```\nCamera: slow push in\n```":   "Camera: slow push in",
		"plain text":                       "plain text",
		"```Camera: pan left```":           "Camera: pan left",
	}
	for input, want := range cases {
		if got := llm.StripCodeFence(input); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", input, got, want)
		}
	}
}
