package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shotline/internal/config"
)

const userAgent = "Shotline-Go/0.1.0"

// Event names a notification category.
type Event string

const (
	EventBatchStarted   Event = "batch_started"
	EventBatchCompleted Event = "batch_completed"
	EventReviewPending  Event = "review_pending"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batch:    cfg.Notifications.Batch,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	batch    bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchStarted:
		// Start events are only logged; completion carries the useful counts.
		return message{}, false
	case EventBatchCompleted:
		if !n.batch {
			return message{}, false
		}
		return batchCompleted(payload), true
	case EventReviewPending:
		if !n.batch {
			return message{}, false
		}
		count := intValue(payload["count"])
		if count == 0 {
			return message{}, false
		}
		track := stringValue(payload["track"])
		return message{
			title: "Shotline - Review Needed",
			body:  fmt.Sprintf("🖼️ %d %s asset(s) waiting for review", count, track),
			tags:  []string{"shotline", "review", track},
		}, true
	case EventError:
		if !n.errors {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := stringValue(payload["context"]); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if text := stringValue(payload["error"]); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Shotline - Error",
			body:     b.String(),
			tags:     []string{"shotline", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Shotline - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"shotline", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func batchCompleted(payload Payload) message {
	stage := stringValue(payload["stage"])
	succeeded := intValue(payload["succeeded"])
	skipped := intValue(payload["skipped"])
	failed := intValue(payload["failed"]) + intValue(payload["incomplete"])
	duration, _ := payload["duration"].(time.Duration)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	msg := message{tags: []string{"shotline", "batch", stage}}
	if failed == 0 {
		msg.title = "Shotline - Batch Complete"
		msg.body = fmt.Sprintf("✅ %s: %d succeeded, %d skipped in %s", stage, succeeded, skipped, duration)
	} else {
		msg.title = "Shotline - Batch Complete (with errors)"
		msg.body = fmt.Sprintf("⚠️ %s: %d succeeded, %d skipped, %d failed in %s", stage, succeeded, skipped, failed, duration)
		msg.priority = "high"
	}
	return msg
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case error:
		return strings.TrimSpace(value.Error())
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func intValue(v any) int {
	switch value := v.(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
