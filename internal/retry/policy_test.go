package retry_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"shotline/internal/retry"
	"shotline/internal/services"
)

func recordSleeps(sleeps *[]time.Duration) retry.Option {
	return retry.WithSleeper(func(d time.Duration) { *sleeps = append(*sleeps, d) })
}

func TestDoRetriesServerErrorsWithBackoff(t *testing.T) {
	var sleeps []time.Duration
	policy := retry.New(retry.WithBackoff(2*time.Second, 5*time.Second), recordSleeps(&sleeps))

	calls := 0
	err := policy.Do(context.Background(), "fal", "generate image", func(context.Context) error {
		calls++
		if calls < 4 {
			return &retry.HTTPStatusError{StatusCode: http.StatusBadGateway, Body: "upstream"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleep %d = %s, want %s", i, sleeps[i], want[i])
		}
	}
}

func TestDoExhaustsAttemptsIntoProviderError(t *testing.T) {
	var sleeps []time.Duration
	policy := retry.New(retry.WithMaxAttempts(5), recordSleeps(&sleeps))

	calls := 0
	last := &retry.HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Body: "busy"}
	err := policy.Do(context.Background(), "llm", "complete", func(context.Context) error {
		calls++
		return last
	})
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
	var providerErr *services.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T %v", err, err)
	}
	if providerErr.Attempts != 5 {
		t.Fatalf("expected attempts=5, got %d", providerErr.Attempts)
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected last cause to be carried")
	}
	if len(sleeps) != 4 {
		t.Fatalf("expected 4 sleeps, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d > retry.DefaultMaxDelay {
			t.Fatalf("sleep %s exceeds cap", d)
		}
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	policy := retry.New(retry.WithSleeper(func(time.Duration) {}))
	calls := 0
	err := policy.Do(context.Background(), "fal", "submit", func(context.Context) error {
		calls++
		return &retry.HTTPStatusError{StatusCode: http.StatusUnprocessableEntity, Body: "bad prompt"}
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestDoHonorsRetryAfter(t *testing.T) {
	var sleeps []time.Duration
	policy := retry.New(recordSleeps(&sleeps))
	calls := 0
	_ = policy.Do(context.Background(), "llm", "complete", func(context.Context) error {
		calls++
		if calls == 1 {
			return &retry.HTTPStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 7 * time.Second}
		}
		return nil
	})
	if len(sleeps) != 1 || sleeps[0] != 7*time.Second {
		t.Fatalf("expected Retry-After delay, got %v", sleeps)
	}
}

func TestDoReturnsLocalErrorsUnwrapped(t *testing.T) {
	policy := retry.New()
	local := services.Wrap(services.ErrMissingInput, "upload", "open", "reference missing", nil)
	err := policy.Do(context.Background(), "fal", "upload", func(context.Context) error { return local })
	if err != local {
		t.Fatalf("expected local error unchanged, got %v", err)
	}
}

func TestDoAttemptTimeoutIsTimeoutVariant(t *testing.T) {
	policy := retry.New(
		retry.WithMaxAttempts(2),
		retry.WithAttemptTimeout(10*time.Millisecond),
		retry.WithSleeper(func(time.Duration) {}),
	)
	calls := 0
	err := policy.Do(context.Background(), "fal", "poll", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	if calls != 2 {
		t.Fatalf("expected timeouts to be retried, got %d calls", calls)
	}
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected timeout provider error, got %v", err)
	}
	if kind := services.FailureKind(err); kind != services.KindTimeout {
		t.Fatalf("expected timeout kind, got %s", kind)
	}
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.New(retry.WithSleeper(func(time.Duration) { cancel() }))
	calls := 0
	err := policy.Do(ctx, "llm", "complete", func(context.Context) error {
		calls++
		return &retry.HTTPStatusError{StatusCode: http.StatusInternalServerError}
	})
	if calls != 1 {
		t.Fatalf("expected cancellation to stop retries, got %d calls", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := retry.ParseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("unexpected parse: %v %v", d, ok)
	}
	if _, ok := retry.ParseRetryAfter("-1"); ok {
		t.Fatal("expected negative value to be rejected")
	}
	if _, ok := retry.ParseRetryAfter("soon"); ok {
		t.Fatal("expected garbage to be rejected")
	}
}
