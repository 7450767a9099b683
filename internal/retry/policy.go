package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shotline/internal/services"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// Policy describes how often and how patiently an external call is retried.
type Policy struct {
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	sleeper        func(time.Duration)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithMaxAttempts overrides the attempt budget (defaults to 5).
func WithMaxAttempts(attempts int) Option {
	return func(p *Policy) {
		p.maxAttempts = attempts
	}
}

// WithBackoff overrides the base and maximum delays.
func WithBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(p *Policy) {
		p.baseDelay = baseDelay
		p.maxDelay = maxDelay
	}
}

// WithAttemptTimeout bounds each individual attempt. Zero disables the bound.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(p *Policy) {
		p.attemptTimeout = timeout
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Policy) {
		p.sleeper = sleeper
	}
}

// New constructs a policy with defaults overridden by opts.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts reports the configured attempt budget.
func (p *Policy) MaxAttempts() int {
	if p == nil || p.maxAttempts <= 0 {
		return 1
	}
	return p.maxAttempts
}

// Do invokes fn until it succeeds, fails permanently, or the attempt budget is
// spent. provider and operation label the resulting ProviderError.
func (p *Policy) Do(ctx context.Context, provider, operation string, fn func(context.Context) error) error {
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	attempts := p.MaxAttempts()
	var lastErr error
	attempt := 0
	for attempt < attempts {
		attempt++
		err := p.runAttempt(ctx, fn)
		if err == nil {
			return nil
		}
		if isLocal(err) {
			return err
		}
		lastErr = err
		delay, retry := p.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			lastErr = fmt.Errorf("%w (retry interrupted: %v)", err, sleepErr)
			break
		}
	}
	return &services.ProviderError{
		Provider:  provider,
		Operation: operation,
		Attempts:  attempt,
		Err:       lastErr,
	}
}

func (p *Policy) runAttempt(ctx context.Context, fn func(context.Context) error) error {
	if p == nil || p.attemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()
	err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: attempt exceeded %s: %w", services.ErrTimeout, p.attemptTimeout, err)
	}
	return err
}

// isLocal reports failures that originate on this side of the network and
// cannot be fixed by asking again.
func isLocal(err error) bool {
	return errors.Is(err, services.ErrMissingInput) ||
		errors.Is(err, services.ErrValidation) ||
		errors.Is(err, services.ErrConfiguration)
}

func (p *Policy) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, services.ErrTimeout) {
		return p.backoffDelay(attempt), true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if !statusErr.Retryable() {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return p.capDelay(statusErr.RetryAfter), true
		}
		return p.backoffDelay(attempt), true
	}

	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		if retryable.IsRetryable() {
			return p.backoffDelay(attempt), true
		}
		return 0, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return p.backoffDelay(attempt), true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return p.backoffDelay(attempt), true
	}

	return 0, false
}

func (p *Policy) backoffDelay(attempt int) time.Duration {
	base := DefaultBaseDelay
	maxDelay := DefaultMaxDelay
	if p != nil {
		if p.baseDelay >= 0 {
			base = p.baseDelay
		}
		if p.maxDelay > 0 {
			maxDelay = p.maxDelay
		}
	}
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p *Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := DefaultMaxDelay
	if p != nil && p.maxDelay > 0 {
		maxDelay = p.maxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p *Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p != nil && p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HTTPStatusError reports a non-2xx response from a provider endpoint.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	op := e.Op
	if op == "" {
		op = "request"
	}
	return fmt.Sprintf("%s: http %d: %s", op, e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether the status code is worth another attempt.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// StatusError builds an HTTPStatusError from a response whose body has already
// been read.
func StatusError(op string, resp *http.Response, body []byte) *HTTPStatusError {
	retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
	return &HTTPStatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       Snippet(string(body)),
		RetryAfter: retryAfter,
	}
}

// ParseRetryAfter accepts both delta-seconds and HTTP-date forms.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// Snippet collapses whitespace and truncates a response body for error messages.
func Snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
