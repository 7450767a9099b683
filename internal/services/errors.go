package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrStoreCorrupt  = errors.New("store corrupt")
	ErrProvider      = errors.New("provider error")
	ErrMissingInput  = errors.New("missing input")
	ErrTimeout       = errors.New("timeout")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Failure kinds reported in batch summaries and the run ledger.
const (
	KindStoreCorrupt  = "store_corrupt"
	KindProvider      = "provider_error"
	KindTimeout       = "timeout"
	KindMissingInput  = "missing_input"
	KindConfiguration = "configuration"
	KindValidation    = "validation"
	KindFailed        = "failed"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ProviderError reports an external generation call that failed after the
// retry policy gave up. Err carries the last underlying cause.
type ProviderError struct {
	Provider  string
	Operation string
	Attempts  int
	Err       error
}

func (e *ProviderError) Error() string {
	label := strings.TrimSpace(e.Provider)
	if op := strings.TrimSpace(e.Operation); op != "" {
		if label != "" {
			label += " "
		}
		label += op
	}
	if label == "" {
		label = "provider call"
	}
	if e.Timeout() {
		return fmt.Sprintf("%s: timed out after %d attempt(s): %v", label, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: failed after %d attempt(s): %v", label, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Timeout() {
		return []error{ErrProvider, ErrTimeout, e.Err}
	}
	return []error{ErrProvider, e.Err}
}

// Timeout reports whether the last cause was a call exceeding its time budget.
func (e *ProviderError) Timeout() bool {
	if e == nil || e.Err == nil {
		return false
	}
	return IsTimeout(e.Err)
}

// IsTimeout reports whether err represents an exceeded deadline rather than a
// caller cancellation.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FailureKind classifies an error into one of the Kind constants.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreCorrupt):
		return KindStoreCorrupt
	case errors.Is(err, ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	case IsTimeout(err):
		return KindTimeout
	case errors.Is(err, ErrProvider):
		return KindProvider
	default:
		return KindFailed
	}
}

// Fatal reports whether err must abort a whole run instead of being isolated
// to a single shot.
func Fatal(err error) bool {
	return errors.Is(err, ErrStoreCorrupt) || errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
