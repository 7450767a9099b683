package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shotline/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMissingInput, "stills_prompt", "resolve scene", "scene missing", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"stills_prompt", "resolve scene", "scene missing"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestProviderErrorClassification(t *testing.T) {
	cause := errors.New("503 service unavailable")
	err := error(&services.ProviderError{Provider: "fal", Operation: "generate image", Attempts: 5, Err: cause})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker, got %v", err)
	}
	if errors.Is(err, services.ErrTimeout) {
		t.Fatalf("did not expect timeout marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected last cause to be retained")
	}
	if kind := services.FailureKind(err); kind != services.KindProvider {
		t.Fatalf("expected provider kind, got %s", kind)
	}
	if !strings.Contains(err.Error(), "5 attempt") {
		t.Fatalf("expected attempt count in %q", err.Error())
	}
}

func TestProviderErrorTimeoutVariant(t *testing.T) {
	err := error(&services.ProviderError{
		Provider: "fal",
		Attempts: 2,
		Err:      fmt.Errorf("poll result: %w", context.DeadlineExceeded),
	})
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected timeout variant of provider error, got %v", err)
	}
	if kind := services.FailureKind(err); kind != services.KindTimeout {
		t.Fatalf("expected timeout kind, got %s", kind)
	}
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrStoreCorrupt, "store", "load", "bad json", nil), services.KindStoreCorrupt},
		{services.Wrap(services.ErrMissingInput, "stills_inspect", "read prompt", "", nil), services.KindMissingInput},
		{services.Wrap(services.ErrValidation, "patch", "", "unknown shot", nil), services.KindValidation},
		{errors.New("plain"), services.KindFailed},
	}
	for _, tc := range cases {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFatalOnlyForStoreAndConfig(t *testing.T) {
	if !services.Fatal(services.Wrap(services.ErrStoreCorrupt, "store", "load", "", nil)) {
		t.Fatal("expected store corruption to be fatal")
	}
	if !services.Fatal(services.Wrap(services.ErrConfiguration, "config", "load", "", nil)) {
		t.Fatal("expected configuration failure to be fatal")
	}
	if services.Fatal(&services.ProviderError{Err: errors.New("x")}) {
		t.Fatal("provider failures must stay isolated")
	}
}
