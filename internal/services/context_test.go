package services_test

import (
	"context"
	"testing"

	"shotline/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithShotID(ctx, "SHOT_004")
	ctx = services.WithStage(ctx, "stills_generate")
	ctx = services.WithTrack(ctx, "stills")
	ctx = services.WithBatchID(ctx, "b-1")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ShotIDFromContext(ctx); !ok || id != "SHOT_004" {
		t.Fatalf("unexpected shot id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "stills_generate" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if track, ok := services.TrackFromContext(ctx); !ok || track != "stills" {
		t.Fatalf("unexpected track: %v %v", track, ok)
	}
	if id, ok := services.BatchIDFromContext(ctx); !ok || id != "b-1" {
		t.Fatalf("unexpected batch id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
