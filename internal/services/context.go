package services

import "context"

type contextKey string

const (
	shotIDKey    contextKey = "shot_id"
	stageKey     contextKey = "stage"
	trackKey     contextKey = "track"
	batchIDKey   contextKey = "batch_id"
	requestIDKey contextKey = "request_id"
)

// WithShotID annotates context with the shot identifier being processed.
func WithShotID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, shotIDKey, id)
}

// ShotIDFromContext extracts the shot identifier if present.
func ShotIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(shotIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithTrack annotates context with the shot track (stills or video).
func WithTrack(ctx context.Context, track string) context.Context {
	if track == "" {
		return ctx
	}
	return context.WithValue(ctx, trackKey, track)
}

// TrackFromContext returns the track name if present.
func TrackFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(trackKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithBatchID annotates context with the batch run identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch run identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
