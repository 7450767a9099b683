package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shotline/internal/batch"
	"shotline/internal/logging"
	"shotline/internal/preflight"
	"shotline/internal/review"
	"shotline/internal/runlog"
	"shotline/internal/services"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

const reviewLockTimeout = 5 * time.Second

// NewRouter builds the chi router for cfg.
func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler())
		r.Get("/status", statusHandler(cfg))
		r.Get("/shots", listShotsHandler(cfg))
		r.Get("/shots/{id}", getShotHandler(cfg))
		r.Post("/shots/{id}/review", reviewHandler(cfg))
		r.Post("/stages/{stage}/run", runStageHandler(cfg))
		r.Get("/history", historyHandler(cfg))
		r.Get("/history/{id}", batchHandler(cfg))
	})

	return r
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		probe := preflight.ProbeBoard(cfg.Config)
		resp := StatusResponse{
			Board: FromBoardProbe(probe),
			PendingReview: map[string]int{
				string(shots.TrackStills): probe.Summary.Count(shots.TrackStills, shots.TrackStills.ReadyStatus()),
				string(shots.TrackVideo):  probe.Summary.Count(shots.TrackVideo, shots.TrackVideo.ReadyStatus()),
			},
			Stages: StageHealthSlice(stage.CheckAll(ctx, stage.Deps{
				Config:    cfg.Config,
				Generator: cfg.Generator,
				Logger:    cfg.Logger,
			})),
		}
		if cfg.History != nil {
			if batches, err := cfg.History.Batches(ctx, "", 1); err == nil && len(batches) > 0 {
				last := FromBatch(batches[0], nil)
				resp.LastBatch = &last
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, ok := loadBoard(w, cfg)
		if !ok {
			return
		}
		query := r.URL.Query()
		status := shots.Status(strings.ToUpper(strings.TrimSpace(query.Get("status"))))
		track := shots.TrackStills
		if raw := query.Get("track"); raw != "" {
			parsed, err := shots.ParseTrack(raw)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			track = parsed
		}
		resp := ShotListResponse{Shots: make([]Shot, 0, board.Len())}
		for _, shot := range board.Shots() {
			if status != "" && shot.Track(track).Status != status {
				continue
			}
			resp.Shots = append(resp.Shots, FromShot(shot))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, ok := loadBoard(w, cfg)
		if !ok {
			return
		}
		id := strings.ToUpper(chi.URLParam(r, "id"))
		shot, found := board.Get(id)
		if !found {
			WriteError(w, http.StatusNotFound, "shot not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, FromShot(shot))
	}
}

func reviewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		track, err := shots.ParseTrack(req.Track)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		id := strings.ToUpper(chi.URLParam(r, "id"))
		now := cfg.now()

		var decide func(*shots.Board) error
		switch strings.ToLower(strings.TrimSpace(req.Decision)) {
		case "approve":
			decide = func(b *shots.Board) error { return review.Approve(b, []string{id}, track, req.Notes, now) }
		case "reject":
			if strings.TrimSpace(req.Notes) == "" {
				WriteError(w, http.StatusBadRequest, "notes are required when rejecting", "BAD_REQUEST")
				return
			}
			decide = func(b *shots.Board) error { return review.Reject(b, []string{id}, track, req.Notes, now) }
		default:
			WriteError(w, http.StatusBadRequest, "decision must be approve or reject", "BAD_REQUEST")
			return
		}

		var updated Shot
		err = shots.Update(r.Context(), cfg.Config.Paths.ShotsBoard, cfg.Config.BoardLockPath(), reviewLockTimeout, func(b *shots.Board) (bool, error) {
			if err := decide(b); err != nil {
				return false, err
			}
			shot, _ := b.Get(id)
			updated = FromShot(shot)
			return true, nil
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)
	}
}

func runStageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "stage runner unavailable", "UNAVAILABLE")
			return
		}
		name, err := stage.ParseName(chi.URLParam(r, "stage"))
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		var req RunRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		filter, err := shots.ParseFilter(req.Range)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err := name.Requires(cfg.Config); err != nil {
			WriteError(w, http.StatusPreconditionFailed, err.Error(), "CONFIGURATION")
			return
		}
		summary, err := cfg.Runner.Run(r.Context(), batch.Options{
			Stage:   name,
			Filter:  filter,
			Workers: req.Workers,
			Timeout: time.Duration(req.TimeoutSeconds) * time.Second,
			Force:   req.Force,
			Clean:   req.Clean,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, FromSummary(summary))
	}
}

func historyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.History == nil {
			WriteError(w, http.StatusServiceUnavailable, "run history unavailable", "UNAVAILABLE")
			return
		}
		query := r.URL.Query()
		var name stage.Name
		if raw := query.Get("stage"); raw != "" {
			parsed, err := stage.ParseName(raw)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			name = parsed
		}
		limit := 20
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}
		batches, err := cfg.History.Batches(r.Context(), name, limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		resp := HistoryResponse{Batches: make([]BatchSummary, 0, len(batches))}
		for _, b := range batches {
			resp.Batches = append(resp.Batches, FromBatch(b, nil))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func batchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.History == nil {
			WriteError(w, http.StatusServiceUnavailable, "run history unavailable", "UNAVAILABLE")
			return
		}
		b, runs, err := cfg.History.Batch(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, runlog.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "batch not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, FromBatch(b, runs))
	}
}

func loadBoard(w http.ResponseWriter, cfg ServerConfig) (*shots.Board, bool) {
	board, err := shots.Load(cfg.Config.Paths.ShotsBoard)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return board, true
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shots.ErrLocked):
		WriteError(w, http.StatusConflict, err.Error(), "LOCKED")
	case errors.Is(err, services.ErrMissingInput):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, services.ErrValidation):
		WriteError(w, http.StatusConflict, err.Error(), "INVALID_STATE")
	case errors.Is(err, services.ErrConfiguration):
		WriteError(w, http.StatusPreconditionFailed, err.Error(), "CONFIGURATION")
	case errors.Is(err, services.ErrStoreCorrupt):
		WriteError(w, http.StatusInternalServerError, err.Error(), "STORE_CORRUPT")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
