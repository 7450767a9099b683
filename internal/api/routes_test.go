package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shotline/internal/api"
	"shotline/internal/batch"
	"shotline/internal/config"
	"shotline/internal/runlog"
	"shotline/internal/shots"
	"shotline/internal/stage"
	"shotline/internal/testsupport"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeRunner struct {
	opts    []batch.Options
	summary batch.Summary
	err     error
}

func (f *fakeRunner) Run(_ context.Context, opts batch.Options) (batch.Summary, error) {
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return batch.Summary{}, f.err
	}
	s := f.summary
	s.Stage = opts.Stage
	s.Filter = opts.Filter.String()
	return s, nil
}

type fakeHistory struct {
	batches []runlog.Batch
	runs    map[string][]runlog.ShotRun
}

func (f *fakeHistory) Batches(_ context.Context, name stage.Name, limit int) ([]runlog.Batch, error) {
	var out []runlog.Batch
	for _, b := range f.batches {
		if name != "" && b.Stage != name {
			continue
		}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeHistory) Batch(_ context.Context, id string) (runlog.Batch, []runlog.ShotRun, error) {
	for _, b := range f.batches {
		if b.ID == id {
			return b, f.runs[id], nil
		}
	}
	return runlog.Batch{}, nil, fmt.Errorf("%w: %s", runlog.ErrNotFound, id)
}

func newTestRouter(t *testing.T, cfg *config.Config, runner *fakeRunner, history *fakeHistory) http.Handler {
	t.Helper()
	sc := api.ServerConfig{
		Config:    cfg,
		Runner:    runner,
		Generator: &testsupport.FakeGenerator{},
		Now:       func() time.Time { return fixedNow },
	}
	if history != nil {
		sc.History = history
	}
	return api.NewRouter(sc)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func seedBoard(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteBoard(t, cfg, testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001", Stills: shots.StatusImageReady, StillsAsset: "production/images/SHOT_001_v1.jpg", Version: 1},
		testsupport.ShotSpec{ID: "SHOT_002", Stills: shots.StatusPending},
	))
	testsupport.WriteFile(t, testsupport.ProjectFile(cfg, "production", "images", "SHOT_001_v1.jpg"), "jpeg")
}

func TestStatusReportsBoardAndStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedBoard(t, cfg)
	testsupport.WriteScenes(t, cfg, "1.1")
	history := &fakeHistory{batches: []runlog.Batch{{ID: "b-1", Stage: stage.StillsGenerate, Succeeded: 1, Selected: 1}}}
	h := newTestRouter(t, cfg, &fakeRunner{}, history)

	rr := do(t, h, http.MethodGet, "/api/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	resp := decode[api.StatusResponse](t, rr)
	if !resp.Board.Loaded || resp.Board.Total != 2 {
		t.Fatalf("board = %+v", resp.Board)
	}
	if resp.Board.Stills["IMAGE_READY"] != 1 || resp.PendingReview["stills"] != 1 {
		t.Fatalf("counts = %+v pending = %+v", resp.Board.Stills, resp.PendingReview)
	}
	if len(resp.Stages) != len(stage.Names()) {
		t.Fatalf("stages = %+v", resp.Stages)
	}
	if resp.LastBatch == nil || resp.LastBatch.ID != "b-1" || resp.LastBatch.Counts["success"] != 1 {
		t.Fatalf("last batch = %+v", resp.LastBatch)
	}
}

func TestListAndGetShots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedBoard(t, cfg)
	h := newTestRouter(t, cfg, &fakeRunner{}, nil)

	list := decode[api.ShotListResponse](t, do(t, h, http.MethodGet, "/api/shots", ""))
	if len(list.Shots) != 2 || list.Shots[0].ID != "SHOT_001" {
		t.Fatalf("shots = %+v", list.Shots)
	}
	filtered := decode[api.ShotListResponse](t, do(t, h, http.MethodGet, "/api/shots?track=stills&status=pending", ""))
	if len(filtered.Shots) != 1 || filtered.Shots[0].ID != "SHOT_002" {
		t.Fatalf("filtered = %+v", filtered.Shots)
	}

	rr := do(t, h, http.MethodGet, "/api/shots/shot_001", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	shot := decode[api.Shot](t, rr)
	if shot.Stills.Status != "IMAGE_READY" || shot.Stills.Version != 1 || shot.SceneRef != "1.1" {
		t.Fatalf("shot = %+v", shot)
	}

	if rr := do(t, h, http.MethodGet, "/api/shots/SHOT_404", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing shot code = %d", rr.Code)
	}
}

func TestShotsWithoutBoard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newTestRouter(t, cfg, &fakeRunner{}, nil)
	rr := do(t, h, http.MethodGet, "/api/shots", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rr.Code)
	}
	if got := decode[api.ErrorResponse](t, rr); got.Code != "NOT_FOUND" {
		t.Fatalf("error = %+v", got)
	}
}

func TestReviewApproveAndReject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedBoard(t, cfg)
	h := newTestRouter(t, cfg, &fakeRunner{}, nil)

	rr := do(t, h, http.MethodPost, "/api/shots/SHOT_001/review", `{"track":"stills","decision":"approve","notes":"keep"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("approve code = %d: %s", rr.Code, rr.Body.String())
	}
	shot := decode[api.Shot](t, rr)
	if shot.Stills.Status != "APPROVED" || shot.Video.Status != "READY_FOR_PROMPT" {
		t.Fatalf("shot = %+v", shot)
	}
	saved := testsupport.MustShot(t, testsupport.LoadBoard(t, cfg), "SHOT_001")
	if saved.Stills.Status != shots.StatusApproved || saved.Stills.UpdatedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("saved stills = %+v", saved.Stills)
	}

	// Already approved, so a second decision is a state conflict.
	rr = do(t, h, http.MethodPost, "/api/shots/SHOT_001/review", `{"track":"stills","decision":"reject","notes":"no"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("reject approved code = %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/shots/SHOT_002/review", `{"track":"stills","decision":"reject"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("reject without notes code = %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/api/shots/SHOT_001/review", `{"track":"audio","decision":"approve"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad track code = %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/api/shots/SHOT_009/review", `{"track":"stills","decision":"approve"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing shot code = %d", rr.Code)
	}
}

func TestRunStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{summary: batch.Summary{
		BatchID:    "batch-1",
		StartedAt:  fixedNow,
		FinishedAt: fixedNow.Add(2 * time.Second),
		Selected:   1,
		Saved:      true,
		Results: []batch.ShotResult{
			{ShotID: "SHOT_001", Result: stage.ResultSuccess, Detail: "production/images/SHOT_001_v2.jpg", Duration: time.Second},
		},
	}}
	h := newTestRouter(t, cfg, runner, nil)

	rr := do(t, h, http.MethodPost, "/api/stages/stills-generate/run", `{"range":"1-2","force":true,"workers":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rr.Code, rr.Body.String())
	}
	if len(runner.opts) != 1 {
		t.Fatalf("runner calls = %d", len(runner.opts))
	}
	opts := runner.opts[0]
	if opts.Stage != stage.StillsGenerate || !opts.Force || opts.Workers != 2 || !opts.Filter.Match("SHOT_002") || opts.Filter.Match("SHOT_003") {
		t.Fatalf("options = %+v", opts)
	}
	resp := decode[api.BatchSummary](t, rr)
	if resp.ID != "batch-1" || resp.DurationMs != 2000 || resp.Counts["success"] != 1 || len(resp.Results) != 1 {
		t.Fatalf("summary = %+v", resp)
	}
	if resp.StartedAt != "2026-01-02T03:04:05.000Z" {
		t.Fatalf("startedAt = %q", resp.StartedAt)
	}

	if rr := do(t, h, http.MethodPost, "/api/stages/stills_prompt/run", ""); rr.Code != http.StatusOK {
		t.Fatalf("empty body code = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/api/stages/audio_mix/run", "{}"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown stage code = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/api/stages/stills_prompt/run", `{"range":"5-1"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad range code = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/api/stages/stills_prompt/run", `{"range":"1-999999999"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("oversized range code = %d", rr.Code)
	}
}

func TestRunStageErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{err: fmt.Errorf("run: %w", shots.ErrLocked)}
	h := newTestRouter(t, cfg, runner, nil)
	if rr := do(t, h, http.MethodPost, "/api/stages/stills_prompt/run", "{}"); rr.Code != http.StatusConflict {
		t.Fatalf("locked code = %d", rr.Code)
	}

	noKeys := testsupport.NewConfig(t, testsupport.WithoutKeys())
	h = newTestRouter(t, noKeys, &fakeRunner{}, nil)
	rr := do(t, h, http.MethodPost, "/api/stages/video_generate/run", "{}")
	if rr.Code != http.StatusPreconditionFailed || !strings.Contains(rr.Body.String(), "FAL_KEY") {
		t.Fatalf("missing key code = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	history := &fakeHistory{
		batches: []runlog.Batch{
			{ID: "b-2", Stage: stage.VideoGenerate, Failed: 1, Selected: 1},
			{ID: "b-1", Stage: stage.StillsPrompt, Succeeded: 2, Selected: 2},
		},
		runs: map[string][]runlog.ShotRun{
			"b-1": {
				{BatchID: "b-1", ShotID: "SHOT_001", Result: stage.ResultSuccess},
				{BatchID: "b-1", ShotID: "SHOT_002", Result: stage.ResultSuccess},
			},
		},
	}
	h := newTestRouter(t, cfg, &fakeRunner{}, history)

	all := decode[api.HistoryResponse](t, do(t, h, http.MethodGet, "/api/history", ""))
	if len(all.Batches) != 2 || all.Batches[0].ID != "b-2" {
		t.Fatalf("history = %+v", all.Batches)
	}
	one := decode[api.HistoryResponse](t, do(t, h, http.MethodGet, "/api/history?stage=stills_prompt&limit=5", ""))
	if len(one.Batches) != 1 || one.Batches[0].ID != "b-1" {
		t.Fatalf("filtered history = %+v", one.Batches)
	}
	if rr := do(t, h, http.MethodGet, "/api/history?limit=zero", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit code = %d", rr.Code)
	}

	detail := decode[api.BatchSummary](t, do(t, h, http.MethodGet, "/api/history/b-1", ""))
	if len(detail.Results) != 2 || detail.Counts["success"] != 2 {
		t.Fatalf("detail = %+v", detail)
	}
	if rr := do(t, h, http.MethodGet, "/api/history/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing batch code = %d", rr.Code)
	}
}

func TestHistoryUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newTestRouter(t, cfg, &fakeRunner{}, nil)
	if rr := do(t, h, http.MethodGet, "/api/history", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d", rr.Code)
	}
}

func TestServerServesUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := api.NewServer(api.ServerConfig{Config: cfg, Runner: &fakeRunner{}, Generator: &testsupport.FakeGenerator{}})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ready) }()

	addr := <-ready
	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health code = %d", resp.StatusCode)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve: %v", err)
	}
}
