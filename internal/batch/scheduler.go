package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"shotline/internal/config"
	"shotline/internal/generation"
	"shotline/internal/logging"
	"shotline/internal/notifications"
	"shotline/internal/services"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

const defaultLockTimeout = 5 * time.Second

// Recorder persists finished batches.
type Recorder interface {
	Record(ctx context.Context, summary Summary) error
}

// Options selects what one batch does.
type Options struct {
	Stage  stage.Name
	Filter shots.Filter
	// Workers overrides the configured ceiling for the stage when positive.
	Workers int
	// Timeout bounds the whole batch. Zero falls back to batch.timeout_seconds;
	// if that is zero too the batch is unbounded.
	Timeout     time.Duration
	Force       bool
	Clean       bool
	LockTimeout time.Duration
}

// Scheduler runs batches against one project.
type Scheduler struct {
	cfg      *config.Config
	gen      generation.Adapter
	logger   *slog.Logger
	recorder Recorder
	notifier notifications.Service
	now      func() time.Time
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithRecorder stores every batch summary.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithNotifier publishes batch events.
func WithNotifier(n notifications.Service) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithClock replaces time.Now for timestamps written to the board.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a scheduler.
func New(cfg *config.Config, gen generation.Adapter, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		cfg:    cfg,
		gen:    gen,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one batch. Errors are returned only when the batch could not
// start or its results could not be saved; per-shot failures are reported in
// the summary.
func (s *Scheduler) Run(ctx context.Context, opts Options) (Summary, error) {
	summary := Summary{
		BatchID:   uuid.NewString(),
		Stage:     opts.Stage,
		Filter:    opts.Filter.String(),
		StartedAt: s.now(),
	}
	ctx = services.WithBatchID(services.WithStage(ctx, string(opts.Stage)), summary.BatchID)
	logger := logging.WithContext(ctx, logging.StageLogger(s.logger, s.cfg, string(opts.Stage)))

	handler, err := stage.New(opts.Stage, stage.Deps{
		Config:    s.cfg,
		Generator: s.gen,
		Logger:    logger,
		Now:       s.now,
		Force:     opts.Force,
		Clean:     opts.Clean,
	})
	if err != nil {
		return summary, err
	}

	lockTimeout := opts.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	lock, err := shots.AcquireLock(ctx, s.cfg.BoardLockPath(), lockTimeout)
	if err != nil {
		s.notifyError(ctx, logger, opts.Stage, err)
		return summary, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Debug("board lock release failed", logging.Error(err))
		}
	}()

	board, err := shots.Load(s.cfg.Paths.ShotsBoard)
	if err != nil {
		s.notifyError(ctx, logger, opts.Stage, err)
		return summary, err
	}

	summary.Missing = opts.Filter.Missing(board)
	if len(summary.Missing) > 0 {
		logging.WarnWithContext(logger, "filter names shots not on the board", "filter_unknown_ids",
			logging.Any("shot_ids", summary.Missing),
			logging.String(logging.FieldImpact, "those ids are ignored"),
		)
	}

	selected := board.Select(func(shot *shots.Shot) bool {
		return opts.Filter.Match(shot.ID) && handler.Eligible(shot)
	})
	summary.Selected = len(selected)
	if len(selected) == 0 {
		logger.Info("no eligible shots",
			logging.String(logging.FieldEventType, "batch_empty"),
			logging.String("filter", summary.Filter),
		)
		summary.FinishedAt = s.now()
		return summary, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = s.cfg.StageWorkers(string(opts.Stage))
	}
	workers = min(workers, len(selected))

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("selected", len(selected)),
		logging.Int("workers", workers),
		logging.String("filter", summary.Filter),
		logging.Bool("force", opts.Force),
	)
	s.publish(ctx, logger, notifications.EventBatchStarted, notifications.Payload{
		"stage":    string(opts.Stage),
		"selected": len(selected),
	})

	var outcomes []timedOutcome
	if err := handler.Prepare(ctx); err != nil {
		logging.ErrorWithContext(logger, "stage preparation failed", "stage_prepare_failed",
			logging.String(logging.FieldImpact, "every selected shot fails"),
			logging.Error(err),
		)
		for _, id := range selected {
			outcomes = append(outcomes, timedOutcome{Outcome: stage.Failed(id, err)})
		}
	} else {
		outcomes = s.fanOut(ctx, handler, board, selected, workers, s.batchTimeout(opts))
	}

	summary.Saved, err = s.commit(logger, board, outcomes)
	summary.Results = results(selected, outcomes)
	summary.FinishedAt = s.now()
	if err != nil {
		logging.ErrorWithContext(logger, "board save failed", "board_save_failed",
			logging.String(logging.FieldImpact, "results of this batch were not persisted"),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the board directory"),
			logging.Error(err),
		)
		s.notifyError(ctx, logger, opts.Stage, err)
		return summary, err
	}

	s.finish(ctx, logger, board, summary)
	return summary, nil
}

func (s *Scheduler) batchTimeout(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if s.cfg.Batch.TimeoutSeconds > 0 {
		return time.Duration(s.cfg.Batch.TimeoutSeconds) * time.Second
	}
	return 0
}

type timedOutcome struct {
	stage.Outcome
	duration time.Duration
}

// fanOut runs handler over the selected shots with a bounded pool and returns
// outcomes in completion order. Shots that never started because the batch
// context ended are appended as incomplete.
func (s *Scheduler) fanOut(ctx context.Context, handler stage.Handler, board *shots.Board, ids []string, workers int, timeout time.Duration) []timedOutcome {
	runCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	tasks := make(chan *shots.Shot, len(ids))
	for _, id := range ids {
		shot, _ := board.Get(id)
		tasks <- shot.Clone()
	}
	close(tasks)

	var (
		mu       sync.Mutex
		outcomes = make([]timedOutcome, 0, len(ids))
		wg       sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for shot := range tasks {
				if runCtx.Err() != nil {
					return
				}
				started := time.Now()
				out := s.execute(runCtx, handler, shot)
				mu.Lock()
				outcomes = append(outcomes, timedOutcome{Outcome: out, duration: time.Since(started)})
				mu.Unlock()
				if out.Result == stage.ResultFailed && services.Fatal(out.Err) {
					abort(out.Err)
				}
			}
		}()
	}
	wg.Wait()

	if runCtx.Err() != nil && len(outcomes) < len(ids) {
		cause := context.Cause(runCtx)
		seen := make(map[string]bool, len(outcomes))
		for _, out := range outcomes {
			seen[out.ShotID] = true
		}
		for _, id := range ids {
			if !seen[id] {
				out := incomplete(id, cause)
				out.Reason = "not started: " + out.Reason
				outcomes = append(outcomes, timedOutcome{Outcome: out})
			}
		}
	}
	return outcomes
}

// execute runs one shot, converting panics into failures and failures caused
// by the batch context into incomplete results.
func (s *Scheduler) execute(ctx context.Context, handler stage.Handler, shot *shots.Shot) (out stage.Outcome) {
	shotCtx := services.WithTrack(services.WithShotID(ctx, shot.ID), string(handler.Name().Track()))
	logger := logging.WithContext(shotCtx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("stage panic: %v", r)
			logging.ErrorWithContext(logger, "stage worker panicked", "stage_panic",
				logging.String("stack", string(debug.Stack())),
				logging.Error(err),
			)
			out = stage.Failed(shot.ID, err)
		}
	}()

	out = handler.Execute(shotCtx, shot)
	out.ShotID = shot.ID
	if out.Result == stage.ResultFailed && ctx.Err() != nil && !services.Fatal(out.Err) {
		return incomplete(shot.ID, context.Cause(ctx))
	}
	switch out.Result {
	case stage.ResultFailed:
		logging.WarnWithContext(logger, "shot failed", "shot_failed",
			logging.String("failure_kind", out.Kind()),
			logging.Error(out.Err),
		)
	case stage.ResultSkipped:
		logger.Info("shot skipped", logging.String("reason", out.Reason))
	case stage.ResultSuccess:
		logger.Info("shot completed", logging.String("detail", out.Detail))
	}
	return out
}

func incomplete(id string, cause error) stage.Outcome {
	reason := "batch interrupted"
	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		reason = "batch deadline exceeded"
	case services.Fatal(cause):
		reason = "batch aborted: " + cause.Error()
	}
	return stage.Outcome{ShotID: id, Result: stage.ResultIncomplete, Err: cause, Reason: reason}
}

// commit applies successful outcomes in completion order and saves the board
// once when anything changed. Superseded files are removed only after the
// save succeeds.
func (s *Scheduler) commit(logger *slog.Logger, board *shots.Board, outcomes []timedOutcome) (bool, error) {
	changed := false
	for _, out := range outcomes {
		if out.Result != stage.ResultSuccess || out.Apply == nil {
			continue
		}
		shot, ok := board.Get(out.ShotID)
		if !ok {
			continue
		}
		out.Apply(shot)
		changed = true
	}
	if !changed {
		return false, nil
	}
	if err := shots.Save(s.cfg.Paths.ShotsBoard, board); err != nil {
		return false, err
	}
	for _, out := range outcomes {
		if out.Result != stage.ResultSuccess {
			continue
		}
		for _, path := range out.Cleanup {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.WarnWithContext(logger, "old asset not removed", "clean_failed",
					logging.String(logging.FieldShotID, out.ShotID),
					logging.String("asset_path", path),
					logging.Error(err),
				)
			}
		}
	}
	return true, nil
}

func results(selected []string, outcomes []timedOutcome) []ShotResult {
	byID := make(map[string]timedOutcome, len(outcomes))
	for _, out := range outcomes {
		byID[out.ShotID] = out
	}
	list := make([]ShotResult, 0, len(selected))
	for _, id := range selected {
		out, ok := byID[id]
		if !ok {
			out = timedOutcome{Outcome: incomplete(id, context.Canceled)}
		}
		res := ShotResult{
			ShotID:   id,
			Result:   out.Result,
			Reason:   out.Reason,
			Detail:   out.Detail,
			Duration: out.duration,
		}
		if out.Result == stage.ResultFailed || out.Result == stage.ResultIncomplete {
			res.Kind = out.Kind()
		}
		list = append(list, res)
	}
	return list
}

func (s *Scheduler) finish(ctx context.Context, logger *slog.Logger, board *shots.Board, summary Summary) {
	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", summary.Succeeded()),
		logging.Int("skipped", summary.Skipped()),
		logging.Int("failed", summary.Failed()),
		logging.Int("incomplete", summary.Incomplete()),
		logging.Bool("saved", summary.Saved),
		logging.Duration("duration", summary.Duration()),
	)

	if s.recorder != nil {
		if err := s.recorder.Record(context.WithoutCancel(ctx), summary); err != nil {
			logging.WarnWithContext(logger, "batch history not recorded", "runlog_write_failed",
				logging.String(logging.FieldImpact, "`shotline history` will not list this batch"),
				logging.Error(err),
			)
		}
	}

	s.publish(ctx, logger, notifications.EventBatchCompleted, notifications.Payload{
		"stage":      string(summary.Stage),
		"succeeded":  summary.Succeeded(),
		"skipped":    summary.Skipped(),
		"failed":     summary.Failed(),
		"incomplete": summary.Incomplete(),
		"duration":   summary.Duration(),
	})
	if track := summary.Stage.Track(); summary.Succeeded() > 0 && isGeneration(summary.Stage) {
		count := 0
		for _, shot := range board.Shots() {
			if shot.Track(track).Status == track.ReadyStatus() {
				count++
			}
		}
		s.publish(ctx, logger, notifications.EventReviewPending, notifications.Payload{
			"track": string(track),
			"count": count,
		})
	}
}

func isGeneration(name stage.Name) bool {
	return name == stage.StillsGenerate || name == stage.VideoGenerate
}

func (s *Scheduler) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (s *Scheduler) notifyError(ctx context.Context, logger *slog.Logger, name stage.Name, err error) {
	s.publish(ctx, logger, notifications.EventError, notifications.Payload{
		"context": string(name),
		"error":   err,
	})
}
