package batch

import (
	"time"

	"shotline/internal/stage"
)

// ShotResult is one shot's line of a batch summary.
type ShotResult struct {
	ShotID   string
	Result   stage.Result
	Kind     string
	Reason   string
	Detail   string
	Duration time.Duration
}

// Summary reports a finished batch.
type Summary struct {
	BatchID    string
	Stage      stage.Name
	Filter     string
	StartedAt  time.Time
	FinishedAt time.Time
	// Selected is the number of shots that passed filter and precondition.
	Selected int
	// Results follow board order.
	Results []ShotResult
	// Missing lists filter ids that are not on the board.
	Missing []string
	// Saved reports whether the board was rewritten.
	Saved bool
}

// Count returns how many shots ended with result r.
func (s Summary) Count(r stage.Result) int {
	n := 0
	for _, res := range s.Results {
		if res.Result == r {
			n++
		}
	}
	return n
}

// Succeeded is the number of shots whose stage completed.
func (s Summary) Succeeded() int { return s.Count(stage.ResultSuccess) }

// Failed is the number of shots that failed.
func (s Summary) Failed() int { return s.Count(stage.ResultFailed) }

// Skipped is the number of shots skipped because their output already exists.
func (s Summary) Skipped() int { return s.Count(stage.ResultSkipped) }

// Incomplete is the number of shots cut off by cancellation or the deadline.
func (s Summary) Incomplete() int { return s.Count(stage.ResultIncomplete) }

// Duration is the wall time of the batch.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Result returns the entry for id.
func (s Summary) Result(id string) (ShotResult, bool) {
	for _, res := range s.Results {
		if res.ShotID == id {
			return res, true
		}
	}
	return ShotResult{}, false
}
