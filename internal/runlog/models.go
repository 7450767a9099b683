package runlog

import (
	"time"

	"shotline/internal/stage"
)

// Batch is one recorded batch run.
type Batch struct {
	ID         string
	Stage      stage.Name
	Filter     string
	StartedAt  time.Time
	FinishedAt time.Time
	Selected   int
	Succeeded  int
	Skipped    int
	Failed     int
	Incomplete int
	Saved      bool
	Missing    []string
}

// Duration is the wall time of the batch.
func (b Batch) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// ShotRun is one shot's result within a batch.
type ShotRun struct {
	BatchID    string
	ShotID     string
	Stage      stage.Name
	Result     stage.Result
	Kind       string
	Reason     string
	Detail     string
	Duration   time.Duration
	FinishedAt time.Time
}
