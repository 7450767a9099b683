package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shotline/internal/config"
	"shotline/internal/generation"
	"shotline/internal/services"
	"shotline/internal/shots"
)

// Name identifies a stage on the command line and in the run ledger.
type Name string

const (
	StillsPrompt   Name = "stills_prompt"
	StillsInspect  Name = "stills_inspect"
	StillsGenerate Name = "stills_generate"
	VideoPrompt    Name = "video_prompt"
	VideoInspect   Name = "video_inspect"
	VideoGenerate  Name = "video_generate"
)

// Names lists every stage in pipeline order.
func Names() []Name {
	return []Name{StillsPrompt, StillsInspect, StillsGenerate, VideoPrompt, VideoInspect, VideoGenerate}
}

// ParseName accepts underscores or hyphens, case-insensitively.
func ParseName(value string) (Name, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, name := range Names() {
		if string(name) == normalized {
			return name, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "", "parse stage", fmt.Sprintf("unknown stage %q", value), nil)
}

// Track reports which shot track the stage works on.
func (n Name) Track() shots.Track {
	if strings.HasPrefix(string(n), "video_") {
		return shots.TrackVideo
	}
	return shots.TrackStills
}

// Result is the per-shot verdict of one batch.
type Result string

const (
	ResultSuccess    Result = "success"
	ResultSkipped    Result = "skipped"
	ResultFailed     Result = "failed"
	ResultIncomplete Result = "incomplete"
)

// Outcome is what a worker hands back to the scheduler.
type Outcome struct {
	ShotID string
	Result Result
	Err    error
	// Reason explains a skip or summarizes a failure for the batch summary.
	Reason string
	// Detail carries a short success note, e.g. the asset path written.
	Detail string
	// Apply mutates the committed copy of the shot. Only set on success.
	Apply func(*shots.Shot)
	// Cleanup lists files to delete once the board has been saved.
	Cleanup []string
}

// Kind classifies a failed outcome.
func (o Outcome) Kind() string {
	return services.FailureKind(o.Err)
}

func succeeded(id, detail string, apply func(*shots.Shot)) Outcome {
	return Outcome{ShotID: id, Result: ResultSuccess, Detail: detail, Apply: apply}
}

func skipped(id, reason string) Outcome {
	return Outcome{ShotID: id, Result: ResultSkipped, Reason: reason}
}

// Failed builds a failed outcome from err.
func Failed(id string, err error) Outcome {
	reason := "failed"
	if err != nil {
		reason = err.Error()
	}
	return Outcome{ShotID: id, Result: ResultFailed, Err: err, Reason: reason}
}

// Handler is the contract the batch scheduler drives.
type Handler interface {
	Name() Name
	// Eligible is the stage precondition on a shot's current state.
	Eligible(shot *shots.Shot) bool
	// Prepare runs once per batch before any Execute call.
	Prepare(ctx context.Context) error
	// Execute works on a private copy of one shot. It must not panic on bad
	// input and must leave all failure information in the Outcome.
	Execute(ctx context.Context, shot *shots.Shot) Outcome
	HealthCheck(ctx context.Context) Health
}

// Deps are the collaborators shared by every stage.
type Deps struct {
	Config    *config.Config
	Generator generation.Adapter
	Logger    *slog.Logger
	Now       func() time.Time
	// Force bypasses skip-if-exists for generation and re-inspects approved
	// prompts that have no asset yet.
	Force bool
	// Clean removes the superseded asset after a forced regeneration succeeds.
	Clean bool
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// New constructs the handler for name.
func New(name Name, deps Deps) (Handler, error) {
	if deps.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(name), "init", "config required", nil)
	}
	if deps.Generator == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(name), "init", "generation adapter required", nil)
	}
	switch name {
	case StillsPrompt, VideoPrompt:
		return newAuthoring(name, deps), nil
	case StillsInspect, VideoInspect:
		return newInspection(name, deps), nil
	case StillsGenerate, VideoGenerate:
		return newGeneration(name, deps), nil
	default:
		return nil, services.Wrap(services.ErrValidation, "", "init stage", fmt.Sprintf("unknown stage %q", name), nil)
	}
}

// Requires reports which provider credentials the stage needs.
func (n Name) Requires(cfg *config.Config) error {
	switch n {
	case StillsPrompt, VideoPrompt, StillsInspect, VideoInspect:
		return cfg.RequireLLM()
	default:
		return cfg.RequireMedia()
	}
}

// videoUnlocked reports whether a shot's video track may be worked on.
// A PENDING video track additionally needs the still to be exactly APPROVED.
func videoUnlocked(shot *shots.Shot) bool {
	if !shots.StillsReadyForVideo(shot) {
		return false
	}
	if shot.Video.Status == shots.StatusPending {
		return shot.Stills.Status == shots.StatusApproved
	}
	return true
}
