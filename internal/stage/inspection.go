package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shotline/internal/logging"
	"shotline/internal/prompts"
	"shotline/internal/services"
	"shotline/internal/shots"
)

const inspectedPrefix = "Checked by "

type inspection struct {
	name   Name
	track  shots.Track
	deps   Deps
	logger *slog.Logger
}

func newInspection(name Name, deps Deps) *inspection {
	return &inspection{
		name:   name,
		track:  name.Track(),
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, string(name)),
	}
}

func (i *inspection) Name() Name { return i.name }

func (i *inspection) Eligible(shot *shots.Shot) bool {
	if i.track == shots.TrackVideo && !videoUnlocked(shot) {
		return false
	}
	state := shot.Track(i.track)
	switch state.Status {
	case shots.StatusPromptReady:
		return true
	case shots.StatusApproved:
		return i.deps.Force && !state.HasAsset()
	}
	return false
}

func (i *inspection) Prepare(context.Context) error { return nil }

// Execute runs the corrective pass. A prompt that was already inspected keeps
// its text when the correction drifts below the equivalence threshold, so
// repeated inspection only ever polishes.
func (i *inspection) Execute(ctx context.Context, shot *shots.Shot) Outcome {
	state := shot.Track(i.track)
	if strings.TrimSpace(state.PromptFile) == "" {
		return Failed(shot.ID, services.Wrap(services.ErrMissingInput, string(i.name), "inspect", "prompt_file not set", nil))
	}
	path := i.deps.Config.ProjectPath(state.PromptFile)
	current, err := prompts.Read(path)
	if err != nil {
		return Failed(shot.ID, err)
	}
	req := prompts.Inspection(i.track, shot, current)
	raw, err := i.deps.Generator.GenerateText(ctx, req.System, req.User)
	if err != nil {
		return Failed(shot.ID, err)
	}
	corrected := prompts.Normalize(raw)
	if corrected == "" {
		return Failed(shot.ID, services.Wrap(services.ErrValidation, string(i.name), "inspect", "model returned an empty prompt", nil))
	}

	threshold := i.deps.Config.Inspection.EquivalenceThreshold
	similarity, equivalent := prompts.Equivalent(current, corrected, threshold)
	reinspection := strings.HasPrefix(state.InspectorFeedback, inspectedPrefix)
	kept := false
	if reinspection && !equivalent {
		logging.WarnWithContext(logging.WithContext(ctx, i.logger), "inspection rewrite discarded", "inspection_drift",
			logging.Float64("similarity", similarity),
			logging.Float64("threshold", threshold),
			logging.String(logging.FieldImpact, "previously inspected prompt kept unchanged"),
			logging.String(logging.FieldErrorHint, "patch the prompt manually if a content change is intended"),
		)
		corrected = current
		kept = true
	}
	if corrected != current {
		if err := prompts.Write(path, corrected); err != nil {
			return Failed(shot.ID, fmt.Errorf("write prompt: %w", err))
		}
	}

	now := i.deps.now()
	feedback := fmt.Sprintf("%s%s %s (similarity %.2f)", inspectedPrefix, i.deps.Generator.TextModel(), shots.Timestamp(now), similarity)
	if kept {
		feedback = fmt.Sprintf("%s%s %s (kept original, similarity %.2f)", inspectedPrefix, i.deps.Generator.TextModel(), shots.Timestamp(now), similarity)
	}
	logging.WithContext(ctx, i.logger).Info("prompt inspected",
		logging.Float64("similarity", similarity),
		logging.Bool("changed", corrected != current),
	)
	track := i.track
	stamp := shots.Timestamp(now)
	return succeeded(shot.ID, fmt.Sprintf("similarity %.2f", similarity), func(s *shots.Shot) {
		st := s.Track(track)
		st.Status = shots.StatusApproved
		st.InspectorFeedback = feedback
		st.UpdatedAt = stamp
	})
}

func (i *inspection) HealthCheck(context.Context) Health {
	if err := i.deps.Config.RequireLLM(); err != nil {
		return Unhealthy(string(i.name), err.Error())
	}
	return Healthy(string(i.name))
}
