package api

import (
	"time"

	"shotline/internal/batch"
	"shotline/internal/preflight"
	"shotline/internal/runlog"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

// FromShot converts a board entry to its API representation.
func FromShot(shot *shots.Shot) Shot {
	if shot == nil {
		return Shot{}
	}
	return Shot{
		ID:       shot.ID,
		SceneRef: shot.SceneRef,
		Duration: shot.Duration,
		Visual:   shot.Brief.Visual,
		Motion:   shot.Brief.Motion,
		Stills:   fromTrack(shot.Stills),
		Video:    fromTrack(shot.Video),
	}
}

func fromTrack(state shots.TrackState) Track {
	return Track{
		Status:            string(state.Status),
		PromptFile:        state.PromptFile,
		AssetPath:         state.AssetPath,
		Version:           state.Version,
		InspectorFeedback: state.InspectorFeedback,
		ReviewNotes:       state.ReviewNotes,
		UpdatedAt:         state.UpdatedAt,
	}
}

// FromBoardProbe converts a board snapshot.
func FromBoardProbe(probe preflight.BoardProbe) BoardStatus {
	dto := BoardStatus{
		Path:   probe.Path,
		Loaded: probe.Loaded,
		Total:  probe.Summary.Total,
		Stills: countMap(probe.Summary.Stills),
		Video:  countMap(probe.Summary.Video),
	}
	if probe.Err != nil {
		dto.Error = probe.Err.Error()
	}
	for _, issue := range probe.Issues {
		dto.Issues = append(dto.Issues, issue.String())
	}
	return dto
}

func countMap(rows []shots.StatusCount) map[string]int {
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[string(row.Status)] = row.Count
	}
	return out
}

// StageHealthSlice converts stage health in pipeline order.
func StageHealthSlice(health []stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromSummary converts a finished batch with its per-shot results.
func FromSummary(summary batch.Summary) BatchSummary {
	dto := BatchSummary{
		ID:         summary.BatchID,
		Stage:      string(summary.Stage),
		Filter:     summary.Filter,
		StartedAt:  formatTime(summary.StartedAt),
		FinishedAt: formatTime(summary.FinishedAt),
		DurationMs: summary.Duration().Milliseconds(),
		Selected:   summary.Selected,
		Counts:     counts(summary.Succeeded(), summary.Skipped(), summary.Failed(), summary.Incomplete()),
		Saved:      summary.Saved,
		Missing:    summary.Missing,
		Results:    make([]ShotResult, 0, len(summary.Results)),
	}
	for _, r := range summary.Results {
		dto.Results = append(dto.Results, ShotResult{
			ShotID:     r.ShotID,
			Result:     string(r.Result),
			Kind:       r.Kind,
			Reason:     r.Reason,
			Detail:     r.Detail,
			DurationMs: r.Duration.Milliseconds(),
		})
	}
	return dto
}

// FromBatch converts a recorded batch. runs may be nil for list views.
func FromBatch(b runlog.Batch, runs []runlog.ShotRun) BatchSummary {
	dto := BatchSummary{
		ID:         b.ID,
		Stage:      string(b.Stage),
		Filter:     b.Filter,
		StartedAt:  formatTime(b.StartedAt),
		FinishedAt: formatTime(b.FinishedAt),
		DurationMs: b.Duration().Milliseconds(),
		Selected:   b.Selected,
		Counts:     counts(b.Succeeded, b.Skipped, b.Failed, b.Incomplete),
		Saved:      b.Saved,
		Missing:    b.Missing,
	}
	for _, r := range runs {
		dto.Results = append(dto.Results, FromShotRun(r))
	}
	return dto
}

// FromShotRun converts one recorded shot result.
func FromShotRun(r runlog.ShotRun) ShotResult {
	return ShotResult{
		ShotID:     r.ShotID,
		Result:     string(r.Result),
		Kind:       r.Kind,
		Reason:     r.Reason,
		Detail:     r.Detail,
		DurationMs: r.Duration.Milliseconds(),
	}
}

func counts(succeeded, skipped, failed, incomplete int) map[string]int {
	return map[string]int{
		string(stage.ResultSuccess):    succeeded,
		string(stage.ResultSkipped):    skipped,
		string(stage.ResultFailed):     failed,
		string(stage.ResultIncomplete): incomplete,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
