package shots

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"shotline/internal/fileutil"
	"shotline/internal/services"
)

// PatchRequest is a manual override of one track's prompt.
type PatchRequest struct {
	ShotID string
	Track  Track
	Prompt string
	// Status defaults to APPROVED so the next generation run picks it up.
	Status Status
	Notes  string
}

// Patch writes a replacement prompt for a track and resets its status. The
// asset path is cleared so the next generation run regenerates it; the
// version is kept so the new asset gets the next number.
func Patch(board *Board, projectDir string, req PatchRequest, now time.Time) (*Shot, error) {
	shot, ok := board.Get(req.ShotID)
	if !ok {
		return nil, services.Wrap(services.ErrMissingInput, "", "patch", fmt.Sprintf("shot %s not found", req.ShotID), nil)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "", "patch", "prompt text required", nil)
	}
	target := req.Status
	if target == "" {
		target = StatusApproved
	}
	switch target {
	case StatusPending, StatusPromptReady, StatusApproved:
	case StatusReadyForPrompt:
		if req.Track != TrackVideo {
			return nil, services.Wrap(services.ErrValidation, "", "patch", "READY_FOR_PROMPT is a video status", nil)
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "", "patch", fmt.Sprintf("cannot patch %s to %s", req.Track, target), nil)
	}
	state := shot.Track(req.Track)
	if strings.TrimSpace(state.PromptFile) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "patch", fmt.Sprintf("shot %s has no %s prompt_file", shot.ID, req.Track), nil)
	}
	if err := fileutil.WriteTextFile(ResolvePath(projectDir, state.PromptFile), prompt+"\n"); err != nil {
		return nil, fmt.Errorf("patch %s: write prompt: %w", shot.ID, err)
	}
	state.Status = target
	state.AssetPath = ""
	state.InspectorFeedback = "Manual patch"
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		state.ReviewNotes = notes
	}
	state.UpdatedAt = Timestamp(now)
	return shot, nil
}

// ResolvePath joins a board-relative path onto projectDir. Absolute paths are
// returned unchanged.
func ResolvePath(projectDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || projectDir == "" {
		return p
	}
	return filepath.Join(projectDir, filepath.FromSlash(p))
}

// Timestamp formats t the way tracks record updated_at.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
