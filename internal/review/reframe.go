package review

import (
	"fmt"
	"os"
	"time"

	"shotline/internal/config"
	"shotline/internal/fileutil"
	"shotline/internal/prompts"
	"shotline/internal/shots"
)

// ReframeResult names the stills prompts rewritten by ReframeBoard.
type ReframeResult struct {
	Changed   []string
	Unchanged []string
	Missing   []string
}

// ReframeBoard rewrites every matching stills prompt toward a close-up
// framing. Changed shots return to APPROVED with their image cleared so the
// next generation run renders the new framing. Finished shots are left alone.
func ReframeBoard(cfg *config.Config, board *shots.Board, filter shots.Filter, now time.Time) (ReframeResult, error) {
	var res ReframeResult
	stamp := shots.Timestamp(now)
	for _, shot := range board.Shots() {
		if !filter.Match(shot.ID) || shot.Stills.Status == shots.StatusDone {
			continue
		}
		path := cfg.ProjectPath(shot.Stills.PromptFile)
		if !fileutil.Exists(path) {
			res.Missing = append(res.Missing, shot.ID)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return res, fmt.Errorf("reframe %s: %w", shot.ID, err)
		}
		text, changed := prompts.Reframe(string(data))
		if !changed {
			res.Unchanged = append(res.Unchanged, shot.ID)
			continue
		}
		if err := fileutil.WriteTextFile(path, text+"\n"); err != nil {
			return res, fmt.Errorf("reframe %s: %w", shot.ID, err)
		}
		shot.Stills.Status = shots.StatusApproved
		shot.Stills.AssetPath = ""
		shot.Stills.InspectorFeedback = "Reframed to close-up"
		shot.Stills.UpdatedAt = stamp
		res.Changed = append(res.Changed, shot.ID)
	}
	return res, nil
}
