package preflight

import (
	"fmt"

	"shotline/internal/config"
	"shotline/internal/shots"
)

// BoardProbe is a read-only snapshot of the shot board for status UIs.
type BoardProbe struct {
	Path    string
	Loaded  bool
	Err     error
	Summary shots.Summary
	Issues  []shots.Issue
}

// ProbeBoard loads the board without taking the lock and audits it.
func ProbeBoard(cfg *config.Config) BoardProbe {
	if cfg == nil {
		return BoardProbe{}
	}
	probe := BoardProbe{Path: cfg.Paths.ShotsBoard}
	board, err := shots.Load(cfg.Paths.ShotsBoard)
	if err != nil {
		probe.Err = err
		return probe
	}
	probe.Loaded = true
	probe.Summary = shots.Summarize(board)
	probe.Issues = shots.Audit(board, cfg.Paths.ProjectDir)
	return probe
}

// Detail renders a display-friendly summary.
func (p BoardProbe) Detail() string {
	if !p.Loaded {
		if p.Err != nil {
			return fmt.Sprintf("board unavailable: %v", p.Err)
		}
		return "board unavailable"
	}
	if n := len(p.Issues); n > 0 {
		return fmt.Sprintf("%d shots, %d issue(s)", p.Summary.Total, n)
	}
	return fmt.Sprintf("%d shots, consistent", p.Summary.Total)
}

// Result converts the probe into a preflight result.
func (p BoardProbe) Result() Result {
	return Result{Name: "Shot board", Passed: p.Loaded && len(p.Issues) == 0, Detail: p.Detail()}
}
