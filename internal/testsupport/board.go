package testsupport

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"shotline/internal/config"
	"shotline/internal/shots"
)

// ShotSpec describes one shot of a test board.
type ShotSpec struct {
	ID           string
	Stills       shots.Status
	Video        shots.Status
	StillsAsset  string
	StillsPrompt string
	VideoPrompt  string
	Version      int
}

// NewBoard builds a board in the given order. Prompt files default to
// prompts/stills/<id>.txt and prompts/video/<id>.txt; statuses default to
// PENDING.
func NewBoard(t testing.TB, specs ...ShotSpec) *shots.Board {
	t.Helper()

	board := shots.NewBoard()
	for _, spec := range specs {
		shot := shots.NewShot(spec.ID)
		shot.SceneRef = "1.1"
		shot.Duration = "5s"
		shot.Brief.Visual = "Medium Shot. The Princess walks through the pass"
		shot.Brief.Motion = "Slow push in"
		shot.Constraints = []byte(`{"avoid_occlusion":true}`)
		if spec.Stills != "" {
			shot.Stills.Status = spec.Stills
		}
		if spec.Video != "" {
			shot.Video.Status = spec.Video
		}
		shot.Stills.PromptFile = spec.StillsPrompt
		if shot.Stills.PromptFile == "" {
			shot.Stills.PromptFile = "prompts/stills/" + strings.ToLower(spec.ID) + ".txt"
		}
		shot.Video.PromptFile = spec.VideoPrompt
		if shot.Video.PromptFile == "" {
			shot.Video.PromptFile = "prompts/video/" + strings.ToLower(spec.ID) + ".txt"
		}
		shot.Stills.AssetPath = spec.StillsAsset
		shot.Stills.Version = spec.Version
		if err := board.Add(shot); err != nil {
			t.Fatalf("add %s: %v", spec.ID, err)
		}
	}
	return board
}

// WriteBoard saves board to the configured shots board path.
func WriteBoard(t testing.TB, cfg *config.Config, board *shots.Board) {
	t.Helper()

	if err := shots.Save(cfg.Paths.ShotsBoard, board); err != nil {
		t.Fatalf("save board: %v", err)
	}
}

// LoadBoard reads the configured shots board.
func LoadBoard(t testing.TB, cfg *config.Config) *shots.Board {
	t.Helper()

	board, err := shots.Load(cfg.Paths.ShotsBoard)
	if err != nil {
		t.Fatalf("load board: %v", err)
	}
	return board
}

// MustShot returns the shot with id or fails the test.
func MustShot(t testing.TB, board *shots.Board, id string) *shots.Shot {
	t.Helper()

	shot, ok := board.Get(id)
	if !ok {
		t.Fatalf("shot %s not found", id)
	}
	return shot
}

// WritePrompt writes a prompt file for a shot track under the project dir.
func WritePrompt(t testing.TB, cfg *config.Config, shot *shots.Shot, track shots.Track, text string) string {
	t.Helper()

	rel := shot.Track(track).PromptFile
	if rel == "" {
		t.Fatalf("shot %s has no %s prompt file", shot.ID, track)
	}
	path := cfg.ProjectPath(rel)
	WriteFile(t, path, text+"\n")
	return path
}

// WriteScenes writes a scenes database with one scene per id, each pointing
// at the CLIFF location and TRAVEL wardrobe.
func WriteScenes(t testing.TB, cfg *config.Config, ids ...string) {
	t.Helper()

	var b strings.Builder
	b.WriteString("{\n")
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, `    %q: {"description": "Scene %s", "location_id": "CLIFF", "wardrobe_id": "TRAVEL", "mood_keywords": ["hopeful"]}`, id, id)
	}
	b.WriteString("\n}\n")
	WriteFile(t, cfg.Paths.ScenesDB, b.String())
}

// ProjectFile joins parts under the project directory.
func ProjectFile(cfg *config.Config, parts ...string) string {
	return filepath.Join(append([]string{cfg.Paths.ProjectDir}, parts...)...)
}
