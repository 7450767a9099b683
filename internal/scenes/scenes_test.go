package scenes_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"shotline/internal/scenes"
	"shotline/internal/services"
	"shotline/internal/shots"
)

func TestDefaultTemplateExpandsStory(t *testing.T) {
	tmpl, err := scenes.DefaultTemplate()
	if err != nil {
		t.Fatalf("DefaultTemplate returned error: %v", err)
	}
	board, db, err := scenes.Expand(tmpl, scenes.ExpandOptions{})
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if board.Len() != 60 || db.Len() != 6 || tmpl.ShotCount() != 60 {
		t.Fatalf("unexpected sizes: shots=%d scenes=%d", board.Len(), db.Len())
	}

	first, _ := board.Get("SHOT_001")
	if first.Brief.Visual != "Close Up. Dark screen. Focus on dying red embers in a stone fireplace." {
		t.Fatalf("unexpected visual %q", first.Brief.Visual)
	}
	if first.Brief.Motion != "Static, heat shimmer." || first.Duration != "5s" || first.SceneRef != "SCENE_1_DEPARTURE" {
		t.Fatalf("unexpected shot %+v", first)
	}
	if got := string(first.Constraints); got != `{"avoid_occlusion":true,"lighting_type":"FIRE_GLOW"}` {
		t.Fatalf("unexpected constraints %s", got)
	}
	if first.Stills.PromptFile != "prompts/stills/shot_001.txt" || first.Video.PromptFile != "prompts/video/shot_001.txt" {
		t.Fatalf("unexpected prompt files %q %q", first.Stills.PromptFile, first.Video.PromptFile)
	}
	if first.Stills.Status != shots.StatusPending || first.Video.Status != shots.StatusPending {
		t.Fatal("expanded shots must start PENDING")
	}

	wind, _ := board.Get("SHOT_011")
	if got := string(wind.Constraints); got != `{"avoid_occlusion":true,"lighting_type":"CHIAROSCURO","camera_movement_speed":"FAST","mood_color":"COLD_BLUE"}` {
		t.Fatalf("unexpected wind constraints %s", got)
	}
	miracle, _ := board.Get("SHOT_031")
	if got := string(miracle.Constraints); got != `{"avoid_occlusion":true,"lighting_type":"GOLDEN_GLOW","camera_movement_speed":"SLOW","eye_lock":"FIXED_ON_LIGHT"}` {
		t.Fatalf("unexpected miracle constraints %s", got)
	}
	scene, ok := db.Get("SCENE_4_MIRACLE")
	if !ok || scene.MusicSegment != "Chorus (Prayer)" || scene.LocationID != "FOREST_STORM_GROUND" {
		t.Fatalf("unexpected scene %+v", scene)
	}
}

func TestParseTemplateValidates(t *testing.T) {
	cases := map[string]string{
		"no scenes":     "duration: 5s\n",
		"short beat":    "scenes:\n  - id: A\n    beats:\n      - [Close Up, Only two]\n",
		"duplicate ids": "scenes:\n  - id: A\n    beats: [[W, act, m]]\n  - id: A\n    beats: [[W, act, m]]\n",
		"no beats":      "scenes:\n  - id: A\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := scenes.ParseTemplate([]byte(doc)); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseTemplateAcceptsMappingBeats(t *testing.T) {
	doc := "scenes:\n  - id: A\n    beats:\n      - framing: Wide Shot\n        action: A valley at dawn.\n        motion: Drone push.\n"
	tmpl, err := scenes.ParseTemplate([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	board, _, err := scenes.Expand(tmpl, scenes.ExpandOptions{StillsPromptDir: "p/s", VideoPromptDir: "p/v"})
	if err != nil {
		t.Fatal(err)
	}
	shot, _ := board.Get("SHOT_001")
	if shot.Brief.Visual != "Wide Shot. A valley at dawn." || shot.Stills.PromptFile != "p/s/shot_001.txt" {
		t.Fatalf("unexpected shot %+v", shot)
	}
	if len(shot.Constraints) != 0 {
		t.Fatalf("expected no constraints, got %s", shot.Constraints)
	}
}

func TestInitializeRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	tmpl, err := scenes.DefaultTemplate()
	if err != nil {
		t.Fatal(err)
	}
	opts := scenes.InitOptions{
		BoardPath:  filepath.Join(dir, "assets", "shots_board.json"),
		ScenesPath: filepath.Join(dir, "assets", "scenes_db.json"),
		Template:   tmpl,
	}
	result, err := scenes.Initialize(context.Background(), opts)
	if err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if result.Shots != 60 || result.Scenes != 6 {
		t.Fatalf("unexpected result %+v", result)
	}
	board, err := shots.Load(opts.BoardPath)
	if err != nil {
		t.Fatalf("board not loadable: %v", err)
	}
	if board.IDs()[59] != "SHOT_060" {
		t.Fatalf("unexpected last id %s", board.IDs()[59])
	}
	db, err := scenes.LoadDB(opts.ScenesPath)
	if err != nil {
		t.Fatal(err)
	}
	if db.IDs()[0] != "SCENE_1_DEPARTURE" || db.IDs()[5] != "SCENE_6_VICTORY" {
		t.Fatalf("scene order not preserved: %v", db.IDs())
	}

	if _, err := scenes.Initialize(context.Background(), opts); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected refusal, got %v", err)
	}
	opts.Force = true
	if _, err := scenes.Initialize(context.Background(), opts); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
}

func TestInitializeWaitsForBoardLock(t *testing.T) {
	dir := t.TempDir()
	tmpl, err := scenes.DefaultTemplate()
	if err != nil {
		t.Fatal(err)
	}
	boardPath := filepath.Join(dir, "assets", "shots_board.json")
	if err := os.MkdirAll(filepath.Dir(boardPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(boardPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	lock, err := shots.AcquireLock(context.Background(), boardPath+".lock", 0)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, err = scenes.Initialize(context.Background(), scenes.InitOptions{
		BoardPath:   boardPath,
		ScenesPath:  filepath.Join(dir, "assets", "scenes_db.json"),
		Template:    tmpl,
		Force:       true,
		LockTimeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, shots.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	data, err := os.ReadFile(boardPath)
	if err != nil || string(data) != "{}" {
		t.Fatalf("board rewritten while locked: %q, %v", data, err)
	}
}

func TestResolveJoinsSceneAndAssets(t *testing.T) {
	db := scenes.NewDB()
	if err := db.Add("S1", scenes.Scene{LocationID: "FOREST", WardrobeID: "CLOAK", MoodKeywords: []string{"Cold", "Tense"}}); err != nil {
		t.Fatal(err)
	}
	catalog := &scenes.Catalog{Scenes: db, Assets: &scenes.Assets{
		ProjectTrigger: "miriN14",
		Locations:      map[string]scenes.Asset{"FOREST": {Description: "Misty pines"}},
	}}
	shot := shots.NewShot("SHOT_001")
	shot.SceneRef = "S1"
	ctx, err := catalog.Resolve(shot)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Location != "Misty pines" || ctx.Wardrobe != "CLOAK" || ctx.MoodLine() != "Cold, Tense" || ctx.Trigger != "miriN14" {
		t.Fatalf("unexpected context %+v", ctx)
	}

	shot.SceneRef = "S9"
	if _, err := catalog.Resolve(shot); !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
}

const assetsDoc = `project_trigger: miriN14
lora_url: https://example.test/lora.safetensors
# wardrobe is polished first
wardrobe:
  SHAWL:
    description: a warm shawl
  GOWN:
    description: already done
    is_optimized: true
locations:
  COTTAGE:
    description: small cottage
`

type fakeText struct {
	mu    sync.Mutex
	calls []string
	fail  string
}

func (f *fakeText) GenerateText(_ context.Context, system, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, system)
	if f.fail != "" && strings.Contains(system, f.fail) {
		return "", errors.New("provider down")
	}
	return "```\n\"Thick grey wool shawl, frayed edges, firelight catching loose fibers\"\n```", nil
}

func TestRefineAssetsPolishesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	if err := os.WriteFile(path, []byte(assetsDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	gen := &fakeText{fail: "small cottage"}
	result, err := scenes.RefineAssets(context.Background(), path, gen, nil)
	if err != nil {
		t.Fatalf("RefineAssets returned error: %v", err)
	}
	if !reflect.DeepEqual(result.Refined, []string{"SHAWL"}) || !reflect.DeepEqual(result.Skipped, []string{"GOWN"}) {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "COTTAGE" {
		t.Fatalf("expected COTTAGE failure, got %+v", result.Failed)
	}

	assets, err := scenes.LoadAssets(path)
	if err != nil {
		t.Fatal(err)
	}
	shawl := assets.Wardrobe["SHAWL"]
	if !shawl.IsOptimized || shawl.Description != "Thick grey wool shawl, frayed edges, firelight catching loose fibers" {
		t.Fatalf("unexpected shawl %+v", shawl)
	}
	if assets.Locations["COTTAGE"].IsOptimized || assets.LoraURL != "https://example.test/lora.safetensors" {
		t.Fatalf("unexpected catalog %+v", assets)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "# wardrobe is polished first") {
		t.Fatal("comments should survive a refine pass")
	}

	gen.fail = ""
	gen.calls = nil
	result, err = scenes.RefineAssets(context.Background(), path, gen, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(result.Refined, []string{"COTTAGE"}) || len(gen.calls) != 1 {
		t.Fatalf("second pass should only retry COTTAGE, got %+v (%d calls)", result, len(gen.calls))
	}
}
