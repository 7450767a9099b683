package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotline/internal/api"
	"shotline/internal/scenes"
	"shotline/internal/shots"
	"shotline/internal/testsupport"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	stdout, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[paths]")

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsKeys(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("FAL_KEY", "")
	env := setupCLI(t, testsupport.WithoutKeys())

	stdout, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Config path: "+env.configPath)
	requireContains(t, stdout, "Text provider key: no")
	requireContains(t, stdout, "Configuration valid")
}

func TestShotsInitAndList(t *testing.T) {
	env := setupCLI(t)
	tmpl, err := scenes.DefaultTemplate()
	if err != nil {
		t.Fatalf("DefaultTemplate: %v", err)
	}

	stdout, _, err := env.run(t, "shots", "init")
	if err != nil {
		t.Fatalf("shots init: %v", err)
	}
	requireContains(t, stdout, env.cfg.Paths.ShotsBoard)

	if _, _, err := env.run(t, "shots", "init"); err == nil {
		t.Fatal("expected second init without --force to fail")
	}
	if _, _, err := env.run(t, "shots", "init", "--force"); err != nil {
		t.Fatalf("shots init --force: %v", err)
	}

	stdout, _, err = env.run(t, "shots", "list", "--json")
	if err != nil {
		t.Fatalf("shots list: %v", err)
	}
	var resp api.ShotListResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decode list: %v\n%s", err, stdout)
	}
	if len(resp.Shots) != tmpl.ShotCount() {
		t.Fatalf("listed %d shots, want %d", len(resp.Shots), tmpl.ShotCount())
	}
	first := resp.Shots[0]
	if first.ID != "SHOT_001" || first.Stills.Status != "PENDING" {
		t.Fatalf("first shot = %+v", first)
	}
	if first.Stills.PromptFile != "prompts/stills/shot_001.txt" {
		t.Fatalf("stills prompt file = %q", first.Stills.PromptFile)
	}

	stdout, _, err = env.run(t, "shots", "list", "--range", "1-2")
	if err != nil {
		t.Fatalf("shots list --range: %v", err)
	}
	requireContains(t, stdout, "SHOT_002")
	if strings.Contains(stdout, "SHOT_003") {
		t.Fatalf("range leaked SHOT_003:\n%s", stdout)
	}
}

func TestShotsListRejectsStatusOfOtherTrack(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t, testsupport.ShotSpec{ID: "SHOT_001"}))

	_, _, err := env.run(t, "shots", "list", "--status", "VIDEO_READY")
	if err == nil || !strings.Contains(err.Error(), "not valid for the stills track") {
		t.Fatalf("expected invalid status error, got %v", err)
	}
	stdout, _, err := env.run(t, "shots", "list", "--track", "video", "--status", "pending")
	if err != nil {
		t.Fatalf("shots list --status: %v", err)
	}
	requireContains(t, stdout, "SHOT_001")
}

func TestShotsShow(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_004", Stills: shots.StatusImageReady, StillsAsset: "production/images/SHOT_004_v2.jpg", Version: 2},
	))

	stdout, _, err := env.run(t, "shots", "show", "4")
	if err != nil {
		t.Fatalf("shots show: %v", err)
	}
	requireContains(t, stdout, "== SHOT_004 ==")
	requireContains(t, stdout, "production/images/SHOT_004_v2.jpg")
	requireContains(t, stdout, "IMAGE_READY")

	if _, _, err := env.run(t, "shots", "show", "9"); err == nil {
		t.Fatal("expected error for unknown shot")
	}
}

func TestRunStillsPromptRecordsHistory(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteScenes(t, env.cfg, "1.1")
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001"},
		testsupport.ShotSpec{ID: "SHOT_002"},
	))

	stdout, _, err := env.run(t, "run", "stills-prompt", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary api.BatchSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, stdout)
	}
	if summary.Stage != "stills_prompt" || summary.Counts["success"] != 2 || !summary.Saved {
		t.Fatalf("summary = %+v", summary)
	}

	board := testsupport.LoadBoard(t, env.cfg)
	for _, id := range []string{"SHOT_001", "SHOT_002"} {
		shot := testsupport.MustShot(t, board, id)
		if shot.Stills.Status != shots.StatusPromptReady {
			t.Fatalf("%s status = %s, want PROMPT_READY", id, shot.Stills.Status)
		}
		if !strings.Contains(testsupport.ReadFile(t, env.cfg.ProjectPath(shot.Stills.PromptFile)), "Princess") {
			t.Fatalf("%s prompt file not written", id)
		}
	}

	stdout, _, err = env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var history api.HistoryResponse
	if err := json.Unmarshal([]byte(stdout), &history); err != nil {
		t.Fatalf("decode history: %v\n%s", err, stdout)
	}
	if len(history.Batches) != 1 || history.Batches[0].ID != summary.ID {
		t.Fatalf("history = %+v", history)
	}

	stdout, _, err = env.run(t, "history", summary.ID)
	if err != nil {
		t.Fatalf("history <id>: %v", err)
	}
	requireContains(t, stdout, "SHOT_002")
	requireContains(t, stdout, "success")
}

func TestRunTableOutputAndNothingEligible(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001", Stills: shots.StatusDone, StillsAsset: "production/images/SHOT_001_v1.jpg"},
	))

	stdout, _, err := env.run(t, "run", "stills_generate", "--range", "1,7")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, stdout, "== Stills Generate ==")
	requireContains(t, stdout, "SHOT_007")
	requireContains(t, stdout, "No eligible shots")
}

func TestRunValidatesInput(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("FAL_KEY", "")
	env := setupCLI(t, testsupport.WithoutKeys())
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t, testsupport.ShotSpec{ID: "SHOT_001"}))

	if _, _, err := env.run(t, "run", "stills_render"); err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
	if _, _, err := env.run(t, "run", "stills_prompt", "--range", "5-2"); err == nil {
		t.Fatal("expected invalid range error")
	}
	if _, _, err := env.run(t, "run", "stills_generate", "--clean"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected --clean without --force error, got %v", err)
	}
	if _, _, err := env.run(t, "run", "stills_prompt"); err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing llm key error, got %v", err)
	}
	if _, _, err := env.run(t, "run", "video_generate"); err == nil || !strings.Contains(err.Error(), "FAL_KEY") {
		t.Fatalf("expected missing media key error, got %v", err)
	}
}

func TestReviewApproveAndReject(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001", Stills: shots.StatusImageReady, StillsAsset: "production/images/SHOT_001_v1.jpg", Version: 1},
		testsupport.ShotSpec{ID: "SHOT_002", Stills: shots.StatusImageReady, StillsAsset: "production/images/SHOT_002_v1.jpg", Version: 1},
	))

	stdout, _, err := env.run(t, "review", "queue")
	if err != nil {
		t.Fatalf("review queue: %v", err)
	}
	requireContains(t, stdout, "SHOT_001")
	requireContains(t, stdout, "SHOT_002")

	if _, _, err := env.run(t, "review", "reject", "2"); err == nil || !strings.Contains(err.Error(), "--notes") {
		t.Fatalf("expected notes required error, got %v", err)
	}

	stdout, _, err = env.run(t, "review", "approve", "1", "--notes", "good likeness")
	if err != nil {
		t.Fatalf("review approve: %v", err)
	}
	requireContains(t, stdout, "Approved stills SHOT_001")

	if _, _, err := env.run(t, "review", "reject", "2", "--notes", "  face is blurred "); err != nil {
		t.Fatalf("review reject: %v", err)
	}

	board := testsupport.LoadBoard(t, env.cfg)
	approved := testsupport.MustShot(t, board, "SHOT_001")
	if approved.Stills.Status != shots.StatusApproved || approved.Video.Status != shots.StatusReadyForPrompt {
		t.Fatalf("SHOT_001 = %s/%s", approved.Stills.Status, approved.Video.Status)
	}
	if approved.Stills.UpdatedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("updated_at = %q", approved.Stills.UpdatedAt)
	}
	rejected := testsupport.MustShot(t, board, "SHOT_002")
	if rejected.Stills.Status != shots.StatusRejected || rejected.Stills.InspectorFeedback != "face is blurred" {
		t.Fatalf("SHOT_002 = %s %q", rejected.Stills.Status, rejected.Stills.InspectorFeedback)
	}

	stdout, _, err = env.run(t, "review", "queue", "--rejected")
	if err != nil {
		t.Fatalf("review queue --rejected: %v", err)
	}
	requireContains(t, stdout, "face is blurred")

	// Already approved: the whole decision is refused.
	if _, _, err := env.run(t, "review", "approve", "1"); err == nil {
		t.Fatal("expected approving an APPROVED still to fail")
	}
}

func TestPatchRewritesPrompt(t *testing.T) {
	env := setupCLI(t)
	board := testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_003", Stills: shots.StatusRejected, StillsAsset: "production/images/SHOT_003_v1.jpg", Version: 1},
	)
	testsupport.WriteBoard(t, env.cfg, board)
	testsupport.WritePrompt(t, env.cfg, testsupport.MustShot(t, board, "SHOT_003"), shots.TrackStills, "old prompt")

	stdout, _, err := env.run(t, "patch", "SHOT_003", "--prompt", "A close-up of the Princess at dusk.")
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	requireContains(t, stdout, "status APPROVED")

	after := testsupport.MustShot(t, testsupport.LoadBoard(t, env.cfg), "SHOT_003")
	if after.Stills.Status != shots.StatusApproved || after.Stills.AssetPath != "" || after.Stills.Version != 1 {
		t.Fatalf("patched stills = %+v", after.Stills)
	}
	got := testsupport.ReadFile(t, env.cfg.ProjectPath(after.Stills.PromptFile))
	if strings.TrimSpace(got) != "A close-up of the Princess at dusk." {
		t.Fatalf("prompt = %q", got)
	}

	if _, _, err := env.run(t, "patch", "SHOT_003", "--prompt", "x", "--file", "y.txt"); err == nil {
		t.Fatal("expected --prompt and --file to conflict")
	}
}

func TestFailuresWorkflow(t *testing.T) {
	env := setupCLI(t)
	board := testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001", Stills: shots.StatusRejected, StillsAsset: "production/images/SHOT_001_v1.jpg", Version: 1},
	)
	shot := testsupport.MustShot(t, board, "SHOT_001")
	shot.Stills.ReviewNotes = "wrong wardrobe"
	testsupport.WriteBoard(t, env.cfg, board)
	testsupport.WritePrompt(t, env.cfg, shot, shots.TrackStills, "The Princess in court dress.")
	testsupport.WriteFile(t, testsupport.ProjectFile(env.cfg, "production", "images", "SHOT_001_v1.jpg"), "jpeg")

	stdout, _, err := env.run(t, "failures", "package")
	if err != nil {
		t.Fatalf("failures package: %v", err)
	}
	requireContains(t, stdout, "Packaged 1 failure(s)")
	requireContains(t, stdout, "20260102_030405_SHOT_001")

	stdout, _, err = env.run(t, "failures", "report")
	if err != nil {
		t.Fatalf("failures report: %v", err)
	}
	requireContains(t, stdout, "Wrote 1 failure case(s)")
	report := testsupport.ReadFile(t, filepath.Join(env.cfg.Paths.ReportsDir, "FAILURES_REPORT.txt"))
	requireContains(t, report, "wrong wardrobe")
	requireContains(t, report, "The Princess in court dress.")

	dest := filepath.Join(t.TempDir(), "flat")
	stdout, _, err = env.run(t, "failures", "flatten", "--dest", dest)
	if err != nil {
		t.Fatalf("failures flatten: %v", err)
	}
	requireContains(t, stdout, "Copied 3 file(s)")
}

func TestPromptsReframe(t *testing.T) {
	env := setupCLI(t)
	board := testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001", Stills: shots.StatusImageReady, StillsAsset: "production/images/SHOT_001_v1.jpg", Version: 1},
		testsupport.ShotSpec{ID: "SHOT_002"},
	)
	testsupport.WriteBoard(t, env.cfg, board)
	testsupport.WritePrompt(t, env.cfg, testsupport.MustShot(t, board, "SHOT_001"), shots.TrackStills, "Wide shot of the Princess on the cliff.")

	stdout, _, err := env.run(t, "prompts", "reframe")
	if err != nil {
		t.Fatalf("prompts reframe: %v", err)
	}
	requireContains(t, stdout, "Reframed: SHOT_001")
	requireContains(t, stdout, "No prompt file: SHOT_002")

	after := testsupport.MustShot(t, testsupport.LoadBoard(t, env.cfg), "SHOT_001")
	if after.Stills.Status != shots.StatusApproved || after.Stills.AssetPath != "" {
		t.Fatalf("reframed stills = %+v", after.Stills)
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLI(t)
	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t,
		testsupport.ShotSpec{ID: "SHOT_001", Stills: shots.StatusImageReady, StillsAsset: "production/images/SHOT_001_v1.jpg", Version: 1},
		testsupport.ShotSpec{ID: "SHOT_002"},
	))

	stdout, _, err := env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var resp api.StatusResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decode status: %v\n%s", err, stdout)
	}
	if !resp.Board.Loaded || resp.Board.Total != 2 {
		t.Fatalf("board = %+v", resp.Board)
	}
	if resp.PendingReview["stills"] != 1 {
		t.Fatalf("pending review = %+v", resp.PendingReview)
	}
	if len(resp.Stages) != 6 {
		t.Fatalf("stages = %d, want 6", len(resp.Stages))
	}
	if resp.LastBatch != nil {
		t.Fatalf("unexpected last batch %+v", resp.LastBatch)
	}

	stdout, _, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "== Review ==")
	requireContains(t, stdout, "Stills pending")
}

func TestPreflightOffline(t *testing.T) {
	env := setupCLI(t)

	stdout, _, err := env.run(t, "preflight", "--offline")
	if err == nil {
		t.Fatal("expected missing project files to fail preflight")
	}
	requireContains(t, stdout, "Shot board")
	requireContains(t, stdout, "[ERROR]")

	testsupport.WriteBoard(t, env.cfg, testsupport.NewBoard(t, testsupport.ShotSpec{ID: "SHOT_001"}))
	testsupport.WriteScenes(t, env.cfg, "1.1")
	testsupport.WriteFile(t, env.cfg.Paths.Assets, "wardrobe: {}\nlocations: {}\n")

	stdout, _, err = env.run(t, "preflight", "--offline")
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "1 shots, consistent")
}

func TestNotifyTestWithoutTopic(t *testing.T) {
	env := setupCLI(t)

	stdout, _, err := env.run(t, "notify", "test")
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, stdout, "Notifications disabled")
}

func TestLogsFiltersEntries(t *testing.T) {
	env := setupCLI(t)
	lines := []string{
		`{"ts":"2026-01-02T03:04:05Z","level":"info","msg":"batch started","stage":"stills_prompt","batch_id":"b1"}`,
		`{"ts":"2026-01-02T03:04:06Z","level":"info","msg":"prompt written","stage":"stills_prompt","shot_id":"SHOT_001","batch_id":"b1"}`,
		`{"ts":"2026-01-02T03:04:07Z","level":"error","msg":"prompt failed","stage":"stills_prompt","shot_id":"SHOT_002","batch_id":"b1","error":"status 500"}`,
	}
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.LogDir, "shotline.log"), strings.Join(lines, "\n")+"\n")

	stdout, _, err := env.run(t, "logs", "--shot", "2")
	if err != nil {
		t.Fatalf("logs --shot: %v", err)
	}
	requireContains(t, stdout, "prompt failed")
	if strings.Contains(stdout, "prompt written") {
		t.Fatalf("unexpected SHOT_001 entry:\n%s", stdout)
	}

	stdout, _, err = env.run(t, "logs", "--level", "error", "--raw")
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.TrimSpace(stdout) != lines[2] {
		t.Fatalf("raw output = %q", stdout)
	}

	stdout, _, err = env.run(t, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs -n: %v", err)
	}
	if strings.Contains(stdout, "batch started") || !strings.Contains(stdout, "prompt written") {
		t.Fatalf("expected last two entries:\n%s", stdout)
	}

	if _, _, err := env.run(t, "logs", "--stage", "bogus"); err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
}
