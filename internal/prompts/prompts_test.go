package prompts_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"shotline/internal/prompts"
	"shotline/internal/scenes"
	"shotline/internal/services"
	"shotline/internal/shots"
)

func sampleShot() *shots.Shot {
	shot := shots.NewShot("SHOT_004")
	shot.SceneRef = "SCENE_1_DEPARTURE"
	shot.Brief.Visual = "Close Up. Transferring the flame to the lantern wick. It ignites."
	shot.Brief.Motion = "Light flares up."
	shot.Constraints = []byte(`{"avoid_occlusion":true,"lighting_type":"FIRE_GLOW"}`)
	return shot
}

func TestStillsAuthoringCarriesBriefAndRule(t *testing.T) {
	sc := scenes.Context{
		Location: "Dark cottage interior",
		Wardrobe: "Wool shawl",
		Moods:    []string{"Intimate", "Beginning"},
		Trigger:  "miriN14",
	}
	req := prompts.StillsAuthoring(sampleShot(), sc)
	for _, want := range []string{"T=0", "BEFORE", `"miriN14"`} {
		if !strings.Contains(req.System, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	for _, want := range []string{
		"VISUAL ACTION: Close Up. Transferring the flame",
		"LOCATION: Dark cottage interior",
		"MOOD: Intimate, Beginning",
		"TECHNICAL CONSTRAINTS: avoid_occlusion=true, lighting_type=FIRE_GLOW",
	} {
		if !strings.Contains(req.User, want) {
			t.Errorf("user prompt missing %q\n%s", want, req.User)
		}
	}
}

func TestInspectionEmbedsCurrentPrompt(t *testing.T) {
	req := prompts.Inspection(shots.TrackStills, sampleShot(), "  A lantern already burning brightly.  ")
	if req.User != "INPUT PROMPT:\nA lantern already burning brightly." {
		t.Fatalf("unexpected user prompt %q", req.User)
	}
	if !strings.Contains(req.System, "MODESTY") || !strings.Contains(req.System, "lighting_type=FIRE_GLOW") {
		t.Fatalf("unexpected system prompt %s", req.System)
	}
	video := prompts.Inspection(shots.TrackVideo, sampleShot(), "Camera: push in.")
	if !strings.Contains(video.System, "No morphing") {
		t.Fatal("video inspection should carry motion safety rules")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "```text\nPrompt: \"A girl  holds\n an unlit lantern\"\n```", want: "A girl holds an unlit lantern"},
		{in: "  plain text  ", want: "plain text"},
		{in: "Cafe\u0301 at night", want: "Caf\u00e9 at night"},
		{in: "'quoted'", want: "quoted"},
	}
	for _, tc := range cases {
		if got := prompts.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEquivalent(t *testing.T) {
	a := "Miri kneeling by the fireplace holding an unlit lantern, warm fire glow, cinematic"
	b := "Miri kneeling by the fireplace, holding an unlit lantern, warm fire glow, cinematic 8k"
	if _, ok := prompts.Equivalent(a, b, 0.55); !ok {
		t.Fatal("cosmetic polish should be equivalent")
	}
	if sim, ok := prompts.Equivalent(a, "A spaceship landing in a neon city", 0.55); ok {
		t.Fatalf("unrelated prompt judged equivalent (%.2f)", sim)
	}
}

func TestReframe(t *testing.T) {
	out, changed := prompts.Reframe("Extreme wide shot of a valley. Full body view of Miri.")
	if !changed {
		t.Fatal("expected change")
	}
	want := "Medium Shot of a valley. Waist-up shot view of Miri" + ", sharp focus on eyes, highly detailed face, close proximity to camera"
	if out != want {
		t.Fatalf("got %q\nwant %q", out, want)
	}
	again, changed := prompts.Reframe(out)
	if changed || again != out {
		t.Fatalf("reframe must be idempotent, got %q", again)
	}
	wide, _ := prompts.Reframe("Wide shot, forest")
	if !strings.HasPrefix(wide, "Cinematic Medium Close-Up, forest") {
		t.Fatalf("unexpected %q", wide)
	}
}

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts", "stills", "shot_001.txt")
	if _, err := prompts.Read(path); !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
	if err := prompts.Write(path, "  hello  "); err != nil {
		t.Fatal(err)
	}
	got, err := prompts.Read(path)
	if err != nil || got != "hello" {
		t.Fatalf("unexpected read %q %v", got, err)
	}
}
