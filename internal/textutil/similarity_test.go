package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewFingerprint("neon alley rain")},
		{"b nil", NewFingerprint("neon alley rain"), nil},
		{"zero norm", &Fingerprint{tokens: map[string]float64{}}, NewFingerprint("neon alley rain")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityIdenticalAndDisjoint(t *testing.T) {
	text := "Medium close-up of the detective reaching for the door handle"
	if got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text)); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical similarity = %v, want 1", got)
	}
	if got := CosineSimilarity(NewFingerprint("apple banana cherry"), NewFingerprint("dog elephant frog")); got != 0 {
		t.Errorf("disjoint similarity = %v, want 0", got)
	}
}

func TestSimilarityDistinguishesPolishFromRewrite(t *testing.T) {
	original := "Cinematic medium shot, a woman in a red coat stands at a rainy bus stop at night, neon reflections on wet asphalt, her hand reaching toward the bus door"
	polished := "Cinematic medium shot: a woman in a red coat stands at a rainy bus stop at night; neon reflections on the wet asphalt, her hand reaching toward the bus door."
	rewrite := "Wide aerial drone view over a sunny desert highway with a lone truck kicking up dust"

	if sim := Similarity(original, polished); sim < 0.9 {
		t.Errorf("polish similarity = %v, want >= 0.9", sim)
	}
	if sim := Similarity(original, rewrite); sim >= 0.55 {
		t.Errorf("rewrite similarity = %v, want < 0.55", sim)
	}
	if sim := Similarity("", " "); sim != 1 {
		t.Errorf("empty similarity = %v, want 1", sim)
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "hello hello world" -> hello:2, world:1
	fp := NewFingerprint("hello hello world")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, math.Sqrt(5))
	}
	if fp.TokenCount() != 2 {
		t.Errorf("TokenCount() = %d, want 2", fp.TokenCount())
	}
	if NewFingerprint("a an it to") != nil {
		t.Error("expected nil for text with only short tokens")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple words", "Hello World", []string{"hello", "world"}},
		{"filters short", "a to the quick fox", []string{"the", "quick", "fox"}},
		{"handles punctuation", "Close-up, sharp focus!", []string{"close", "sharp", "focus"}},
		{"empty string", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLimitWordsAndCollapse(t *testing.T) {
	if got := LimitWords("one two  three\nfour", 3); got != "one two three" {
		t.Errorf("LimitWords = %q", got)
	}
	if got := LimitWords("one two", 0); got != "one two" {
		t.Errorf("LimitWords unlimited = %q", got)
	}
	if got := CollapseWhitespace("  a\t b \n c "); got != "a b c" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
	if got := SanitizeToken("Scene 04 / Night"); got != "scene_04___night" {
		t.Errorf("SanitizeToken = %q", got)
	}
}
