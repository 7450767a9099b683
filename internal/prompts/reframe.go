package prompts

import (
	"regexp"
	"strings"
)

const closeupSuffix = ", sharp focus on eyes, highly detailed face, close proximity to camera"

var reframeRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)\bextreme wide shot\b`), "Medium Shot"},
	{regexp.MustCompile(`(?i)\bwide shot\b`), "Cinematic Medium Close-Up"},
	{regexp.MustCompile(`(?i)\bfull[- ]body\b`), "Waist-up shot"},
}

// Reframe pulls a still prompt closer to the subject: wide and full-body
// framings become medium close-ups and a face-detail suffix is appended once.
// It reports whether the text changed.
func Reframe(text string) (string, bool) {
	original := strings.TrimSpace(text)
	out := original
	for _, rule := range reframeRules {
		out = rule.pattern.ReplaceAllString(out, rule.repl)
	}
	if !strings.Contains(strings.ToLower(out), "sharp focus on eyes") {
		out = strings.TrimRight(out, " ,.") + closeupSuffix
	}
	return out, out != original
}
