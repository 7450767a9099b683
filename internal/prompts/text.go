package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"shotline/internal/fileutil"
	"shotline/internal/services"
	"shotline/internal/services/llm"
	"shotline/internal/textutil"
)

var leadingLabel = regexp.MustCompile(`(?i)^(final\s+)?(prompt|output)\s*:\s*`)

// Normalize cleans model output into prompt-file form: code fences, a leading
// "Prompt:" label, and wrapping quotes are removed, whitespace is collapsed,
// and the text is NFC-normalized.
func Normalize(text string) string {
	text = llm.StripCodeFence(text)
	text = norm.NFC.String(text)
	text = textutil.CollapseWhitespace(text)
	text = leadingLabel.ReplaceAllString(text, "")
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}

// Equivalent reports whether two prompts carry the same content, judged by
// token fingerprint similarity against threshold.
func Equivalent(a, b string, threshold float64) (float64, bool) {
	sim := textutil.Similarity(a, b)
	return sim, sim >= threshold
}

// Read loads a prompt file. A missing file is a missing-input error.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrMissingInput, "", "read prompt", path+" not found", err)
		}
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", services.Wrap(services.ErrMissingInput, "", "read prompt", path+" is empty", nil)
	}
	return text, nil
}

// Write stores a prompt file atomically, creating parent directories.
func Write(path, text string) error {
	return fileutil.WriteFileAtomic(path, []byte(strings.TrimSpace(text)+"\n"), 0o644)
}
