package review

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shotline/internal/config"
	"shotline/internal/fileutil"
	"shotline/internal/shots"
)

const (
	feedbackFile = "USER_FEEDBACK.txt"
	reportFile   = "FAILURES_REPORT.txt"
)

// Package is one failure folder written by PackageFailures.
type Package struct {
	ShotID string
	Dir    string
	Files  []string
}

// PackageFailures copies the prompt, the rejected asset, and the reviewer's
// feedback of every rejected shot on track into
// <failures_dir>/<timestamp>_<SHOT>/. Missing prompt or asset files are
// skipped; the feedback file is always written.
func PackageFailures(cfg *config.Config, board *shots.Board, track shots.Track, now time.Time) ([]Package, error) {
	stamp := now.Format("20060102_150405")
	var out []Package
	for _, shot := range Rejected(board, track) {
		state := shot.Track(track)
		dir := filepath.Join(cfg.Paths.FailuresDir, stamp+"_"+filepath.Base(shot.ID))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return out, fmt.Errorf("create failure folder: %w", err)
		}
		pkg := Package{ShotID: shot.ID, Dir: dir}
		for _, rel := range []string{state.PromptFile, state.AssetPath} {
			src := cfg.ProjectPath(rel)
			if !fileutil.Exists(src) {
				continue
			}
			dst := filepath.Join(dir, filepath.Base(src))
			if err := fileutil.CopyFile(src, dst); err != nil {
				return out, fmt.Errorf("copy %s: %w", src, err)
			}
			pkg.Files = append(pkg.Files, filepath.Base(dst))
		}
		feedback := strings.TrimSpace(state.ReviewNotes)
		if feedback == "" {
			feedback = strings.TrimSpace(state.InspectorFeedback)
		}
		if feedback == "" {
			feedback = "(no feedback recorded)"
		}
		if err := fileutil.WriteTextFile(filepath.Join(dir, feedbackFile), feedback+"\n"); err != nil {
			return out, fmt.Errorf("write feedback: %w", err)
		}
		pkg.Files = append(pkg.Files, feedbackFile)
		out = append(out, pkg)
	}
	return out, nil
}

// Report concatenates every failure folder under failuresDir into
// <outDir>/FAILURES_REPORT.txt and returns the report path and folder count.
func Report(failuresDir, outDir string) (string, int, error) {
	entries, err := os.ReadDir(failuresDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			entries = nil
		} else {
			return "", 0, fmt.Errorf("read failures dir: %w", err)
		}
	}
	var b strings.Builder
	b.WriteString("--- COMPREHENSIVE FAILURE REPORT ---\n\n")
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(failuresDir, entry.Name())
		b.WriteString(strings.Repeat("=", 50))
		b.WriteString("\n")
		fmt.Fprintf(&b, "FAILURE CASE: %s\n", entry.Name())
		b.WriteString(strings.Repeat("=", 50))
		b.WriteString("\n")

		feedback, err := os.ReadFile(filepath.Join(dir, feedbackFile))
		if err == nil {
			fmt.Fprintf(&b, "USER FEEDBACK:\n%s\n\n", strings.TrimSpace(string(feedback)))
		}
		prompts, _ := filepath.Glob(filepath.Join(dir, "shot_*.txt"))
		sort.Strings(prompts)
		for _, p := range prompts {
			text, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "PROMPT USED:\n%s\n\n", strings.TrimSpace(string(text)))
		}
		count++
	}
	path := filepath.Join(outDir, reportFile)
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", 0, fmt.Errorf("write report: %w", err)
	}
	return path, count, nil
}

var flattenExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".txt": true}

// Flatten copies every image and text file below src into dest, prefixing
// each name with its parent folder so files from different cases never
// collide. dest is emptied first.
func Flatten(src, dest string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failures dir: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("failures dir %s is not a directory", src)
	}
	if err := os.RemoveAll(dest); err != nil {
		return 0, fmt.Errorf("clear %s: %w", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	count := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !flattenExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		parent := filepath.Base(filepath.Dir(path))
		if err := fileutil.CopyFile(path, filepath.Join(dest, parent+"_"+d.Name())); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("flatten: %w", err)
	}
	return count, nil
}
