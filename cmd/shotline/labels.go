package main

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shotline/internal/stage"
)

var titleCaser = cases.Title(language.English)

// stageLabel renders "stills_inspect" as "Stills Inspect".
func stageLabel(name stage.Name) string {
	return titleCaser.String(strings.ReplaceAll(string(name), "_", " "))
}

// statusLabel renders "READY_FOR_PROMPT" as "Ready For Prompt".
func statusLabel(status string) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(status), "_", " "))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
