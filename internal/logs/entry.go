package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"shotline/internal/logging"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	ShotID    string
	Stage     string
	BatchID   string
	Error     string
	// Attrs holds the remaining scalar fields.
	Attrs map[string]string
}

// ParseEntry decodes a line written by the file handler. Lines that are not
// JSON objects are returned as plain messages.
func ParseEntry(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line}
	}
	e := Entry{Attrs: make(map[string]string)}
	for key, value := range raw {
		text := scalar(value)
		switch key {
		case "ts":
			e.Time = text
		case "level":
			e.Level = strings.ToLower(text)
		case "msg":
			e.Message = text
		case logging.FieldComponent:
			e.Component = text
		case logging.FieldShotID:
			e.ShotID = text
		case logging.FieldStage:
			e.Stage = text
		case logging.FieldBatchID:
			e.BatchID = text
		case "error":
			e.Error = text
		case "source":
		default:
			if text != "" {
				e.Attrs[key] = text
			}
		}
	}
	return e
}

func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// String renders the entry on one line.
func (e Entry) String() string {
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(e.Time)
		b.WriteByte(' ')
	}
	if e.Level != "" {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	}
	var subject []string
	for _, part := range []string{e.Stage, e.ShotID} {
		if part != "" {
			subject = append(subject, part)
		}
	}
	if len(subject) > 0 {
		fmt.Fprintf(&b, "[%s] ", strings.Join(subject, " "))
	}
	b.WriteString(e.Message)
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	keys := make([]string, 0, len(e.Attrs))
	for key := range e.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, e.Attrs[key])
	}
	return b.String()
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	ShotID  string
	Stage   string
	BatchID string
	// Level is the minimum level shown.
	Level string
}

// Match reports whether e passes every set field of f.
func (f Filter) Match(e Entry) bool {
	if f.ShotID != "" && !strings.EqualFold(e.ShotID, f.ShotID) {
		return false
	}
	if f.Stage != "" && e.Stage != f.Stage {
		return false
	}
	if f.BatchID != "" && !strings.HasPrefix(e.BatchID, f.BatchID) {
		return false
	}
	if floor, ok := levelRank[strings.ToLower(f.Level)]; ok {
		if rank, known := levelRank[e.Level]; known && rank < floor {
			return false
		}
	}
	return true
}
