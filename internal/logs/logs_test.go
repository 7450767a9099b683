package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shotline/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shotline.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	result, err := logs.Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("lines = %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}

	missing, err := logs.Tail(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil || len(missing.Lines) != 0 || missing.Offset != 0 {
		t.Fatalf("missing file = %+v, %v", missing, err)
	}
}

func TestReadFromSkipsPartialLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shotline.log")
	if err := os.WriteFile(path, []byte("one\ntwo"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	res, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0] != "one" || res.Offset != 4 {
		t.Fatalf("result = %+v", res)
	}

	res, err = logs.ReadFrom(path, 100)
	if err != nil {
		t.Fatalf("ReadFrom past end: %v", err)
	}
	if len(res.Lines) != 1 {
		t.Fatalf("truncated file should restart, got %+v", res)
	}
}

func TestFollowDeliversNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shotline.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, 6, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			cancel()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("followed lines = %#v", got)
	}
}

func TestParseEntryAndFilter(t *testing.T) {
	line := `{"ts":"2026-01-02T03:04:05Z","level":"warn","msg":"inspection rejected","component":"stage","shot_id":"SHOT_004","stage":"stills_inspect","batch_id":"abcd1234-ef","attempt":2,"error":"status 500"}`
	e := logs.ParseEntry(line)
	if e.ShotID != "SHOT_004" || e.Stage != "stills_inspect" || e.Level != "warn" || e.Error != "status 500" {
		t.Fatalf("entry = %+v", e)
	}
	if e.Attrs["attempt"] != "2" {
		t.Fatalf("attrs = %#v", e.Attrs)
	}
	rendered := e.String()
	for _, want := range []string{"WARN", "[stills_inspect SHOT_004]", "inspection rejected", `error="status 500"`, "attempt=2"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered %q missing %q", rendered, want)
		}
	}

	cases := []struct {
		filter logs.Filter
		want   bool
	}{
		{logs.Filter{}, true},
		{logs.Filter{ShotID: "shot_004"}, true},
		{logs.Filter{ShotID: "SHOT_005"}, false},
		{logs.Filter{Stage: "stills_generate"}, false},
		{logs.Filter{BatchID: "abcd"}, true},
		{logs.Filter{Level: "error"}, false},
		{logs.Filter{Level: "info"}, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(e); got != tc.want {
			t.Errorf("%+v.Match = %v, want %v", tc.filter, got, tc.want)
		}
	}

	plain := logs.ParseEntry("not json")
	if plain.Message != "not json" || !(logs.Filter{Level: "error"}).Match(plain) {
		t.Fatalf("plain entry = %+v", plain)
	}
}
