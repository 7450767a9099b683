package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shotline/internal/config"
	"shotline/internal/generation"
	"shotline/internal/testsupport"
)

var cliNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type cliEnv struct {
	cfg        *config.Config
	gen        *testsupport.FakeGenerator
	configPath string
}

func setupCLI(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	env := &cliEnv{
		cfg:        cfg,
		gen:        &testsupport.FakeGenerator{},
		configPath: filepath.Join(testsupport.BaseDir(cfg), "shotline.toml"),
	}
	writeTestConfig(t, env.configPath, cfg)

	prevGen, prevClock := newGenerator, clock
	newGenerator = func(*config.Config, *slog.Logger) (generation.Adapter, error) {
		return env.gen, nil
	}
	clock = func() time.Time { return cliNow }
	t.Cleanup(func() {
		newGenerator = prevGen
		clock = prevClock
	})
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeTestConfig serializes cfg so the CLI reads back the same absolute paths.
func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	snapshot := *cfg
	if snapshot.Retry.MaxDelaySeconds <= 0 {
		snapshot.Retry.MaxDelaySeconds = 1
	}
	data, err := toml.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\n%s", substr, output)
	}
}
