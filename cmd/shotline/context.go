package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"shotline/internal/batch"
	"shotline/internal/config"
	"shotline/internal/generation"
	"shotline/internal/logging"
	"shotline/internal/notifications"
	"shotline/internal/runlog"
	"shotline/internal/shots"
)

const boardLockTimeout = 5 * time.Second

// newGenerator builds the provider adapter. Tests replace it with a fake.
var newGenerator = func(cfg *config.Config, logger *slog.Logger) (generation.Adapter, error) {
	return generation.NewFromConfig(cfg, logger)
}

// clock is the time source for timestamps written by CLI commands.
var clock = time.Now

type commandContext struct {
	configFlag *string
	verbose    *bool
	errOut     io.Writer

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// loggerFor returns the process logger. Console output goes to stderr so
// stdout stays parseable for --json.
func (c *commandContext) loggerFor() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		level := cfg.Logging.Level
		if c.verbose != nil && *c.verbose {
			level = "debug"
		}
		out := c.errOut
		if out == nil {
			out = os.Stderr
		}
		opts := logging.Options{Level: level, Format: cfg.Logging.Format, Writer: out}
		if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
			opts.FilePath = filepath.Join(dir, logging.LogFileName)
		}
		logger, err := logging.New(opts)
		if err != nil {
			fmt.Fprintf(out, "logging disabled: %v\n", err)
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) generator() (generation.Adapter, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newGenerator(cfg, c.loggerFor())
}

// scheduler wires the batch scheduler with the run ledger and notifications.
// The returned cleanup closes the ledger.
func (c *commandContext) scheduler(gen generation.Adapter) (*batch.Scheduler, *runlog.Store, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := c.loggerFor()
	opts := []batch.Option{
		batch.WithNotifier(notifications.NewService(cfg)),
		batch.WithClock(clock),
	}
	store, err := runlog.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "runlog_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+cfg.RunLogPath()),
			logging.String(logging.FieldImpact, "this batch will not appear in `shotline history`"),
		)
	} else {
		opts = append(opts, batch.WithRecorder(store))
	}
	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	return batch.New(cfg, gen, logger, opts...), store, cleanup, nil
}

// updateBoard runs fn under the board lock and saves when it reports a change.
func (c *commandContext) updateBoard(ctx context.Context, fn func(*shots.Board) (bool, error)) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return shots.Update(ctx, cfg.Paths.ShotsBoard, cfg.BoardLockPath(), boardLockTimeout, fn)
}

func (c *commandContext) loadBoard() (*config.Config, *shots.Board, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	board, err := shots.Load(cfg.Paths.ShotsBoard)
	if err != nil {
		return nil, nil, err
	}
	return cfg, board, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
