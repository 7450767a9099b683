package scenes

import (
	"context"
	"fmt"
	"time"

	"shotline/internal/fileutil"
	"shotline/internal/services"
	"shotline/internal/shots"
)

// InitOptions describes where Initialize writes its output.
type InitOptions struct {
	BoardPath  string
	ScenesPath string
	Template   *Template
	Expand     ExpandOptions
	// Force overwrites an existing board.
	Force bool
	// LockPath is the board lock held while writing. Empty means
	// BoardPath + ".lock".
	LockPath    string
	LockTimeout time.Duration
}

// InitResult reports what Initialize wrote.
type InitResult struct {
	Shots  int
	Scenes int
}

// Initialize expands the template and writes the board and scene database
// under the board lock. An existing board is left alone unless Force is set.
func Initialize(ctx context.Context, opts InitOptions) (InitResult, error) {
	if opts.Template == nil {
		return InitResult{}, services.Wrap(services.ErrValidation, "", "init", "template required", nil)
	}
	lockPath := opts.LockPath
	if lockPath == "" {
		lockPath = opts.BoardPath + ".lock"
	}
	lock, err := shots.AcquireLock(ctx, lockPath, opts.LockTimeout)
	if err != nil {
		return InitResult{}, err
	}
	defer lock.Release()

	if fileutil.Exists(opts.BoardPath) && !opts.Force {
		return InitResult{}, services.Wrap(services.ErrValidation, "", "init",
			fmt.Sprintf("%s already exists (use --force to overwrite)", opts.BoardPath), nil)
	}
	board, db, err := Expand(opts.Template, opts.Expand)
	if err != nil {
		return InitResult{}, err
	}
	if err := shots.Save(opts.BoardPath, board); err != nil {
		return InitResult{}, err
	}
	if err := SaveDB(opts.ScenesPath, db); err != nil {
		return InitResult{}, fmt.Errorf("save scenes db: %w", err)
	}
	return InitResult{Shots: board.Len(), Scenes: db.Len()}, nil
}
