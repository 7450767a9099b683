package shots

import (
	"context"
	"time"
)

// Update loads the board while holding the lock at lockPath, runs fn, and
// saves the board once if fn reports a change. An error from fn leaves the
// file untouched.
func Update(ctx context.Context, boardPath, lockPath string, timeout time.Duration, fn func(*Board) (bool, error)) error {
	lock, err := AcquireLock(ctx, lockPath, timeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	board, err := Load(boardPath)
	if err != nil {
		return err
	}
	changed, err := fn(board)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return Save(boardPath, board)
}
