package shots

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"shotline/internal/fileutil"
	"shotline/internal/services"
)

// StoreCorruptError reports a board file that exists but cannot be trusted.
type StoreCorruptError struct {
	Path string
	Err  error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("shot store %s is corrupt: %v", e.Path, e.Err)
}

func (e *StoreCorruptError) Unwrap() []error {
	return []error{services.ErrStoreCorrupt, e.Err}
}

// Load reads and validates the board at path. A missing file is a
// missing-input error; anything unreadable or malformed is StoreCorruptError.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingInput, "", "load shots", path+" not found (run `shotline shots init`)", err)
		}
		return nil, &StoreCorruptError{Path: path, Err: err}
	}
	board, err := Parse(data)
	if err != nil {
		return nil, &StoreCorruptError{Path: path, Err: err}
	}
	return board, nil
}

// Save writes the board atomically: readers see either the old or the new
// document, never a partial one.
func Save(path string, board *Board) error {
	data, err := board.Marshal()
	if err != nil {
		return fmt.Errorf("encode shot store: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save shot store %s: %w", path, err)
	}
	return nil
}
