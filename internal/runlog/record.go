package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shotline/internal/batch"
	"shotline/internal/stage"
)

// ErrNotFound is returned when a batch id is unknown.
var ErrNotFound = errors.New("batch not found")

const batchColumns = "id, stage, filter, started_at, finished_at, selected, succeeded, skipped, failed, incomplete, saved, missing"

// Record stores a batch summary and its per-shot results in one transaction.
func (s *Store) Record(ctx context.Context, summary batch.Summary) error {
	if strings.TrimSpace(summary.BatchID) == "" {
		return errors.New("record batch: batch id required")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		finished := formatTime(summary.FinishedAt)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.BatchID,
			string(summary.Stage),
			summary.Filter,
			formatTime(summary.StartedAt),
			finished,
			summary.Selected,
			summary.Succeeded(),
			summary.Skipped(),
			summary.Failed(),
			summary.Incomplete(),
			boolToInt(summary.Saved),
			nullableString(strings.Join(summary.Missing, ",")),
		); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		for _, res := range summary.Results {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO shot_runs (batch_id, shot_id, stage, result, kind, reason, detail, duration_ms, finished_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				summary.BatchID,
				res.ShotID,
				string(summary.Stage),
				string(res.Result),
				nullableString(res.Kind),
				nullableString(res.Reason),
				nullableString(res.Detail),
				res.Duration.Milliseconds(),
				finished,
			); err != nil {
				return fmt.Errorf("insert shot run %s: %w", res.ShotID, err)
			}
		}
		return tx.Commit()
	})
}

// Batches lists the most recent batches, newest first. A stage filters to one
// stage when non-empty.
func (s *Store) Batches(ctx context.Context, name stage.Name, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + batchColumns + ` FROM batches`
	args := []any{}
	if name != "" {
		query += ` WHERE stage = ?`
		args = append(args, string(name))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Batch returns one batch and its shot results in shot order.
func (s *Store) Batch(ctx context.Context, id string) (Batch, []ShotRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Batch{}, nil, err
	}
	runs, err := s.queryRuns(ctx, `WHERE batch_id = ? ORDER BY shot_id`, id)
	if err != nil {
		return Batch{}, nil, err
	}
	return b, runs, nil
}

// ShotHistory lists the recorded results for one shot, newest first.
func (s *Store) ShotHistory(ctx context.Context, shotID string, limit int) ([]ShotRun, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryRuns(ctx, `WHERE shot_id = ? ORDER BY finished_at DESC LIMIT ?`, shotID, limit)
}

// Prune deletes batches that finished before cutoff and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	stamp := formatTime(cutoff)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		// foreign_keys is per connection, so child rows are removed explicitly.
		if _, err := tx.ExecContext(ctx, `DELETE FROM shot_runs WHERE batch_id IN (SELECT id FROM batches WHERE finished_at < ?)`, stamp); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE finished_at < ?`, stamp)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return removed, nil
}

func (s *Store) queryRuns(ctx context.Context, where string, args ...any) ([]ShotRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, shot_id, stage, result, kind, reason, detail, duration_ms, finished_at FROM shot_runs `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query shot runs: %w", err)
	}
	defer rows.Close()

	var out []ShotRun
	for rows.Next() {
		var (
			run                  ShotRun
			stageName, result    string
			kind, reason, detail sql.NullString
			durationMS           int64
			finished             string
		)
		if err := rows.Scan(&run.BatchID, &run.ShotID, &stageName, &result, &kind, &reason, &detail, &durationMS, &finished); err != nil {
			return nil, fmt.Errorf("scan shot run: %w", err)
		}
		run.Stage = stage.Name(stageName)
		run.Result = stage.Result(result)
		run.Kind = kind.String
		run.Reason = reason.String
		run.Detail = detail.String
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.FinishedAt = parseTime(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanBatch(scanner interface{ Scan(dest ...any) error }) (Batch, error) {
	var (
		b                 Batch
		stageName         string
		started, finished string
		saved             int
		missing           sql.NullString
	)
	if err := scanner.Scan(&b.ID, &stageName, &b.Filter, &started, &finished,
		&b.Selected, &b.Succeeded, &b.Skipped, &b.Failed, &b.Incomplete, &saved, &missing); err != nil {
		return Batch{}, err
	}
	b.Stage = stage.Name(stageName)
	b.StartedAt = parseTime(started)
	b.FinishedAt = parseTime(finished)
	b.Saved = saved != 0
	if missing.Valid && missing.String != "" {
		b.Missing = strings.Split(missing.String, ",")
	}
	return b, nil
}
