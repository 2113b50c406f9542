package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/maestro/db"
	"github.com/teranos/maestro/errors"
)

// RunRecord is one row of schedule_runs.
type RunRecord struct {
	ID          string
	WindowStart time.Time
	WindowEnd   time.Time
	LineCount   int
	OutputPath  *string
	CreatedAt   time.Time
}

// RunLog persists the history of scheduling runs.
type RunLog struct {
	db *sql.DB
}

// NewRunLog wraps a migrated database.
func NewRunLog(conn *sql.DB) *RunLog {
	return &RunLog{db: conn}
}

// Create records a finished run.
func (l *RunLog) Create(ctx context.Context, rec RunRecord) error {
	var output interface{}
	if rec.OutputPath != nil {
		output = *rec.OutputPath
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO schedule_runs (id, window_start, window_end, line_count, output_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.WindowStart.UTC().Format(time.RFC3339),
		rec.WindowEnd.UTC().Format(time.RFC3339),
		rec.LineCount,
		output,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.WithDetailf(errors.Wrap(db.Classify(err), "record schedule run"), "run_id: %s", rec.ID)
	}
	return nil
}

// Get loads one run.
func (l *RunLog) Get(ctx context.Context, id string) (*RunRecord, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, window_start, window_end, line_count, output_path, created_at
		FROM schedule_runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("schedule run %s", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the most recent runs first, at most limit (all when <= 0).
func (l *RunLog) List(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, window_start, window_end, line_count, output_path, created_at
		FROM schedule_runs ORDER BY created_at DESC, window_start DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(db.Classify(err), "list schedule runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, errors.Wrap(rows.Err(), "list schedule runs")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var rec RunRecord
	var start, end, created string
	var output sql.NullString
	if err := s.Scan(&rec.ID, &start, &end, &rec.LineCount, &output, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan schedule run")
	}
	var err error
	if rec.WindowStart, err = time.Parse(time.RFC3339, start); err != nil {
		return nil, errors.Wrap(err, "parse window_start")
	}
	if rec.WindowEnd, err = time.Parse(time.RFC3339, end); err != nil {
		return nil, errors.Wrap(err, "parse window_end")
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, errors.Wrap(err, "parse created_at")
	}
	if output.Valid {
		rec.OutputPath = &output.String
	}
	return &rec, nil
}
