package async

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/maestro/errors"
)

const journalTimeFormat = "2006-01-02 15:04:05"

// Journal persists job transitions to the dbops_jobs table so history
// survives a restart. The in-memory queue stays authoritative; journal
// failures are logged and otherwise ignored.
type Journal struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewJournal creates a journal over an open, migrated database.
func NewJournal(db *sql.DB, log *zap.SugaredLogger) *Journal {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Journal{db: db, log: log}
}

// Record upserts the job's current state.
func (j *Journal) Record(ctx context.Context, job Job) error {
	if job.ID == "" {
		return errors.Newf("journal: job %s has no id", job.Label())
	}
	args, err := json.Marshal(job.Arguments)
	if err != nil {
		return errors.Wrap(err, "failed to marshal job arguments")
	}
	var jobErr sql.NullString
	if job.Error != "" {
		jobErr = sql.NullString{String: job.Error, Valid: true}
	}

	query := `
		INSERT INTO dbops_jobs (
			id, job_type, seq, arguments, retries, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			arguments = excluded.arguments,
			retries = excluded.retries,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`
	_, err = j.db.ExecContext(ctx, query,
		job.ID,
		job.Type,
		job.Seq,
		string(args),
		job.Retries,
		string(job.Status),
		jobErr,
		job.CreatedAt.UTC().Format(journalTimeFormat),
		job.UpdatedAt.UTC().Format(journalTimeFormat),
	)
	if err != nil {
		err = errors.Wrap(err, "failed to record job")
		return errors.WithDetailf(err, "job: %s", job.Label())
	}
	return nil
}

// Subscriber adapts Record to Queue.Subscribe.
func (j *Journal) Subscriber(ctx context.Context) func(Job) {
	return func(job Job) {
		if err := j.Record(ctx, job); err != nil {
			j.log.Warnw("Failed to journal job", "job", job.Label(), "error", err)
		}
	}
}

// List returns journaled jobs, newest first, optionally filtered by status.
func (j *Journal) List(ctx context.Context, status JobStatus, limit int) ([]Job, error) {
	query := `SELECT id, job_type, seq, arguments, retries, status, error, created_at, updated_at FROM dbops_jobs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job                  Job
			arguments, status    string
			jobErr               sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&job.ID, &job.Type, &job.Seq, &arguments, &job.Retries, &status, &jobErr, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		if err := json.Unmarshal([]byte(arguments), &job.Arguments); err != nil {
			return nil, errors.Wrapf(err, "failed to decode arguments of job %s", job.ID)
		}
		job.Status = JobStatus(status)
		job.Error = jobErr.String
		job.CreatedAt, _ = time.Parse(journalTimeFormat, createdAt)
		job.UpdatedAt, _ = time.Parse(journalTimeFormat, updatedAt)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate jobs")
	}
	return jobs, nil
}
