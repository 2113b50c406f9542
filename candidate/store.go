package candidate

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/maestro/db"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/sky"
)

// Store is the sqlite-backed candidate store. Every error it returns has
// been through db.Classify, so lock contention is marked transient.
type Store struct {
	db     *sql.DB
	author string
	clock  sky.Clock
	log    *zap.SugaredLogger
	closed atomic.Bool
}

// NewStore wraps an open, migrated database. author is recorded on inserted
// candidates and prefixed to removal and rejection reasons.
func NewStore(conn *sql.DB, author string, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{db: conn, author: author, clock: sky.SystemClock, log: log}
}

// WithClock replaces the clock used for DateAdded, DateLastEdited and RemovedDt.
func (s *Store) WithClock(clock sky.Clock) *Store {
	s.clock = clock
	return s
}

// Author is the name this store writes as.
func (s *Store) Author() string { return s.author }

// DB exposes the underlying connection for packages sharing the database.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) now() time.Time { return s.clock().UTC().Truncate(time.Second) }

func (s *Store) check() error {
	if s.closed.Load() {
		return db.ErrDatabaseClosed
	}
	return nil
}

func (s *Store) fail(err error, op string) error {
	return errors.Wrap(db.Classify(err), op)
}

// InsertCandidate stores c as a new candidate and returns its ID. Author and
// DateAdded are always set by the store.
func (s *Store) InsertCandidate(ctx context.Context, c *Candidate) (int64, error) {
	id, err := s.InsertFields(ctx, c.Fields())
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

// InsertFields stores a candidate given as column/value pairs, as arrives
// from JSON. Unknown and protected columns are ignored.
func (s *Store) InsertFields(ctx context.Context, fields map[string]interface{}) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	fields = copyFields(fields)
	RemoveInvalidFields(fields, false)

	name, _ := fields["CandidateName"].(string)
	ctype, _ := fields["CandidateType"].(string)
	if name == "" || ctype == "" {
		return 0, errors.Wrap(errors.ErrInvalidRequest, "candidate needs CandidateName and CandidateType")
	}

	now := s.now()
	fields["Author"] = s.author
	fields["DateAdded"] = now
	if _, ok := fields["Updated"]; !ok {
		fields["Updated"] = now
	}

	cols, vals, err := columnValues(fields)
	if err != nil {
		return 0, err
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteColumn(c)
	}
	query := "INSERT INTO candidates (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"

	res, err := s.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return 0, errors.WithDetailf(s.fail(err, "insert candidate"), "candidate: %s (%s)", name, ctype)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.fail(err, "insert candidate id")
	}
	s.log.Infow("Inserted candidate", "candidate_id", id, "candidate_name", name, "candidate_type", ctype, "author", s.author)
	return id, nil
}

// Query returns candidates matching a WHERE clause, ordered by ID.
func (s *Store) Query(ctx context.Context, where string, args ...interface{}) ([]Candidate, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	query := "SELECT " + selectColumns + " FROM candidates"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY ID"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(err, "query candidates")
	}
	out, err := QueryToCandidates(rows)
	if err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

// GetCandidateByID returns the candidate or an ErrNotFound error.
func (s *Store) GetCandidateByID(ctx context.Context, id int64) (*Candidate, error) {
	found, err := s.Query(ctx, "ID = ?", id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.NewNotFoundError("candidate %d", id)
	}
	return &found[0], nil
}

// GetCandidatesByName returns every candidate with that name.
func (s *Store) GetCandidatesByName(ctx context.Context, name string) ([]Candidate, error) {
	return s.Query(ctx, "CandidateName = ?", name)
}

// CandidatesForTimeRange returns the candidates that are neither removed,
// rejected nor blacklisted, optionally of one type, whose stored window
// overlaps [start, end] for at least minHoursVisible. Where several rows share
// a name the most recently Updated wins.
func (s *Store) CandidatesForTimeRange(ctx context.Context, start, end time.Time, minHoursVisible float64, candidateType string) ([]Candidate, error) {
	where := "RemovedReason IS NULL AND RejectedReason IS NULL" +
		" AND ID NOT IN (SELECT candidate_id FROM candidate_lists WHERE list = 'blacklist')"
	var args []interface{}
	if candidateType != "" {
		where += " AND CandidateType = ?"
		args = append(args, candidateType)
	}

	all, err := s.Query(ctx, where, args...)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int)
	var out []Candidate
	for _, c := range all {
		if _, ok := c.IsObservableBetween(start, end, minHoursVisible); !ok {
			continue
		}
		if i, seen := byName[c.CandidateName]; seen {
			if updatedAfter(c, out[i]) {
				out[i] = c
			}
			continue
		}
		byName[c.CandidateName] = len(out)
		out = append(out, c)
	}
	return out, nil
}

func updatedAfter(a, b Candidate) bool {
	switch {
	case a.Updated == nil:
		return false
	case b.Updated == nil:
		return true
	default:
		return a.Updated.After(*b.Updated)
	}
}

// EditCandidateByID updates the given columns and stamps DateLastEdited.
// Unknown and protected columns are ignored; an edit with nothing left is a
// no-op.
func (s *Store) EditCandidateByID(ctx context.Context, id int64, fields map[string]interface{}) error {
	if err := s.check(); err != nil {
		return err
	}
	fields = copyFields(fields)
	if dropped := RemoveInvalidFields(fields, false); len(dropped) > 0 {
		s.log.Warnw("Ignoring fields in candidate edit", "candidate_id", id, "fields", dropped)
	}
	if len(fields) == 0 {
		return nil
	}
	fields["DateLastEdited"] = s.now()
	return s.update(ctx, id, fields, "edit candidate")
}

func (s *Store) update(ctx context.Context, id int64, fields map[string]interface{}, op string) error {
	cols, vals, err := columnValues(fields)
	if err != nil {
		return err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quoteColumn(c) + " = ?"
	}
	query := "UPDATE candidates SET " + strings.Join(sets, ", ") + " WHERE ID = ?"

	res, err := s.db.ExecContext(ctx, query, append(vals, id)...)
	if err != nil {
		return errors.WithDetailf(s.fail(err, op), "candidate_id: %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail(err, op)
	}
	if n == 0 {
		return errors.NewNotFoundError("candidate %d", id)
	}
	return nil
}

// RemoveCandidateByID soft-deletes a candidate: RemovedReason becomes
// "<author>: <reason>" and RemovedDt the current time.
func (s *Store) RemoveCandidateByID(ctx context.Context, id int64, reason string) error {
	if err := s.check(); err != nil {
		return err
	}
	now := s.now()
	reason = s.author + ": " + reason
	err := s.update(ctx, id, map[string]interface{}{
		"RemovedDt":      now,
		"RemovedReason":  reason,
		"DateLastEdited": now,
	}, "remove candidate")
	if err != nil {
		return err
	}
	s.log.Infow("Removed candidate", "candidate_id", id, "reason", reason)
	return nil
}

// RejectCandidateByID marks a candidate rejected with "<author>: <reason>".
func (s *Store) RejectCandidateByID(ctx context.Context, id int64, reason string) error {
	if err := s.check(); err != nil {
		return err
	}
	reason = s.author + ": " + reason
	err := s.update(ctx, id, map[string]interface{}{
		"RejectedReason": reason,
		"DateLastEdited": s.now(),
	}, "reject candidate")
	if err != nil {
		return err
	}
	s.log.Infow("Rejected candidate", "candidate_id", id, "reason", reason)
	return nil
}

// SetFieldNullByID clears one column. Protected and unknown columns are refused.
func (s *Store) SetFieldNullByID(ctx context.Context, id int64, column string) error {
	if err := s.check(); err != nil {
		return err
	}
	if !IsValidField(column) || IsFieldProtected(column) {
		return errors.Wrapf(errors.ErrInvalidRequest, "column %q cannot be cleared", column)
	}
	query := "UPDATE candidates SET " + quoteColumn(column) + " = NULL WHERE ID = ?"
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.WithDetailf(s.fail(err, "clear "+column), "candidate_id: %d", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("candidate %d", id)
	}
	return nil
}

// ClearInvalidStatus clears both the removal and rejection reasons.
func (s *Store) ClearInvalidStatus(ctx context.Context, id int64) error {
	for _, col := range []string{"RemovedReason", "RemovedDt", "RejectedReason"} {
		if err := s.SetFieldNullByID(ctx, id, col); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database. Later calls fail with db.ErrDatabaseClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close candidate store")
	}
	return nil
}

func copyFields(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// columnValues returns sorted column names and their driver values.
func columnValues(fields map[string]interface{}) ([]string, []interface{}, error) {
	cols := make([]string, 0, len(fields))
	for k := range fields {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	vals := make([]interface{}, len(cols))
	for i, c := range cols {
		v, err := driverValue(c, fields[c])
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrInvalidRequest, err.Error())
		}
		vals[i] = v
	}
	return cols, vals, nil
}
