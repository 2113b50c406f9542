package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/maestro/db"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/sky"
)

// ModuleRecord is one row of the modules table.
type ModuleRecord struct {
	Name        string
	TypeName    string
	Active      bool
	Description string
	Author      string
	Version     string
	Dir         string
	UpdatedAt   time.Time
}

// ModuleStore persists type activation in the modules table. A row, once
// written, is the authority on whether its type is active; the config's
// active flag only seeds new rows.
type ModuleStore struct {
	db    *sql.DB
	clock sky.Clock
}

// NewModuleStore wraps a migrated database.
func NewModuleStore(conn *sql.DB) *ModuleStore {
	return &ModuleStore{db: conn, clock: sky.SystemClock}
}

// WithClock replaces the clock stamping updated_at.
func (s *ModuleStore) WithClock(clock sky.Clock) *ModuleStore {
	s.clock = clock
	return s
}

func (s *ModuleStore) now() string {
	return s.clock().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Sync records every registered type and loads the stored activation back
// into the registry. Metadata columns follow the registry; active is only
// written for new rows.
func (s *ModuleStore) Sync(ctx context.Context, r *Registry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(db.Classify(err), "begin module sync")
	}
	defer tx.Rollback()

	for _, name := range r.Names() {
		meta, _ := r.Metadata(name)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO modules (name, type_name, active, description, author, version, dir, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(type_name) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				author = excluded.author,
				version = excluded.version,
				dir = excluded.dir,
				updated_at = excluded.updated_at`,
			meta.Name, name, r.IsActive(name), meta.Description, meta.Author, meta.Version, meta.Dir, s.now())
		if err != nil {
			return errors.WithDetailf(errors.Wrap(db.Classify(err), "sync module"), "type: %s", name)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(db.Classify(err), "commit module sync")
	}

	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if _, ok := r.Get(rec.TypeName); !ok {
			continue
		}
		if err := r.SetActive(rec.TypeName, rec.Active); err != nil {
			return err
		}
	}
	return nil
}

// List returns every module row ordered by type.
func (s *ModuleStore) List(ctx context.Context) ([]ModuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type_name, active, description, author, version, dir, updated_at
		FROM modules ORDER BY type_name`)
	if err != nil {
		return nil, errors.Wrap(db.Classify(err), "list modules")
	}
	defer rows.Close()

	var out []ModuleRecord
	for rows.Next() {
		var rec ModuleRecord
		var updated string
		if err := rows.Scan(&rec.Name, &rec.TypeName, &rec.Active, &rec.Description,
			&rec.Author, &rec.Version, &rec.Dir, &updated); err != nil {
			return nil, errors.Wrap(err, "scan module")
		}
		if t, err := time.Parse(time.RFC3339, updated); err == nil {
			rec.UpdatedAt = t
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "list modules")
}

// SetActive switches a stored type on or off.
func (s *ModuleStore) SetActive(ctx context.Context, typeName string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE modules SET active = ?, updated_at = ? WHERE type_name = ?`,
		active, s.now(), typeName)
	if err != nil {
		return errors.WithDetailf(errors.Wrap(db.Classify(err), "set module active"), "type: %s", typeName)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "set module active")
	}
	if n == 0 {
		return errors.NewNotFoundError("module for type %s", typeName)
	}
	return nil
}
