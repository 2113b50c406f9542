package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// migration is one embedded SQL file. Version is the numeric file prefix.
type migration struct {
	Version string
	File    string
}

// loadMigrations lists the embedded files in version order; 000 creates
// schema_migrations itself.
func loadMigrations() ([]migration, error) {
	entries, err := migrations.ReadDir("sqlite/migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var out []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, _ := strings.Cut(name, "_")
		out = append(out, migration{Version: version, File: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// Pending returns the migration files not yet recorded, in apply order.
// Every file is pending until schema_migrations exists.
func Pending(db *sql.DB) ([]string, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, m := range all {
		if !applied[m.Version] {
			pending = append(pending, m.File)
		}
	}
	return pending, nil
}

// appliedVersions reads schema_migrations; a missing table means nothing
// has been applied.
func appliedVersions(db *sql.DB) (map[string]bool, error) {
	var tables int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&tables)
	if err != nil {
		return nil, errors.Wrap(Classify(err), "look up schema_migrations")
	}
	applied := make(map[string]bool)
	if tables == 0 {
		return applied, nil
	}

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, errors.Wrap(Classify(err), "read schema_migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		applied[version] = true
	}
	return applied, errors.Wrap(rows.Err(), "iterate schema_migrations")
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, one transaction per file. logger may be nil.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	all, err := loadMigrations()
	if err != nil {
		return err
	}

	done, err := appliedVersions(db)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		if done[m.Version] {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
		logger.Debugw("Applied migration", "migration", m.File, "version", m.Version)
		applied++
	}

	if applied > 0 {
		logger.Infow("Migrations complete",
			"symbol", sym.DB,
			"applied", applied,
			"total_migrations", len(all),
		)
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	body, err := migrations.ReadFile(path.Join("sqlite/migrations", m.File))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.File)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(Classify(err), "begin tx for %s", m.File)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.File)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return errors.Wrapf(err, "record %s", m.File)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(Classify(err), "commit %s", m.File)
	}
	return nil
}
