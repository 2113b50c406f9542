package commands

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/maestro/am"
	"github.com/teranos/maestro/candidate"
	"github.com/teranos/maestro/db"
	"github.com/teranos/maestro/errors"
	"github.com/teranos/maestro/logger"
	"github.com/teranos/maestro/scheduler"
	"github.com/teranos/maestro/scheduler/types"
	"github.com/teranos/maestro/sky"
	"github.com/teranos/maestro/version"
)

// ConfigFile is the --config flag. Empty means the standard search paths.
var ConfigFile string

// loadConfig reads --config when given, otherwise the merged standard files.
func loadConfig() (*am.Config, error) {
	if ConfigFile != "" {
		return am.LoadFromFile(ConfigFile)
	}
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}

// writableConfig is the file that am set and modules activate edit: --config,
// else the highest-precedence file already merged, else ./am.toml.
func writableConfig() string {
	if ConfigFile != "" {
		return ConfigFile
	}
	if path := am.ConfigPath(); path != "" {
		return path
	}
	return "am.toml"
}

func databasePath(cfg *am.Config) string {
	if cfg.Database.Path == "" {
		return "candidates.db"
	}
	return cfg.Database.Path
}

// openDatabase opens and migrates the candidate database.
func openDatabase(cfg *am.Config) (*sql.DB, error) {
	path := databasePath(cfg)
	conn, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return conn, nil
}

// newStore opens the database and wraps it in a candidate store authored by
// the [dbops] author.
func newStore(cfg *am.Config) (*candidate.Store, error) {
	conn, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return candidate.NewStore(conn, cfg.DbOps.Author, logger.Logger), nil
}

// buildRegistry registers the built-in types and configures them.
func buildRegistry(ctx context.Context, cfg *am.Config, conn *sql.DB, log *zap.SugaredLogger) (*scheduler.Registry, error) {
	running, _ := version.Get().Semver()
	registry := scheduler.NewRegistry(running)
	if err := types.Register(registry); err != nil {
		return nil, err
	}
	if err := configureRegistry(ctx, registry, cfg, conn, log); err != nil {
		return nil, err
	}
	return registry, nil
}

// configureRegistry applies config tunables and manifests from modules_dir,
// then syncs activation with the modules table.
func configureRegistry(ctx context.Context, registry *scheduler.Registry, cfg *am.Config, conn *sql.DB, log *zap.SugaredLogger) error {
	registry.ApplyConfig(cfg)

	manifests, err := scheduler.DiscoverManifests(cfg.Scheduler.ModulesDir)
	if err != nil {
		return err
	}
	for _, m := range manifests {
		if err := registry.ApplyManifest(m); err != nil {
			log.Warnw("Skipping type manifest", logger.FieldFile, m.Dir, logger.FieldError, err)
			continue
		}
		log.Infow("Applied type manifest", logger.FieldCandidateType, m.Type, logger.FieldFile, m.Dir)
	}

	if err := scheduler.NewModuleStore(conn).Sync(ctx, registry); err != nil {
		return errors.Wrap(err, "failed to sync modules table")
	}
	return nil
}

// newRunner assembles a scheduling runner over store.
func newRunner(ctx context.Context, cfg *am.Config, store *candidate.Store) (*scheduler.Runner, *scheduler.Registry, error) {
	registry, err := buildRegistry(ctx, cfg, store.DB(), logger.Logger)
	if err != nil {
		return nil, nil, err
	}
	observer, err := sky.NewObserver(cfg.Observatory)
	if err != nil {
		return nil, nil, err
	}
	runner := scheduler.NewRunner(registry, store, observer, cfg.Scheduler, logger.Logger).
		WithRunLog(scheduler.NewRunLog(store.DB()))
	return runner, registry, nil
}
