package storage

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/trail/internal/metrics"
)

// migration upgrades a database from one schema version to another.
// Most steps advance a single version; To may skip ahead.
type migration struct {
	From  int
	To    int
	Name  string
	Apply func(tx *sql.Tx) error
}

// MigrationRunner brings a SQLite database to the current schema version,
// either by creating it from scratch or by upgrading it in place.
type MigrationRunner struct {
	db         *sql.DB
	target     int
	migrations []migration
}

// NewMigrationRunner creates a MigrationRunner with all registered migrations.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{
		db:     db,
		target: currentSchemaVersion,
		migrations: []migration{
			{From: 1, To: 2, Name: "sessions_and_titles", Apply: migrateV002},
			{From: 2, To: 3, Name: "stars_and_materialized_views", Apply: migrateV003},
			{From: 3, To: 4, Name: "page_snapshots", Apply: migrateV004},
			{From: 4, To: 5, Name: "star_sessions_and_excerpts", Apply: migrateV005},
		},
	}
}

// Target returns the schema version Run converges to.
func (r *MigrationRunner) Target() int { return r.target }

// Run reads the stored schema version and creates or upgrades the schema
// to the target version, returning the resulting version. A database at
// version 0 is created from scratch. A database newer than the target, or
// at a version with no upgrade path, is an unrecoverable error.
//
// After any create or upgrade the materialized views are rebuilt from the
// surviving event rows.
func (r *MigrationRunner) Run(ctx context.Context) (int, error) {
	v, err := SchemaVersion(ctx, r.db)
	if err != nil {
		return 0, err
	}

	switch {
	case v == r.target:
		return v, nil
	case v > r.target:
		return v, fmt.Errorf("%w: database is at version %d, newest supported is %d",
			ErrSchemaTooNew, v, r.target)
	case v == 0:
		log.WithField("version", r.target).Info("creating schema")
		if err := r.apply(ctx, r.target, createSchema); err != nil {
			return 0, fmt.Errorf("create schema: %w", err)
		}
		metrics.MigrationStepsTotal.Inc()
		v = r.target
	default:
		if v, err = r.upgrade(ctx, v, r.target); err != nil {
			return v, err
		}
	}

	if err := r.apply(ctx, v, rebuildViews); err != nil {
		return v, fmt.Errorf("rematerialize after migration: %w", err)
	}
	metrics.RematerializeTotal.Inc()

	return v, nil
}

// upgrade applies the migration chain starting at version from until the
// database reaches version to.
func (r *MigrationRunner) upgrade(ctx context.Context, from, to int) (int, error) {
	v := from
	for v < to {
		m, ok := r.stepFrom(v)
		if !ok {
			return v, fmt.Errorf("%w: no upgrade path from version %d", ErrUnsupportedVersion, v)
		}

		log.WithFields(log.Fields{"from": m.From, "to": m.To, "name": m.Name}).
			Info("upgrading schema")

		if err := r.apply(ctx, m.To, m.Apply); err != nil {
			return v, fmt.Errorf("apply migration %d->%d (%s): %w", m.From, m.To, m.Name, err)
		}
		metrics.MigrationStepsTotal.Inc()
		v = m.To
	}
	return v, nil
}

func (r *MigrationRunner) stepFrom(v int) (migration, bool) {
	for _, m := range r.migrations {
		if m.From == v {
			return m, true
		}
	}
	return migration{}, false
}

// apply executes fn inside a transaction which also records version.
func (r *MigrationRunner) apply(ctx context.Context, version int, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := setSchemaVersion(tx, version); err != nil {
		return err
	}
	return tx.Commit()
}
