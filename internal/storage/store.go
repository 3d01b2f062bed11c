package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/trail/internal/metrics"
)

// DefaultFileName is the database file created inside a profile directory.
const DefaultFileName = "trail.db"

// Options configures Open. The zero value is usable.
type Options struct {
	// FileName of the database inside the profile directory.
	// Defaults to DefaultFileName.
	FileName string
	// JournalMode is the SQLite journal mode. Defaults to WAL.
	JournalMode string
	// Clock stamps events whose Time is zero. Defaults to a MonotonicClock.
	Clock Clock
}

// Store is the storage facade. It exclusively owns the SQLite connection
// and the identity cache; two Stores never share either.
type Store struct {
	db     *sql.DB
	path   string
	clock  Clock
	places *placeCache

	writeMu sync.Mutex // Held for the duration of every transaction.
	closed  atomic.Bool
}

// Open opens (creating if needed) the database in dir, brings its schema to
// the current version and loads the identity cache.
//
// The connection is configured with:
//   - a single pooled connection (one writer, transactions serialized)
//   - foreign key enforcement
//   - WAL journal mode unless overridden
//   - NORMAL synchronous mode and a 5-second busy timeout
func Open(ctx context.Context, dir string, opts Options) (*Store, error) {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.JournalMode == "" {
		opts.JournalMode = "WAL"
	}
	if opts.Clock == nil {
		opts.Clock = NewMonotonicClock()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}
	path := filepath.Join(dir, opts.FileName)

	params := url.Values{
		"_foreign_keys": {"on"},
		"_journal_mode": {opts.JournalMode},
		"_synchronous":  {"NORMAL"},
		"_busy_timeout": {"5000"},
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	version, err := NewMigrationRunner(db).Run(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		clock:  opts.Clock,
		places: newPlaceCache(),
	}
	if err := s.places.load(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("load identity cache: %w", err)
	}

	log.WithFields(log.Fields{
		"path":    path,
		"version": version,
		"places":  s.places.len(),
	}).Info("opened store")

	return s, nil
}

// Close closes the database. Pending mutations complete first.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Now returns the Store clock's current time in µs.
func (s *Store) Now() int64 { return s.clock.Now() }

// SchemaVersion returns the persisted schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return SchemaVersion(ctx, s.db)
}

// ResolvePlace returns the id of rawURL, creating the place if it has never
// been seen. Known places are answered from the cache alone.
func (s *Store) ResolvePlace(ctx context.Context, rawURL string) (PlaceID, error) {
	if rawURL == "" {
		return 0, fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if id, ok := s.places.lookup(rawURL); ok {
		return id, nil
	}
	return inTransaction(ctx, s, func(t *txn) (PlaceID, error) {
		return t.resolvePlace(rawURL)
	})
}

// RecordVisit appends a visit (and its title, when known) and folds it into
// the history summary, atomically. It returns the visited place.
func (s *Store) RecordVisit(ctx context.Context, v Visit) (PlaceID, error) {
	if v.URL == "" {
		return 0, fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}
	if !v.Type.Valid() {
		return 0, fmt.Errorf("%w: visit type %d", ErrInvalidArgument, int(v.Type))
	}
	if v.Time == 0 {
		v.Time = s.clock.Now()
	}

	id, err := inTransaction(ctx, s, func(t *txn) (PlaceID, error) {
		place, err := t.resolvePlace(v.URL)
		if err != nil {
			return 0, err
		}
		if err := t.appendVisit(place, v.Session, v.Type, v.Time); err != nil {
			return 0, err
		}
		if v.Title != nil {
			if err := t.appendTitle(place, *v.Title, v.Time); err != nil {
				return 0, err
			}
		}
		if _, err := t.upsertHistory(place, v.URL, v.Time); err != nil {
			return 0, err
		}
		return place, nil
	})
	if err != nil {
		return 0, fmt.Errorf("record visit: %w", err)
	}
	metrics.VisitsRecordedTotal.Inc()
	return id, nil
}

// RecordTitle appends a title event for rawURL outside of a visit, such as
// a title change after load.
func (s *Store) RecordTitle(ctx context.Context, rawURL, title string, ts int64) (PlaceID, error) {
	if rawURL == "" {
		return 0, fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}
	if ts == 0 {
		ts = s.clock.Now()
	}

	id, err := inTransaction(ctx, s, func(t *txn) (PlaceID, error) {
		place, err := t.resolvePlace(rawURL)
		if err != nil {
			return 0, err
		}
		if err := t.appendTitle(place, title, ts); err != nil {
			return 0, err
		}
		return place, t.updateHistoryTitle(place)
	})
	if err != nil {
		return 0, fmt.Errorf("record title: %w", err)
	}
	return id, nil
}

// ToggleStar appends a star or unstar event and updates the starred set.
// Callers must alternate Star and Unstar per place; see applyStar.
func (s *Store) ToggleStar(ctx context.Context, st StarToggle) (PlaceID, error) {
	if !st.Action.Valid() {
		return 0, fmt.Errorf("%w: star action %d", ErrInvalidArgument, int(st.Action))
	}
	if st.URL == "" {
		return 0, fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}
	if st.Time == 0 {
		st.Time = s.clock.Now()
	}

	id, err := inTransaction(ctx, s, func(t *txn) (PlaceID, error) {
		place, err := t.resolvePlace(st.URL)
		if err != nil {
			return 0, err
		}
		if err := t.appendStar(place, st.Session, st.Action, st.Time); err != nil {
			return 0, err
		}
		return place, t.applyStar(place, st.URL, st.Action, st.Time)
	})
	if err != nil {
		return 0, fmt.Errorf("toggle star: %w", err)
	}
	metrics.StarTogglesTotal.WithLabelValues(st.Action.String()).Inc()
	return id, nil
}

// SavePageSnapshot stores a full-text snapshot of a page for search.
func (s *Store) SavePageSnapshot(ctx context.Context, snap Snapshot) (PlaceID, error) {
	if snap.URL == "" {
		return 0, fmt.Errorf("%w: empty url", ErrInvalidArgument)
	}
	if snap.Time == 0 {
		snap.Time = s.clock.Now()
	}

	id, err := inTransaction(ctx, s, func(t *txn) (PlaceID, error) {
		place, err := t.resolvePlace(snap.URL)
		if err != nil {
			return 0, err
		}
		return place, t.appendSnapshot(place, snap)
	})
	if err != nil {
		return 0, fmt.Errorf("save page snapshot: %w", err)
	}
	metrics.SnapshotsSavedTotal.Inc()
	return id, nil
}

// Stats returns aggregate counts about the database.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	stats.SchemaVersion = v

	counts := []struct {
		table string
		dst   *int64
	}{
		{"places", &stats.Places},
		{"visits", &stats.Visits},
		{"titles", &stats.Titles},
		{"session_starts", &stats.Sessions},
		{"stars", &stats.StarEvents},
		{"page_snapshots", &stats.Snapshots},
		{"history_summary", &stats.HistoryRows},
		{"starred", &stats.Starred},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("page size: %w", err)
	}
	stats.DatabaseSizeBytes = pageCount * pageSize

	return stats, nil
}
