package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// currentSchemaVersion is the schema generation this code reads and writes.
//
// Schema version history (PRAGMA user_version):
//
//	1 - places, visits(place, ts)
//	2 - sessions, titles; visits gain session and type
//	3 - stars; materialized history_summary and starred tables with their views
//	4 - page_snapshots full-text table
//	5 - stars gain session; page_snapshots recreated with excerpt (old
//	    snapshots are discarded); history_view tie-breaks on id;
//	    starred_view takes the latest star's time; indexes
const currentSchemaVersion = 5

// ── Event tables ────────────────────────────────────────────────

const ddlPlaces = `CREATE TABLE places (
	id  INTEGER PRIMARY KEY,
	url TEXT NOT NULL UNIQUE
)`

const ddlSessionStarts = `CREATE TABLE session_starts (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	scope    INTEGER,
	ancestor INTEGER REFERENCES session_starts(id),
	ts       INTEGER NOT NULL,
	reason   INTEGER NOT NULL
)`

const ddlSessionEnds = `CREATE TABLE session_ends (
	id     INTEGER PRIMARY KEY REFERENCES session_starts(id),
	ts     INTEGER NOT NULL,
	reason INTEGER NOT NULL
)`

const ddlTitles = `CREATE TABLE titles (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	place INTEGER NOT NULL REFERENCES places(id),
	ts    INTEGER NOT NULL,
	title TEXT NOT NULL
)`

// ── Materialized tables ─────────────────────────────────────────

const ddlHistorySummary = `CREATE TABLE history_summary (
	place   INTEGER PRIMARY KEY REFERENCES places(id),
	url     TEXT NOT NULL,
	title   TEXT,
	visited INTEGER NOT NULL,
	visits  INTEGER NOT NULL
)`

const ddlStarred = `CREATE TABLE starred (
	place INTEGER PRIMARY KEY REFERENCES places(id),
	ts    INTEGER NOT NULL,
	url   TEXT NOT NULL
)`

// ── Views: the authoritative fold over the event tables ─────────

const ddlHistoryView = `CREATE VIEW history_view AS
SELECT v.place AS place,
       p.url   AS url,
       (SELECT t.title FROM titles t
         WHERE t.place = v.place
         ORDER BY t.ts DESC, t.id DESC LIMIT 1) AS title,
       MAX(v.ts) AS visited,
       COUNT(*)  AS visits
  FROM visits v
  JOIN places p ON p.id = v.place
 GROUP BY v.place`

const ddlStarredView = `CREATE VIEW starred_view AS
SELECT s.place AS place,
       (SELECT l.ts FROM stars l
         WHERE l.place = s.place AND l.action > 0
         ORDER BY l.id DESC LIMIT 1) AS ts,
       p.url AS url
  FROM stars s
  JOIN places p ON p.id = s.place
 GROUP BY s.place
HAVING SUM(s.action) > 0`

const ddlPageSnapshots = `CREATE VIRTUAL TABLE page_snapshots USING fts4(
	place, session, ts, title, excerpt, content,
	notindexed=place, notindexed=session, notindexed=ts
)`

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_visits_place         ON visits(place)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_ts            ON visits(ts)`,
	`CREATE INDEX IF NOT EXISTS idx_titles_place_ts      ON titles(place, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_stars_place          ON stars(place)`,
	`CREATE INDEX IF NOT EXISTS idx_session_ancestor     ON session_starts(ancestor)`,
	`CREATE INDEX IF NOT EXISTS idx_history_visited      ON history_summary(visited)`,
	`CREATE INDEX IF NOT EXISTS idx_starred_ts           ON starred(ts)`,
}

// createSchema builds every table, view and index of the current schema
// on an empty database.
func createSchema(tx *sql.Tx) error {
	stmts := []string{
		ddlPlaces,
		ddlSessionStarts,
		ddlSessionEnds,
		`CREATE TABLE visits (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			place   INTEGER NOT NULL REFERENCES places(id),
			ts      INTEGER NOT NULL,
			session INTEGER REFERENCES session_starts(id),
			type    INTEGER NOT NULL DEFAULT 0
		)`,
		ddlTitles,
		`CREATE TABLE stars (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			place   INTEGER NOT NULL REFERENCES places(id),
			action  INTEGER NOT NULL CHECK (action IN (-1, 1)),
			ts      INTEGER NOT NULL,
			session INTEGER REFERENCES session_starts(id)
		)`,
		ddlPageSnapshots,
		ddlHistorySummary,
		ddlStarred,
		ddlHistoryView,
		ddlStarredView,
	}
	stmts = append(stmts, schemaIndexes...)
	return execAll(tx, stmts)
}

func execAll(tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion reads the persisted schema version marker of db.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func setSchemaVersion(tx *sql.Tx, v int) error {
	// PRAGMA does not accept bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
