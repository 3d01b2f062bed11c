package storage

import "database/sql"

// migrateV005 attributes stars to sessions and adds snapshot excerpts. Both
// views are redefined: history titles tie-break on event id, and a starred
// place carries the time of its most recent star rather than the largest.
//
// page_snapshots is dropped and recreated with the new column set: every
// snapshot saved under version 4 is discarded. Snapshots only feed search,
// and the pages are captured again on the next save.
func migrateV005(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE stars ADD COLUMN session INTEGER REFERENCES session_starts(id)`,
		`DROP TABLE page_snapshots`,
		ddlPageSnapshots,
		`DROP VIEW history_view`,
		ddlHistoryView,
		`DROP VIEW starred_view`,
		ddlStarredView,
	}
	return execAll(tx, append(stmts, schemaIndexes...))
}
