package storage

import "database/sql"

// migrateV004 adds the full-text snapshot table.
func migrateV004(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE VIRTUAL TABLE page_snapshots USING fts4(
			place, session, ts, title, content,
			notindexed=place, notindexed=session, notindexed=ts
		)`,
	})
}
