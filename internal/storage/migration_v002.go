package storage

import "database/sql"

// migrateV002 introduces session lineage and title events. Existing visits
// keep their rows with a NULL session and the default (link) visit type.
func migrateV002(tx *sql.Tx) error {
	return execAll(tx, []string{
		ddlSessionStarts,
		ddlSessionEnds,
		ddlTitles,
		// A column added with REFERENCES must default to NULL.
		`ALTER TABLE visits ADD COLUMN session INTEGER REFERENCES session_starts(id)`,
		`ALTER TABLE visits ADD COLUMN type INTEGER NOT NULL DEFAULT 0`,
	})
}
