package storage

import "database/sql"

// migrateV003 adds star events and the materialized history and starred
// tables. The tables start empty; the runner rematerializes them once the
// upgrade chain completes.
func migrateV003(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE stars (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			place  INTEGER NOT NULL REFERENCES places(id),
			action INTEGER NOT NULL CHECK (action IN (-1, 1)),
			ts     INTEGER NOT NULL
		)`,
		ddlHistorySummary,
		ddlStarred,
		`CREATE VIEW history_view AS
		SELECT v.place AS place,
		       p.url   AS url,
		       (SELECT t.title FROM titles t
		         WHERE t.place = v.place
		         ORDER BY t.ts DESC LIMIT 1) AS title,
		       MAX(v.ts) AS visited,
		       COUNT(*)  AS visits
		  FROM visits v
		  JOIN places p ON p.id = v.place
		 GROUP BY v.place`,
		`CREATE VIEW starred_view AS
		SELECT s.place AS place,
		       MAX(CASE WHEN s.action > 0 THEN s.ts END) AS ts,
		       p.url AS url
		  FROM stars s
		  JOIN places p ON p.id = s.place
		 GROUP BY s.place
		HAVING SUM(s.action) > 0`,
	})
}
