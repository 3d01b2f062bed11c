package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ── Appends inside a transaction ────────────────────────────────

func (t *txn) appendVisit(place PlaceID, session SessionID, typ VisitType, ts int64) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO visits (place, ts, session, type) VALUES (?, ?, ?, ?)`,
		place, ts, nullSession(session), int(typ),
	); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (t *txn) appendTitle(place PlaceID, title string, ts int64) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO titles (place, ts, title) VALUES (?, ?, ?)`, place, ts, title,
	); err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	return nil
}

func (t *txn) appendStar(place PlaceID, session SessionID, action StarAction, ts int64) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO stars (place, session, action, ts) VALUES (?, ?, ?, ?)`,
		place, nullSession(session), int(action), ts,
	); err != nil {
		return fmt.Errorf("insert star: %w", err)
	}
	return nil
}

func (t *txn) appendSnapshot(place PlaceID, snap Snapshot) error {
	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO page_snapshots (place, session, ts, title, excerpt, content)
		VALUES (?, ?, ?, ?, ?, ?)
	`, place, nullSession(snap.Session), snap.Time, snap.Title, snap.Excerpt, snap.Content); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// nullSession maps the zero SessionID to NULL. Session ids are assigned by
// SQLite AUTOINCREMENT and start at 1.
func nullSession(id SessionID) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

// ── Sessions ────────────────────────────────────────────────────

// StartSession appends a session start and returns its id. An Ancestor that
// does not exist is a foreign key violation.
func (s *Store) StartSession(ctx context.Context, start SessionStart) (SessionID, error) {
	if !start.Reason.Valid() {
		return 0, fmt.Errorf("%w: session start reason %d", ErrInvalidArgument, int(start.Reason))
	}
	if start.Time == 0 {
		start.Time = s.clock.Now()
	}

	var ancestor sql.NullInt64
	if start.Ancestor != nil {
		ancestor = sql.NullInt64{Int64: int64(*start.Ancestor), Valid: true}
	}
	var scope sql.NullInt64
	if start.Scope != nil {
		scope = sql.NullInt64{Int64: *start.Scope, Valid: true}
	}

	return inTransaction(ctx, s, func(t *txn) (SessionID, error) {
		res, err := t.tx.ExecContext(t.ctx,
			`INSERT INTO session_starts (scope, ancestor, ts, reason) VALUES (?, ?, ?, ?)`,
			scope, ancestor, start.Time, int(start.Reason),
		)
		if err != nil {
			return 0, fmt.Errorf("insert session start: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert session start: %w", err)
		}
		return SessionID(id), nil
	})
}

// EndSession appends the end of session id. The session must exist and
// not end before it started; a second end of one session is a constraint
// violation.
func (s *Store) EndSession(ctx context.Context, id SessionID, reason SessionEndReason, ts int64) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: session end reason %d", ErrInvalidArgument, int(reason))
	}
	if ts == 0 {
		ts = s.clock.Now()
	}

	_, err := inTransaction(ctx, s, func(t *txn) (struct{}, error) {
		res, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO session_ends (id, ts, reason)
			SELECT id, ?, ? FROM session_starts WHERE id = ? AND ts <= ?
		`, ts, int(reason), int64(id), ts)
		if err != nil {
			return struct{}{}, fmt.Errorf("insert session end: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return struct{}{}, fmt.Errorf("insert session end: %w", err)
		}
		if n == 0 {
			return struct{}{}, fmt.Errorf("%w: session %d does not exist or started after %d",
				ErrInvalidArgument, id, ts)
		}
		return struct{}{}, nil
	})
	return err
}

// Sessions returns sessions started after since, oldest first, each joined
// with its end if it has one.
func (s *Store) Sessions(ctx context.Context, since int64) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.scope, s.ancestor, s.ts, s.reason, e.ts, e.reason
		  FROM session_starts s
		  LEFT JOIN session_ends e ON e.id = s.id
		 WHERE s.ts > ?
		 ORDER BY s.ts ASC, s.id ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return scanSessions(rows)
}

// SessionLineage returns session id followed by its ancestors, nearest
// first, up to the root of its provenance tree.
func (s *Store) SessionLineage(ctx context.Context, id SessionID) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE lineage(id, depth) AS (
			SELECT id, 0 FROM session_starts WHERE id = ?
			UNION ALL
			SELECT s.ancestor, l.depth + 1
			  FROM session_starts s JOIN lineage l ON s.id = l.id
			 WHERE s.ancestor IS NOT NULL
		)
		SELECT s.id, s.scope, s.ancestor, s.ts, s.reason, e.ts, e.reason
		  FROM lineage l
		  JOIN session_starts s ON s.id = l.id
		  LEFT JOIN session_ends e ON e.id = s.id
		 ORDER BY l.depth ASC
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query session lineage: %w", err)
	}
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		var scope, ancestor, endTS, endReason sql.NullInt64
		if err := rows.Scan(&sess.ID, &scope, &ancestor, &sess.Started, &sess.Reason, &endTS, &endReason); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if scope.Valid {
			v := scope.Int64
			sess.Scope = &v
		}
		if ancestor.Valid {
			v := SessionID(ancestor.Int64)
			sess.Ancestor = &v
		}
		if endTS.Valid {
			v := endTS.Int64
			sess.Ended = &v
		}
		if endReason.Valid {
			v := SessionEndReason(endReason.Int64)
			sess.EndReason = &v
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
