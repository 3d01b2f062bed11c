package storage

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/trail/internal/metrics"
)

// UpsertOutcome reports which branch an incremental upsert took.
type UpsertOutcome int

const (
	// Found means an existing row was updated in place.
	Found UpsertOutcome = iota
	// NotFound means no row existed and a fresh one was inserted.
	NotFound
)

func (o UpsertOutcome) String() string {
	if o == Found {
		return "found"
	}
	return "not_found"
}

// latestTitle selects the title of a place's newest title event, ordered
// the same way as history_view. It takes the place id as its one argument.
const latestTitle = `(SELECT title FROM titles WHERE place = ? ORDER BY ts DESC, id DESC LIMIT 1)`

// upsertHistory folds one visit into history_summary. The UPDATE's
// affected-row count selects the branch: one row means the place was
// already summarized, zero means this is its first visit.
//
// The title is always re-read from the title events, so callers must
// append the visit's title event first. Events arriving out of timestamp
// order then cannot replace a newer title with an older one.
func (t *txn) upsertHistory(place PlaceID, url string, ts int64) (UpsertOutcome, error) {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE history_summary
		   SET visited = MAX(visited, ?),
		       visits  = visits + 1,
		       title   = `+latestTitle+`
		 WHERE place = ?
	`, ts, place, place)
	if err != nil {
		return 0, fmt.Errorf("update history summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update history summary: %w", err)
	}
	if n > 0 {
		return Found, nil
	}

	if _, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO history_summary (place, url, title, visited, visits)
		VALUES (?, ?, `+latestTitle+`, ?, 1)
	`, place, url, place, ts); err != nil {
		return 0, fmt.Errorf("insert history summary: %w", err)
	}
	return NotFound, nil
}

// updateHistoryTitle refreshes the title of an already summarized place
// after a title event was appended. Places without visits have no summary
// row and are left alone.
func (t *txn) updateHistoryTitle(place PlaceID) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE history_summary SET title = `+latestTitle+` WHERE place = ?`, place, place,
	); err != nil {
		return fmt.Errorf("update history title: %w", err)
	}
	return nil
}

// applyStar updates the starred set for one star event.
//
// This is only equivalent to starred_view when each place's star events
// strictly alternate Star, Unstar, Star, ... A repeated action is not
// rejected here; it leaves the view out of step with a full rebuild.
func (t *txn) applyStar(place PlaceID, url string, action StarAction, ts int64) error {
	var err error
	switch action {
	case Star:
		_, err = t.tx.ExecContext(t.ctx,
			`INSERT OR REPLACE INTO starred (place, ts, url) VALUES (?, ?, ?)`, place, ts, url)
	case Unstar:
		_, err = t.tx.ExecContext(t.ctx, `DELETE FROM starred WHERE place = ?`, place)
	default:
		err = fmt.Errorf("%w: star action %d", ErrInvalidArgument, int(action))
	}
	if err != nil {
		return fmt.Errorf("apply star: %w", err)
	}
	return nil
}

// rebuildViews truncates the materialized tables and repopulates them from
// history_view and starred_view.
func rebuildViews(tx *sql.Tx) error {
	return execAll(tx, []string{
		`DELETE FROM history_summary`,
		`DELETE FROM starred`,
		`INSERT INTO history_summary (place, url, title, visited, visits)
		 SELECT place, url, title, visited, visits FROM history_view`,
		`INSERT INTO starred (place, ts, url)
		 SELECT place, ts, url FROM starred_view`,
	})
}

// Rematerialize rebuilds history_summary and starred from the event
// tables in a single transaction.
func (s *Store) Rematerialize(ctx context.Context) error {
	_, err := inTransaction(ctx, s, func(t *txn) (struct{}, error) {
		return struct{}{}, rebuildViews(t.tx)
	})
	if err != nil {
		return fmt.Errorf("rematerialize: %w", err)
	}
	metrics.RematerializeTotal.Inc()
	log.Debug("rematerialized history and starred views")
	return nil
}
