package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/trail/internal/metrics"
)

type txnKey struct{}

// txn is the unit of work handed to inTransaction callbacks. Statements
// must go through tx; the Store's pool has a single connection, which the
// transaction holds until it completes.
type txn struct {
	ctx     context.Context
	tx      *sql.Tx
	store   *Store
	pending map[string]PlaceID
}

// inTransaction runs fn between BEGIN and COMMIT, rolling back if fn
// returns an error or panics. The original error is returned unmodified
// (joined with the rollback error only if rollback also fails). Places
// inserted by fn are published to the identity cache after COMMIT.
//
// Mutations are serialized on the Store's writer lock. Calling
// inTransaction with a context derived from a txn fails with
// ErrNestedTransaction, as SQLite has no nested transactions.
func inTransaction[T any](ctx context.Context, s *Store, fn func(t *txn) (T, error)) (T, error) {
	var zero T

	if ctx.Value(txnKey{}) != nil {
		return zero, ErrNestedTransaction
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return zero, ErrClosed
	}

	// A mutation either commits or rolls back in full; the caller's
	// cancellation does not reach the driver mid-transaction.
	ctx = context.WithValue(context.WithoutCancel(ctx), txnKey{}, true)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("begin transaction: %w", err)
	}
	t := &txn{ctx: ctx, tx: tx, store: s, pending: make(map[string]PlaceID)}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			metrics.TransactionsTotal.WithLabelValues(metrics.Rollback).Inc()
			panic(p)
		}
	}()

	result, err := fn(t)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		metrics.TransactionsTotal.WithLabelValues(metrics.Rollback).Inc()
		log.WithFields(log.Fields{"err": err, "pending": len(t.pending)}).
			Debug("rolled back transaction")
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		metrics.TransactionsTotal.WithLabelValues(metrics.Rollback).Inc()
		return zero, fmt.Errorf("commit: %w", err)
	}
	committed = true

	s.places.publish(t.pending)
	metrics.TransactionsTotal.WithLabelValues(metrics.Commit).Inc()

	return result, nil
}
