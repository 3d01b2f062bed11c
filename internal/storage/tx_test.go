package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/trail/internal/metrics"
)

func TestInTransaction_CommitPublishesPlaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	commits := testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Commit))

	ids, err := inTransaction(ctx, store, func(tx *txn) ([]PlaceID, error) {
		a, err := tx.resolvePlace("https://a.example")
		if err != nil {
			return nil, err
		}
		// Resolved twice within one transaction: the pending map answers.
		again, err := tx.resolvePlace("https://a.example")
		if err != nil {
			return nil, err
		}
		_, cached := store.places.lookup("https://a.example")
		assert.False(t, cached, "place must not be visible before commit")
		return []PlaceID{a, again}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, ids[0], ids[1])

	id, cached := store.places.lookup("https://a.example")
	assert.True(t, cached)
	assert.Equal(t, ids[0], id)
	assert.Equal(t, commits+1, testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Commit)))
}

func TestInTransaction_ErrorRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rollbacks := testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Rollback))
	boom := errors.New("boom")

	_, err := inTransaction(ctx, store, func(tx *txn) (struct{}, error) {
		if _, err := tx.resolvePlace("https://a.example"); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, boom
	})
	assert.Same(t, boom, err, "the original error is returned unmodified")

	assert.Equal(t, 0, countRows(t, store, "places"))
	_, cached := store.places.lookup("https://a.example")
	assert.False(t, cached)
	assert.Equal(t, rollbacks+1, testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Rollback)))
}

func TestInTransaction_PanicRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.PanicsWithValue(t, "kaboom", func() {
		inTransaction(ctx, store, func(tx *txn) (struct{}, error) { //nolint:errcheck
			if _, err := tx.resolvePlace("https://a.example"); err != nil {
				return struct{}{}, err
			}
			panic("kaboom")
		})
	})

	assert.Equal(t, 0, countRows(t, store, "places"))

	// The writer lock was released and the connection is usable.
	_, err := store.RecordVisit(ctx, Visit{URL: "https://b.example", Time: 1})
	require.NoError(t, err)
}

func TestInTransaction_NestedFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var inner error
	_, err := inTransaction(ctx, store, func(tx *txn) (struct{}, error) {
		_, inner = inTransaction(tx.ctx, store, func(*txn) (struct{}, error) {
			return struct{}{}, nil
		})
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrNestedTransaction)
}

func TestInTransaction_CancelledContextStillCommits(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := inTransaction(ctx, store, func(tx *txn) (PlaceID, error) {
		cancel()
		return tx.resolvePlace("https://a.example")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, store, "places"))
}

func TestResolvePlace_CacheTableMismatchFailsLoudly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Written behind the cache's back.
	_, err := store.db.Exec(`INSERT INTO places (id, url) VALUES (500, 'https://a.example')`)
	require.NoError(t, err)

	_, err = store.RecordVisit(ctx, Visit{URL: "https://a.example", Time: 1})
	require.Error(t, err)
	assert.True(t, IsConstraint(err), "a duplicate url must surface as a constraint violation")
	assert.Equal(t, 0, countRows(t, store, "visits"))
}

func TestResolvePlace_CacheHitSkipsTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.ResolvePlace(ctx, "https://a.example")
	require.NoError(t, err)

	commits := testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Commit))
	rollbacks := testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Rollback))

	again, err := store.ResolvePlace(ctx, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, commits, testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Commit)))
	assert.Equal(t, rollbacks, testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Rollback)))

	// A cached answer needs no connection at all.
	require.NoError(t, store.db.Close())
	again, err = store.ResolvePlace(ctx, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestRecordVisit_ConcurrentResolvesAgree(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]PlaceID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.RecordVisit(ctx, Visit{URL: "https://shared.example"})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, countRows(t, store, "places"))
	assert.Equal(t, workers, countRows(t, store, "visits"))

	entries, err := store.Visited(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(workers), entries[0].VisitCount)
}
