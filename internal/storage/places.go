package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/runnerr0/trail/internal/metrics"
)

// placeCache is the write-through identity cache mapping URL -> PlaceID.
// It always holds every committed place, so a miss means the URL has never
// been stored. Entries are only published after the transaction that
// inserted them commits.
type placeCache struct {
	mu   sync.RWMutex
	ids  map[string]PlaceID
	next PlaceID
}

func newPlaceCache() *placeCache {
	return &placeCache{ids: make(map[string]PlaceID)}
}

// load replaces the cache contents with the places table and positions the
// counter after the largest stored id.
func (c *placeCache) load(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT id, url FROM places`)
	if err != nil {
		return fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]PlaceID)
	next := PlaceID(0)
	for rows.Next() {
		var id PlaceID
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return fmt.Errorf("scan place: %w", err)
		}
		ids[url] = id
		if id >= next {
			next = id + 1
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.ids, c.next = ids, next
	c.mu.Unlock()
	return nil
}

func (c *placeCache) lookup(url string) (PlaceID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[url]
	return id, ok
}

// reserve hands out the next identifier. The counter is never rewound, so
// an id reserved by a rolled-back transaction is simply skipped.
func (c *placeCache) reserve() PlaceID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	return id
}

func (c *placeCache) publish(pending map[string]PlaceID) {
	if len(pending) == 0 {
		return
	}
	c.mu.Lock()
	for url, id := range pending {
		c.ids[url] = id
	}
	c.mu.Unlock()
	metrics.PlacesCreatedTotal.Add(float64(len(pending)))
}

func (c *placeCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// resolvePlace returns the id of url, inserting a new place on a miss.
// The insert is a plain INSERT: a uniqueness violation means the cache and
// the places table disagree, and that must surface rather than be masked.
func (t *txn) resolvePlace(url string) (PlaceID, error) {
	if id, ok := t.store.places.lookup(url); ok {
		return id, nil
	}
	if id, ok := t.pending[url]; ok {
		return id, nil
	}

	id := t.store.places.reserve()
	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO places (id, url) VALUES (?, ?)`, id, url,
	); err != nil {
		return 0, fmt.Errorf("insert place %q: %w", url, err)
	}
	t.pending[url] = id
	return id, nil
}
