package storage

import (
	"sync"
	"time"
)

// Clock supplies event timestamps in microseconds since the Unix epoch.
type Clock interface {
	Now() int64
}

// MonotonicClock reads the wall clock but never returns a value less than
// or equal to one it returned before.
//
// Thread-safety: safe for concurrent use.
type MonotonicClock struct {
	mu   sync.Mutex
	last int64
	wall func() time.Time
}

// NewMonotonicClock returns a MonotonicClock over time.Now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{wall: time.Now}
}

// Now returns the current time in µs, bumped by one if the wall clock has
// not advanced (or went backwards) since the previous call.
func (c *MonotonicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.wall().UnixMicro()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}
