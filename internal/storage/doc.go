// Package storage implements an event-sourced store of browsing history,
// sessions and stars on top of an embedded SQLite database.
//
// # Events and derived state
//
// The source of truth is a set of append-only event tables: visits, titles,
// stars, session starts and ends, and full-text page snapshots. Every event
// names a place, the stable integer identity of a distinct URL.
//
// Two materialized tables, history_summary and starred, are derived from the
// events. Each has an SQL view (history_view, starred_view) that computes it
// from scratch, and every mutation also updates it incrementally in the same
// transaction. Rematerialize replaces the tables with the view contents; the
// two paths agree as long as star events for a place alternate.
//
// # Place identity
//
// Store keeps a complete in-memory map from URL to place, loaded at Open.
// New places take ids from a process-local counter, and are published to
// the map only once the inserting transaction commits. The counter is never
// rewound, so ids reserved by rolled-back transactions are skipped.
//
// # Concurrency
//
// A Store holds a single SQLite connection. Mutations run one at a time under
// a writer lock; reads share the connection between transactions. A Store
// must not be opened twice on the same file within one process.
//
// # Schema versions
//
// The schema version lives in PRAGMA user_version. Open creates a fresh
// database at the current version, or upgrades older ones in place one step
// at a time, then rebuilds the materialized tables.
package storage
