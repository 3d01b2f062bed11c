package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/trail/internal/config"
	"github.com/runnerr0/trail/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	SchemaVersion     int    `json:"schema_version"`
	Places            int64  `json:"places"`
	Visits            int64  `json:"visits"`
	Titles            int64  `json:"titles"`
	Sessions          int64  `json:"sessions"`
	StarEvents        int64  `json:"star_events"`
	Snapshots         int64  `json:"snapshots"`
	HistoryRows       int64  `json:"history_rows"`
	Starred           int64  `json:"starred"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(statusJSON{
			Version:           c.version,
			DatabasePath:      store.Path(),
			DatabaseSizeBytes: stats.DatabaseSizeBytes,
			SchemaVersion:     stats.SchemaVersion,
			Places:            stats.Places,
			Visits:            stats.Visits,
			Titles:            stats.Titles,
			Sessions:          stats.Sessions,
			StarEvents:        stats.StarEvents,
			Snapshots:         stats.Snapshots,
			HistoryRows:       stats.HistoryRows,
			Starred:           stats.Starred,
		})
	}

	fmt.Println("Trail Status")
	fmt.Println("============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", store.Path(), humanize.Bytes(uint64(stats.DatabaseSizeBytes)))
	fmt.Printf("Schema:        v%d\n", stats.SchemaVersion)
	fmt.Printf("Places:        %s\n", humanize.Comma(stats.Places))
	fmt.Printf("Visits:        %s\n", humanize.Comma(stats.Visits))
	fmt.Printf("Titles:        %s\n", humanize.Comma(stats.Titles))
	fmt.Printf("Sessions:      %s\n", humanize.Comma(stats.Sessions))
	fmt.Printf("Star events:   %s (%s starred)\n", humanize.Comma(stats.StarEvents), humanize.Comma(stats.Starred))
	fmt.Printf("Snapshots:     %s\n", humanize.Comma(stats.Snapshots))
	fmt.Printf("History rows:  %s\n", humanize.Comma(stats.HistoryRows))
	return nil
}

// Execute implements the go-flags Commander interface for RematerializeCommand.
func (c *RematerializeCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *RematerializeCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	if err := store.Rematerialize(ctx); err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]int64{
			"history_rows": stats.HistoryRows,
			"starred":      stats.Starred,
		})
	}
	fmt.Printf("Rebuilt %s history rows and %s starred places.\n",
		humanize.Comma(stats.HistoryRows), humanize.Comma(stats.Starred))
	return nil
}
