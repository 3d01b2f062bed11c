package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/runnerr0/trail/internal/config"
	"github.com/runnerr0/trail/internal/storage"
)

// historyJSON is the JSON output structure for a history entry.
type historyJSON struct {
	Place       storage.PlaceID `json:"place"`
	URL         string          `json:"url"`
	Title       string          `json:"title,omitempty"`
	LastVisited string          `json:"last_visited"`
	VisitCount  int64           `json:"visit_count"`
}

// searchJSON is the JSON output structure for a search result.
type searchJSON struct {
	Place       storage.PlaceID `json:"place"`
	URL         string          `json:"url"`
	Title       string          `json:"title,omitempty"`
	LastVisited string          `json:"last_visited"`
	Snippet     string          `json:"snippet,omitempty"`
}

// starredJSON is the JSON output structure for a starred place.
type starredJSON struct {
	Place   storage.PlaceID `json:"place"`
	URL     string          `json:"url"`
	Title   string          `json:"title,omitempty"`
	Starred string          `json:"starred"`
}

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *HistoryCommand) executeWithStore(ctx context.Context, store *storage.Store, cfg *config.Config) error {
	since, err := sinceMicros(c.Since, time.Now())
	if err != nil {
		return err
	}
	limit := resolveLimit(c.Limit, cfg)

	var entries []storage.HistoryEntry
	if c.Match != "" {
		entries, err = store.VisitedMatches(ctx, c.Match, since, limit)
	} else {
		entries, err = store.Visited(ctx, since, limit)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]historyJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, historyJSON{
				Place:       e.Place,
				URL:         e.URL,
				Title:       e.Title,
				LastVisited: isoTime(e.LastVisited),
				VisitCount:  e.VisitCount,
			})
		}
		return printJSON(out)
	}

	if len(entries) == 0 {
		fmt.Println("No history.")
		return nil
	}

	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("Last Visited", "Visits", "Title", "URL")
	for _, e := range entries {
		table.Append([]string{
			formatTime(e.LastVisited),
			humanize.Comma(e.VisitCount),
			truncate(e.Title, 50),
			e.URL,
		})
	}
	return table.Render()
}

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *SearchCommand) executeWithStore(ctx context.Context, store *storage.Store, cfg *config.Config) error {
	text := strings.Join(c.Args.Terms, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("search terms must not be empty")
	}
	since, err := sinceMicros(c.Since, time.Now())
	if err != nil {
		return err
	}
	snippet := c.Snippet
	if snippet <= 0 {
		snippet = cfg.Query.SnippetSize
	}

	results, err := store.Query(ctx, text, since, resolveLimit(c.Limit, cfg), snippet)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]searchJSON, 0, len(results))
		for _, r := range results {
			out = append(out, searchJSON{
				Place:       r.Place,
				URL:         r.URL,
				Title:       r.Title,
				LastVisited: isoTime(r.LastVisited),
				Snippet:     r.Snippet,
			})
		}
		return printJSON(out)
	}

	if len(results) == 0 {
		fmt.Printf("No results for %q.\n", text)
		return nil
	}

	fmt.Printf("Results for %q (%d):\n\n", text, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Printf("%d. %s\n", i+1, title)
		fmt.Printf("   %s\n", r.URL)
		fmt.Printf("   %s\n", formatTime(r.LastVisited))
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
		fmt.Println()
	}
	return nil
}

// Execute implements the go-flags Commander interface for StarredCommand.
func (c *StarredCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *StarredCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	if c.Recent > 0 {
		return c.printRecent(ctx, store)
	}

	urls, err := store.StarredURLs(ctx)
	if err != nil {
		return err
	}
	sort.Strings(urls)

	if c.globals != nil && c.globals.JSON {
		return printJSON(urls)
	}
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}

func (c *StarredCommand) printRecent(ctx context.Context, store *storage.Store) error {
	entries, err := store.RecentlyStarred(ctx, c.Recent)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]starredJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, starredJSON{
				Place:   e.Place,
				URL:     e.URL,
				Title:   e.Title,
				Starred: isoTime(e.Time),
			})
		}
		return printJSON(out)
	}

	if len(entries) == 0 {
		fmt.Println("Nothing starred.")
		return nil
	}

	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("Starred", "Title", "URL")
	for _, e := range entries {
		table.Append([]string{formatTime(e.Time), truncate(e.Title, 50), e.URL})
	}
	return table.Render()
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
