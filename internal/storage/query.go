package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Visited returns the history summary of places last visited after since,
// most recent first. A limit of zero or less returns every row.
func (s *Store) Visited(ctx context.Context, since int64, limit int) ([]HistoryEntry, error) {
	return s.queryHistory(ctx, `
		SELECT place, url, title, visited, visits
		  FROM history_summary
		 WHERE visited > ?
		 ORDER BY visited DESC, place DESC
		 LIMIT ?
	`, since, sqlLimit(limit))
}

// VisitedMatches is Visited restricted to places whose title or URL
// contains substring, ignoring ASCII case.
func (s *Store) VisitedMatches(ctx context.Context, substring string, since int64, limit int) ([]HistoryEntry, error) {
	pattern := likePattern(substring)
	return s.queryHistory(ctx, `
		SELECT place, url, title, visited, visits
		  FROM history_summary
		 WHERE visited > ?
		   AND (title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\')
		 ORDER BY visited DESC, place DESC
		 LIMIT ?
	`, since, pattern, pattern, sqlLimit(limit))
}

func (s *Store) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var title sql.NullString
		if err := rows.Scan(&e.Place, &e.URL, &title, &e.LastVisited, &e.VisitCount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Title = title.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Query searches saved page content and history titles and URLs for text.
// Content matches carry an HTML snippet of snippetSize tokens with the
// matched terms in <b> tags; title/URL matches carry none. Results are
// merged per place, most recently visited first.
func (s *Store) Query(ctx context.Context, text string, since int64, limit, snippetSize int) ([]SearchResult, error) {
	pattern := likePattern(text)
	match := ftsQuery(text)

	var rows *sql.Rows
	var err error
	if match == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT place, url, title, visited, NULL
			  FROM history_summary
			 WHERE (title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\') AND visited > ?
			 ORDER BY visited DESC, place DESC
			 LIMIT ?
		`, pattern, pattern, since, sqlLimit(limit))
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT place, MAX(url), MAX(title), MAX(visited) AS recent, MAX(snip)
			  FROM (
				SELECT page_snapshots.place AS place,
				       p.url AS url,
				       COALESCE(h.title, page_snapshots.title) AS title,
				       COALESCE(h.visited, page_snapshots.ts) AS visited,
				       snippet(page_snapshots, ?, ?, ?, -1, ?) AS snip
				  FROM page_snapshots
				  JOIN places p ON p.id = page_snapshots.place
				  LEFT JOIN history_summary h ON h.place = page_snapshots.place
				 WHERE page_snapshots MATCH ?
				   AND COALESCE(h.visited, page_snapshots.ts) > ?
				UNION ALL
				SELECT place, url, title, visited, NULL
				  FROM history_summary
				 WHERE (title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\') AND visited > ?
			  )
			 GROUP BY place
			 ORDER BY recent DESC, place DESC
			 LIMIT ?
		`,
			highlightOpen, highlightClose, snippetEllipsis, snippetTokens(snippetSize),
			match, since,
			pattern, pattern, since,
			sqlLimit(limit),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var title, snippet sql.NullString
		if err := rows.Scan(&r.Place, &r.URL, &title, &r.LastVisited, &snippet); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Title = title.String
		if snippet.Valid {
			r.Snippet = formatSnippet(snippet.String)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

// StarredURLs returns the URLs of every currently starred place, in no
// particular order.
func (s *Store) StarredURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM starred`)
	if err != nil {
		return nil, fmt.Errorf("query starred: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan starred: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate starred: %w", err)
	}
	return urls, nil
}

// RecentlyStarred returns up to limit starred places, newest star first,
// each with its most recent known title. A limit of zero or less returns
// every starred place.
func (s *Store) RecentlyStarred(ctx context.Context, limit int) ([]StarredEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.place, s.url, s.ts,
		       (SELECT t.title FROM titles t
		         WHERE t.place = s.place
		         ORDER BY t.ts DESC, t.id DESC LIMIT 1)
		  FROM starred s
		 ORDER BY s.ts DESC, s.place DESC
		 LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recently starred: %w", err)
	}
	defer rows.Close()

	entries := []StarredEntry{}
	for rows.Next() {
		var e StarredEntry
		var title sql.NullString
		if err := rows.Scan(&e.Place, &e.URL, &e.Time, &title); err != nil {
			return nil, fmt.Errorf("scan starred: %w", err)
		}
		e.Title = title.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate starred: %w", err)
	}
	return entries, nil
}
