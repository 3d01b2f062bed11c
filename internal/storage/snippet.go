package storage

import (
	"html"
	"strings"
)

// Highlight delimiters handed to SQLite's snippet(). They are control
// characters so they survive HTML escaping untouched and cannot be typed
// into page content by accident.
const (
	highlightOpen   = "\x01"
	highlightClose  = "\x02"
	snippetEllipsis = "…"
)

// Bounds of the token count accepted by FTS4 snippet().
const (
	defaultSnippetTokens = 15
	maxSnippetTokens     = 64
)

var highlightReplacer = strings.NewReplacer(highlightOpen, "<b>", highlightClose, "</b>")

// formatSnippet escapes raw snippet text for HTML and only then turns the
// highlight delimiters into bold tags, so page content cannot inject
// markup but the match highlights always render.
func formatSnippet(raw string) string {
	return highlightReplacer.Replace(html.EscapeString(raw))
}

func snippetTokens(n int) int {
	switch {
	case n <= 0:
		return defaultSnippetTokens
	case n > maxSnippetTokens:
		return maxSnippetTokens
	}
	return n
}

// ftsQuery converts user search text into an FTS4 query: every word becomes
// a quoted prefix term and terms are implicitly ANDed.
func ftsQuery(input string) string {
	words := strings.Fields(input)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.NewReplacer(`"`, "", "*", "").Replace(w)
		if w == "" {
			continue
		}
		parts = append(parts, `"`+w+`*"`)
	}
	return strings.Join(parts, " ")
}

// likePattern builds a containment pattern for LIKE ... ESCAPE '\'.
func likePattern(substring string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(substring) + "%"
}

// sqlLimit maps "no limit" (zero or negative) to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
