package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/trail/internal/storage"
)

func TestVisitCommand_Human(t *testing.T) {
	store := openTestStore(t)
	cmd := &VisitCommand{
		URL:     "https://a.example",
		Title:   strPtr("A"),
		Type:    "typed",
		globals: &GlobalFlags{},
	}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, testConfig))
	})
	assert.Equal(t, "visit: https://a.example (place 0)\n", output)
}

func TestVisitCommand_InvalidType(t *testing.T) {
	store := openTestStore(t)
	cmd := &VisitCommand{URL: "https://a.example", Type: "teleport", globals: &GlobalFlags{}}

	err := cmd.executeWithStore(context.Background(), store, testConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown visit type")
}

func TestVisitCommand_UnknownSession(t *testing.T) {
	store := openTestStore(t)
	cmd := &VisitCommand{URL: "https://a.example", Type: "link", Session: 42, globals: &GlobalFlags{}}

	err := cmd.executeWithStore(context.Background(), store, testConfig)
	require.Error(t, err)
	assert.True(t, storage.IsConstraint(err))
}

func TestTitleCommand(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.RecordVisit(ctx, storage.Visit{URL: "https://a.example", Title: strPtr("old"), Time: 1})
	require.NoError(t, err)

	cmd := &TitleCommand{URL: "https://a.example", Title: "new", Time: 2, globals: &GlobalFlags{JSON: true}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(ctx, store, testConfig))
	})

	var got placeJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, placeJSON{Event: "title", URL: "https://a.example", Place: 0}, got)

	entries, err := store.Visited(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Title)
}

func TestSaveCommand_ContentFile(t *testing.T) {
	store := openTestStore(t)
	path := filepath.Join(t.TempDir(), "page.txt")
	require.NoError(t, os.WriteFile(path, []byte("distributed consensus algorithms"), 0644))

	cmd := &SaveCommand{URL: "https://raft.example", ContentFile: path, globals: &GlobalFlags{}}
	captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, testConfig))
	})

	results, err := store.Query(context.Background(), "consensus", 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://raft.example", results[0].URL)
}

func TestSaveCommand_ContentFlagsExclusive(t *testing.T) {
	store := openTestStore(t)
	cmd := &SaveCommand{URL: "https://a.example", Content: "x", ContentFile: "y", globals: &GlobalFlags{}}

	assert.Error(t, cmd.executeWithStore(context.Background(), store, testConfig))
}

func TestSessionCommands(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	globals := &GlobalFlags{}

	output := captureOutput(t, func() {
		require.NoError(t, (&SessionStartCommand{Reason: "new", Time: 10, globals: globals}).
			executeWithStore(ctx, store, testConfig))
	})
	assert.Equal(t, "1\n", output)

	root := int64(1)
	captureOutput(t, func() {
		require.NoError(t, (&SessionStartCommand{Ancestor: &root, Reason: "fork", Time: 20, globals: globals}).
			executeWithStore(ctx, store, testConfig))
	})

	output = captureOutput(t, func() {
		require.NoError(t, (&SessionEndCommand{ID: 1, Reason: "crash", Time: 30, globals: globals}).
			executeWithStore(ctx, store, testConfig))
	})
	assert.Equal(t, "Ended session 1 (crash)\n", output)

	output = captureOutput(t, func() {
		require.NoError(t, (&SessionsCommand{Lineage: 2, globals: &GlobalFlags{JSON: true}}).
			executeWithStore(ctx, store, testConfig))
	})
	var lineage []sessionJSON
	require.NoError(t, json.Unmarshal([]byte(output), &lineage))
	require.Len(t, lineage, 2)
	assert.Equal(t, storage.SessionID(2), lineage[0].ID)
	assert.Equal(t, "fork", lineage[0].Reason)
	assert.Equal(t, storage.SessionID(1), lineage[1].ID)
	assert.Equal(t, "crash", lineage[1].EndReason)

	output = captureOutput(t, func() {
		require.NoError(t, (&SessionsCommand{globals: globals}).executeWithStore(ctx, store, testConfig))
	})
	assert.Contains(t, output, "fork")
	assert.Contains(t, output, "crash")
}

func TestSessionEndCommand_UnknownSession(t *testing.T) {
	store := openTestStore(t)
	cmd := &SessionEndCommand{ID: 9, Reason: "close", globals: &GlobalFlags{}}

	err := cmd.executeWithStore(context.Background(), store, testConfig)
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestHistoryCommand_Table(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMicro()

	_, err := store.RecordVisit(ctx, storage.Visit{URL: "https://a.example", Title: strPtr("Alpha"), Time: now - 1000})
	require.NoError(t, err)
	_, err = store.RecordVisit(ctx, storage.Visit{URL: "https://b.example", Title: strPtr("Beta"), Time: now})
	require.NoError(t, err)

	output := captureOutput(t, func() {
		require.NoError(t, (&HistoryCommand{Limit: -1, globals: &GlobalFlags{}}).executeWithStore(ctx, store, testConfig))
	})
	assert.Contains(t, output, "Alpha")
	assert.Contains(t, output, "https://b.example")
	assert.Less(t, strings.Index(output, "Beta"), strings.Index(output, "Alpha"), "most recent first")

	output = captureOutput(t, func() {
		require.NoError(t, (&HistoryCommand{Limit: -1, Match: "alp", globals: &GlobalFlags{}}).
			executeWithStore(ctx, store, testConfig))
	})
	assert.Contains(t, output, "Alpha")
	assert.NotContains(t, output, "Beta")
}

func TestHistoryCommand_Empty(t *testing.T) {
	store := openTestStore(t)

	output := captureOutput(t, func() {
		require.NoError(t, (&HistoryCommand{Limit: -1, globals: &GlobalFlags{}}).
			executeWithStore(context.Background(), store, testConfig))
	})
	assert.Equal(t, "No history.\n", output)
}

func TestHistoryCommand_InvalidSince(t *testing.T) {
	store := openTestStore(t)
	cmd := &HistoryCommand{Since: "soon", globals: &GlobalFlags{}}

	assert.Error(t, cmd.executeWithStore(context.Background(), store, testConfig))
}

func TestSearchCommand_Human(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SavePageSnapshot(ctx, storage.Snapshot{
		URL: "https://a.example", Title: "Channels", Content: "buffered channels in go", Time: 1,
	})
	require.NoError(t, err)

	cmd := &SearchCommand{Limit: -1, globals: &GlobalFlags{}}
	cmd.Args.Terms = []string{"buffered"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(ctx, store, testConfig))
	})
	assert.Contains(t, output, `Results for "buffered" (1)`)
	assert.Contains(t, output, "<b>buffered</b>")

	cmd.Args.Terms = []string{"nomatch"}
	output = captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(ctx, store, testConfig))
	})
	assert.Contains(t, output, "No results")
}

func TestStarredCommand_Recent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	globals := &GlobalFlags{}

	for _, u := range []string{"https://b.example", "https://a.example"} {
		captureOutput(t, func() {
			require.NoError(t, (&StarCommand{URL: u, action: storage.Star, globals: globals}).
				executeWithStore(ctx, store, testConfig))
		})
	}

	output := captureOutput(t, func() {
		require.NoError(t, (&StarredCommand{globals: globals}).executeWithStore(ctx, store, testConfig))
	})
	assert.Equal(t, "https://a.example\nhttps://b.example\n", output)

	output = captureOutput(t, func() {
		require.NoError(t, (&StarredCommand{Recent: 1, globals: &GlobalFlags{JSON: true}}).
			executeWithStore(ctx, store, testConfig))
	})
	var recent []starredJSON
	require.NoError(t, json.Unmarshal([]byte(output), &recent))
	require.Len(t, recent, 1)
	assert.Equal(t, "https://a.example", recent[0].URL)
}

func TestStatusCommand_Human(t *testing.T) {
	store := openTestStore(t)
	_, err := store.RecordVisit(context.Background(), storage.Visit{URL: "https://a.example"})
	require.NoError(t, err)

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, testConfig))
	})
	assert.Contains(t, output, "Trail Status")
	assert.Contains(t, output, "dev")
	assert.Contains(t, output, "Schema:        v5")
	assert.Contains(t, output, "Visits:        1")
}

func TestRematerializeCommand(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.RecordVisit(ctx, storage.Visit{URL: "https://a.example"})
	require.NoError(t, err)

	output := captureOutput(t, func() {
		require.NoError(t, (&RematerializeCommand{globals: &GlobalFlags{}}).executeWithStore(ctx, store, testConfig))
	})
	assert.Equal(t, "Rebuilt 1 history rows and 0 starred places.\n", output)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"15m", 15 * time.Minute, false},
		{"10s", 10 * time.Second, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
		{"-3d", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range tests {
		got, err := parseDuration(tc.input)
		if tc.err {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestSinceMicros(t *testing.T) {
	now := time.UnixMicro(10_000_000_000)

	got, err := sinceMicros("", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	got, err = sinceMicros("1h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour).UnixMicro(), got)
}

func TestResolveLimit(t *testing.T) {
	assert.Equal(t, testConfig.Query.DefaultLimit, resolveLimit(-1, testConfig))
	assert.Equal(t, 0, resolveLimit(0, testConfig))
	assert.Equal(t, 7, resolveLimit(7, testConfig))
}

func TestParseEnums(t *testing.T) {
	vt, err := parseVisitType("back_forward")
	require.NoError(t, err)
	assert.Equal(t, storage.VisitBackForward, vt)

	sr, err := parseStartReason("restore")
	require.NoError(t, err)
	assert.Equal(t, storage.StartRestore, sr)

	er, err := parseEndReason("replace")
	require.NoError(t, err)
	assert.Equal(t, storage.EndReplace, er)

	_, err = parseEndReason("explode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close, crash, replace")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "日本…", truncate("日本語テキスト", 3))
}

func TestDumpMetrics(t *testing.T) {
	store := openTestStore(t)
	_, err := store.RecordVisit(context.Background(), storage.Visit{URL: "https://a.example"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dumpMetrics(&buf))
	assert.Contains(t, buf.String(), "trail_visits_recorded_total ")
	assert.Contains(t, buf.String(), `trail_transactions_total{outcome="commit"} `)
}
