package storage

import "fmt"

// PlaceID identifies a distinct URL. IDs are assigned once and never reused.
type PlaceID int64

// SessionID identifies a browsing session (a tab's lifetime).
type SessionID int64

// VisitType records how a navigation was initiated.
type VisitType int

const (
	VisitLink VisitType = iota
	VisitTyped
	VisitReload
	VisitBackForward
	VisitRedirect
)

// Valid reports whether t is a recognized visit type.
func (t VisitType) Valid() bool { return t >= VisitLink && t <= VisitRedirect }

func (t VisitType) String() string {
	switch t {
	case VisitLink:
		return "link"
	case VisitTyped:
		return "typed"
	case VisitReload:
		return "reload"
	case VisitBackForward:
		return "back_forward"
	case VisitRedirect:
		return "redirect"
	}
	return fmt.Sprintf("VisitType(%d)", int(t))
}

// SessionStartReason records why a session began.
type SessionStartReason int

const (
	StartNew SessionStartReason = iota
	StartRestore
	StartFork
	StartNavigate
)

// Valid reports whether r is a recognized start reason.
func (r SessionStartReason) Valid() bool { return r >= StartNew && r <= StartNavigate }

func (r SessionStartReason) String() string {
	switch r {
	case StartNew:
		return "new"
	case StartRestore:
		return "restore"
	case StartFork:
		return "fork"
	case StartNavigate:
		return "navigate"
	}
	return fmt.Sprintf("SessionStartReason(%d)", int(r))
}

// SessionEndReason records why a session terminated.
type SessionEndReason int

const (
	EndClose SessionEndReason = iota
	EndCrash
	EndReplace
)

// Valid reports whether r is a recognized end reason.
func (r SessionEndReason) Valid() bool { return r >= EndClose && r <= EndReplace }

func (r SessionEndReason) String() string {
	switch r {
	case EndClose:
		return "close"
	case EndCrash:
		return "crash"
	case EndReplace:
		return "replace"
	}
	return fmt.Sprintf("SessionEndReason(%d)", int(r))
}

// StarAction is the signed delta a star event applies to a place's
// star balance.
type StarAction int

const (
	Unstar StarAction = -1
	Star   StarAction = 1
)

// Valid reports whether a is Star or Unstar.
func (a StarAction) Valid() bool { return a == Star || a == Unstar }

func (a StarAction) String() string {
	switch a {
	case Star:
		return "star"
	case Unstar:
		return "unstar"
	}
	return fmt.Sprintf("StarAction(%d)", int(a))
}

// Visit describes a completed navigation.
type Visit struct {
	URL     string
	Session SessionID
	// Title is nil when the page has not reported one.
	Title *string
	Type  VisitType
	Time  int64 // µs
}

// StarToggle describes a bookmark toggle.
type StarToggle struct {
	URL     string
	Session SessionID
	Action  StarAction
	Time    int64
}

// Snapshot is a full-text capture of a page, used for search only.
type Snapshot struct {
	URL     string
	Session SessionID
	Title   string
	Excerpt string
	Content string
	Time    int64
}

// SessionStart describes a new session. Scope and Ancestor are optional.
type SessionStart struct {
	Scope    *int64
	Ancestor *SessionID
	Reason   SessionStartReason
	Time     int64
}

// Session is a session start joined with its end, if any.
type Session struct {
	ID        SessionID
	Scope     *int64
	Ancestor  *SessionID
	Started   int64
	Reason    SessionStartReason
	Ended     *int64
	EndReason *SessionEndReason
}

// HistoryEntry is one row of the materialized history summary.
type HistoryEntry struct {
	Place       PlaceID
	URL         string
	Title       string
	LastVisited int64
	VisitCount  int64
}

// SearchResult is a history match, optionally carrying an HTML snippet
// of the matching page content.
type SearchResult struct {
	Place       PlaceID
	URL         string
	Title       string
	LastVisited int64
	Snippet     string
}

// StarredEntry is a currently starred place.
type StarredEntry struct {
	Place PlaceID
	URL   string
	Title string
	Time  int64
}

// Stats holds aggregate counts about a Store.
type Stats struct {
	SchemaVersion     int
	Places            int64
	Visits            int64
	Titles            int64
	Sessions          int64
	StarEvents        int64
	Snapshots         int64
	HistoryRows       int64
	Starred           int64
	DatabaseSizeBytes int64
}
