package cli

import "github.com/runnerr0/trail/internal/storage"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	Dir     string `long:"dir" description:"Profile directory (overrides storage.dir)"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output and print metrics on exit"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// VisitCommand records a completed navigation.
type VisitCommand struct {
	URL     string  `long:"url" description:"Visited URL" required:"true"`
	Title   *string `long:"title" description:"Page title, if known"`
	Session int64   `long:"session" description:"Session the visit happened in"`
	Type    string  `long:"type" description:"How the navigation started" default:"link" choice:"link" choice:"typed" choice:"reload" choice:"back_forward" choice:"redirect"`
	Time    int64   `long:"time" description:"Event time in microseconds since the epoch (default: now)"`

	globals *GlobalFlags
}

// TitleCommand records a page title change.
type TitleCommand struct {
	URL   string `long:"url" description:"Page URL" required:"true"`
	Title string `long:"title" description:"New title" required:"true"`
	Time  int64  `long:"time" description:"Event time in microseconds since the epoch (default: now)"`

	globals *GlobalFlags
}

// StarCommand stars or unstars a URL.
type StarCommand struct {
	URL     string `long:"url" description:"URL to toggle" required:"true"`
	Session int64  `long:"session" description:"Session the toggle happened in"`
	Time    int64  `long:"time" description:"Event time in microseconds since the epoch (default: now)"`

	globals *GlobalFlags
	action  storage.StarAction
}

// SaveCommand stores a full-text snapshot of a page.
type SaveCommand struct {
	URL         string `long:"url" description:"Page URL" required:"true"`
	Title       string `long:"title" description:"Page title"`
	Excerpt     string `long:"excerpt" description:"Short description of the page"`
	Content     string `long:"content" description:"Inline page text"`
	ContentFile string `long:"content-file" description:"Path to file containing page text ('-' for stdin)"`
	Session     int64  `long:"session" description:"Session the page was captured in"`
	Time        int64  `long:"time" description:"Event time in microseconds since the epoch (default: now)"`

	globals *GlobalFlags
}

// SessionStartCommand begins a new session.
type SessionStartCommand struct {
	Scope    *int64 `long:"scope" description:"Owning window or container"`
	Ancestor *int64 `long:"ancestor" description:"Session this one was derived from"`
	Reason   string `long:"reason" description:"Why the session began" default:"new" choice:"new" choice:"restore" choice:"fork" choice:"navigate"`
	Time     int64  `long:"time" description:"Event time in microseconds since the epoch (default: now)"`

	globals *GlobalFlags
}

// SessionEndCommand ends an existing session.
type SessionEndCommand struct {
	ID     int64  `long:"id" description:"Session to end" required:"true"`
	Reason string `long:"reason" description:"Why the session ended" default:"close" choice:"close" choice:"crash" choice:"replace"`
	Time   int64  `long:"time" description:"Event time in microseconds since the epoch (default: now)"`

	globals *GlobalFlags
}

// HistoryCommand lists recently visited places.
type HistoryCommand struct {
	Since string `long:"since" description:"Only places visited within duration (e.g., 7d, 24h, 2w)"`
	Limit int    `long:"limit" description:"Maximum results; 0 for all (default: query.default_limit)" default:"-1"`
	Match string `long:"match" description:"Only places whose title or URL contains this text"`

	globals *GlobalFlags
}

// SearchCommand searches saved page content and history.
type SearchCommand struct {
	Since   string `long:"since" description:"Only places visited within duration (e.g., 7d, 24h, 2w)"`
	Limit   int    `long:"limit" description:"Maximum results; 0 for all (default: query.default_limit)" default:"-1"`
	Snippet int    `long:"snippet" description:"Snippet size in tokens (default: query.snippet_size)"`

	Args struct {
		Terms []string `positional-arg-name:"terms" required:"1"`
	} `positional-args:"yes"`

	globals *GlobalFlags
}

// StarredCommand lists starred places.
type StarredCommand struct {
	Recent int `long:"recent" description:"Show the N most recently starred places with titles and times"`

	globals *GlobalFlags
}

// SessionsCommand lists sessions.
type SessionsCommand struct {
	Since   string `long:"since" description:"Only sessions started within duration"`
	Lineage int64  `long:"lineage" description:"Show the ancestry of this session instead"`

	globals *GlobalFlags
}

// RematerializeCommand rebuilds the history and starred tables.
type RematerializeCommand struct {
	globals *GlobalFlags
}

// StatusCommand shows database statistics.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
