package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/runnerr0/trail/internal/storage"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Visit         *VisitCommand
	Title         *TitleCommand
	Star          *StarCommand
	Unstar        *StarCommand
	Save          *SaveCommand
	SessionStart  *SessionStartCommand
	SessionEnd    *SessionEndCommand
	History       *HistoryCommand
	Search        *SearchCommand
	Starred       *StarredCommand
	Sessions      *SessionsCommand
	Rematerialize *RematerializeCommand
	Status        *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "trail"
	parser.LongDescription = "Event-sourced browsing history, sessions and stars."

	cmds := &commands{
		Visit:         &VisitCommand{globals: &globals},
		Title:         &TitleCommand{globals: &globals},
		Star:          &StarCommand{globals: &globals, action: storage.Star},
		Unstar:        &StarCommand{globals: &globals, action: storage.Unstar},
		Save:          &SaveCommand{globals: &globals},
		SessionStart:  &SessionStartCommand{globals: &globals},
		SessionEnd:    &SessionEndCommand{globals: &globals},
		History:       &HistoryCommand{globals: &globals},
		Search:        &SearchCommand{globals: &globals},
		Starred:       &StarredCommand{globals: &globals},
		Sessions:      &SessionsCommand{globals: &globals},
		Rematerialize: &RematerializeCommand{globals: &globals},
		Status:        &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("visit", "Record a visit", "Record a completed navigation to a URL.", cmds.Visit)
	parser.AddCommand("title", "Record a title change", "Record a new title for a URL.", cmds.Title)
	parser.AddCommand("star", "Star a URL", "Star (bookmark) a URL.", cmds.Star)
	parser.AddCommand("unstar", "Unstar a URL", "Remove the star from a URL.", cmds.Unstar)
	parser.AddCommand("save", "Save a page snapshot", "Save the full text of a page so it can be searched.", cmds.Save)
	parser.AddCommand("session-start", "Start a session", "Start a session and print its id.", cmds.SessionStart)
	parser.AddCommand("session-end", "End a session", "Record the end of an existing session.", cmds.SessionEnd)
	parser.AddCommand("history", "List recent history", "List visited places, most recent first, optionally filtered by title or URL.", cmds.History)
	parser.AddCommand("search", "Search history and saved pages", "Search saved page content and history titles and URLs.", cmds.Search)
	parser.AddCommand("starred", "List starred places", "List starred URLs, or the most recently starred places with --recent.", cmds.Starred)
	parser.AddCommand("sessions", "List sessions", "List sessions, or one session's ancestry with --lineage.", cmds.Sessions)
	parser.AddCommand("rematerialize", "Rebuild derived tables", "Rebuild the history summary and starred set from the event log.", cmds.Rematerialize)
	parser.AddCommand("status", "Show database statistics", "Show schema version, event counts and database size.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the trail CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("trail %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
