package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/runnerr0/trail/internal/config"
	"github.com/runnerr0/trail/internal/storage"
)

// sessionJSON is the JSON output structure for a session.
type sessionJSON struct {
	ID        storage.SessionID  `json:"id"`
	Scope     *int64             `json:"scope,omitempty"`
	Ancestor  *storage.SessionID `json:"ancestor,omitempty"`
	Started   string             `json:"started"`
	Reason    string             `json:"reason"`
	Ended     string             `json:"ended,omitempty"`
	EndReason string             `json:"end_reason,omitempty"`
}

// Execute implements the go-flags Commander interface for SessionStartCommand.
func (c *SessionStartCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *SessionStartCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	reason, err := parseStartReason(c.Reason)
	if err != nil {
		return err
	}
	start := storage.SessionStart{Scope: c.Scope, Reason: reason, Time: c.Time}
	if c.Ancestor != nil {
		ancestor := storage.SessionID(*c.Ancestor)
		start.Ancestor = &ancestor
	}

	id, err := store.StartSession(ctx, start)
	if err != nil {
		return err
	}
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]storage.SessionID{"id": id})
	}
	fmt.Println(id)
	return nil
}

// Execute implements the go-flags Commander interface for SessionEndCommand.
func (c *SessionEndCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *SessionEndCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	reason, err := parseEndReason(c.Reason)
	if err != nil {
		return err
	}
	if err := store.EndSession(ctx, storage.SessionID(c.ID), reason, c.Time); err != nil {
		return err
	}
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"id": c.ID, "reason": reason.String()})
	}
	fmt.Printf("Ended session %d (%s)\n", c.ID, reason)
	return nil
}

// Execute implements the go-flags Commander interface for SessionsCommand.
func (c *SessionsCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *SessionsCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	var sessions []storage.Session
	var err error
	if c.Lineage != 0 {
		sessions, err = store.SessionLineage(ctx, storage.SessionID(c.Lineage))
	} else {
		var since int64
		if since, err = sinceMicros(c.Since, time.Now()); err != nil {
			return err
		}
		sessions, err = store.Sessions(ctx, since)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]sessionJSON, 0, len(sessions))
		for _, s := range sessions {
			j := sessionJSON{
				ID:       s.ID,
				Scope:    s.Scope,
				Ancestor: s.Ancestor,
				Started:  isoTime(s.Started),
				Reason:   s.Reason.String(),
			}
			if s.Ended != nil {
				j.Ended = isoTime(*s.Ended)
			}
			if s.EndReason != nil {
				j.EndReason = s.EndReason.String()
			}
			out = append(out, j)
		}
		return printJSON(out)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Ancestor", "Reason", "Started", "Ended")
	for _, s := range sessions {
		var ancestor, ended = "-", "-"
		if s.Ancestor != nil {
			ancestor = strconv.FormatInt(int64(*s.Ancestor), 10)
		}
		if s.Ended != nil {
			ended = formatTime(*s.Ended)
			if s.EndReason != nil {
				ended += " (" + s.EndReason.String() + ")"
			}
		}
		table.Append([]string{
			strconv.FormatInt(int64(s.ID), 10),
			ancestor,
			s.Reason.String(),
			formatTime(s.Started),
			ended,
		})
	}
	return table.Render()
}
