package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/runnerr0/trail/internal/config"
	"github.com/runnerr0/trail/internal/storage"
)

// placeJSON is the JSON output of commands that append an event for a place.
type placeJSON struct {
	Event string          `json:"event"`
	URL   string          `json:"url"`
	Place storage.PlaceID `json:"place"`
}

func printPlace(globals *GlobalFlags, event, url string, place storage.PlaceID) error {
	if globals != nil && globals.JSON {
		return printJSON(placeJSON{Event: event, URL: url, Place: place})
	}
	fmt.Printf("%s: %s (place %d)\n", event, url, place)
	return nil
}

// Execute implements the go-flags Commander interface for VisitCommand.
func (c *VisitCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *VisitCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	typ, err := parseVisitType(c.Type)
	if err != nil {
		return err
	}
	place, err := store.RecordVisit(ctx, storage.Visit{
		URL:     c.URL,
		Session: storage.SessionID(c.Session),
		Title:   c.Title,
		Type:    typ,
		Time:    c.Time,
	})
	if err != nil {
		return err
	}
	return printPlace(c.globals, "visit", c.URL, place)
}

// Execute implements the go-flags Commander interface for TitleCommand.
func (c *TitleCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *TitleCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	place, err := store.RecordTitle(ctx, c.URL, c.Title, c.Time)
	if err != nil {
		return err
	}
	return printPlace(c.globals, "title", c.URL, place)
}

// Execute implements the go-flags Commander interface for StarCommand.
func (c *StarCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *StarCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	place, err := store.ToggleStar(ctx, storage.StarToggle{
		URL:     c.URL,
		Session: storage.SessionID(c.Session),
		Action:  c.action,
		Time:    c.Time,
	})
	if err != nil {
		return err
	}
	return printPlace(c.globals, c.action.String(), c.URL, place)
}

// Execute implements the go-flags Commander interface for SaveCommand.
func (c *SaveCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *SaveCommand) executeWithStore(ctx context.Context, store *storage.Store, _ *config.Config) error {
	content, err := c.content()
	if err != nil {
		return err
	}
	place, err := store.SavePageSnapshot(ctx, storage.Snapshot{
		URL:     c.URL,
		Session: storage.SessionID(c.Session),
		Title:   c.Title,
		Excerpt: c.Excerpt,
		Content: content,
		Time:    c.Time,
	})
	if err != nil {
		return err
	}
	return printPlace(c.globals, "save", c.URL, place)
}

// content returns the page text from --content or --content-file.
func (c *SaveCommand) content() (string, error) {
	switch {
	case c.Content != "" && c.ContentFile != "":
		return "", fmt.Errorf("--content and --content-file are mutually exclusive")
	case c.ContentFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read content from stdin: %w", err)
		}
		return string(data), nil
	case c.ContentFile != "":
		data, err := os.ReadFile(c.ContentFile)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}
	return c.Content, nil
}
