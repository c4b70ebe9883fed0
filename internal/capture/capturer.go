// Package capture fetches raw payloads from the racing source and schedules
// pre-start market snapshots.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/racecapture/internal/datasource"
	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/rawstore"
)

// Capturer fetches payloads and stores them write-once in the raw store.
type Capturer struct {
	source datasource.SourceClient
	store  rawstore.Store
	loc    *time.Location
	now    func() time.Time
}

// NewCapturer creates a Capturer. Capture timestamps are keyed in loc.
func NewCapturer(source datasource.SourceClient, store rawstore.Store, loc *time.Location) *Capturer {
	if loc == nil {
		loc = time.UTC
	}
	return &Capturer{
		source: source,
		store:  store,
		loc:    loc,
		now:    time.Now,
	}
}

// CaptureGame fetches one game and stores it under games/{date}.
func (c *Capturer) CaptureGame(ctx context.Context, gameID, date string) (rawstore.Key, error) {
	payload, err := c.source.FetchGame(ctx, gameID)
	if err != nil {
		return rawstore.Key{}, fmt.Errorf("fetch game %s: %w", gameID, err)
	}

	key := rawstore.NewKey(rawstore.CategoryGames, date, gameID, c.now(), c.loc)
	if err := c.store.Put(ctx, key, payload); err != nil {
		return rawstore.Key{}, fmt.Errorf("store game %s: %w", gameID, err)
	}
	return key, nil
}

// CaptureCalendar fetches the calendar for date and stores its raw payload
// under calendar/{date}.
func (c *Capturer) CaptureCalendar(ctx context.Context, date string) (*models.Calendar, rawstore.Key, error) {
	cal, err := c.source.FetchCalendar(ctx, date)
	if err != nil {
		return nil, rawstore.Key{}, fmt.Errorf("fetch calendar %s: %w", date, err)
	}

	key := rawstore.NewKey(rawstore.CategoryCalendar, date, date, c.now(), c.loc)
	if err := c.store.Put(ctx, key, cal.Raw); err != nil {
		return nil, rawstore.Key{}, fmt.Errorf("store calendar %s: %w", date, err)
	}
	return cal, key, nil
}
