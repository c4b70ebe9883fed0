package capture

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yourusername/racecapture/internal/models"
)

// CalendarFetcher is the part of the source the scheduler polls.
type CalendarFetcher interface {
	FetchCalendar(ctx context.Context, date string) (*models.Calendar, error)
}

type cachedCalendar struct {
	calendar    *models.Calendar
	attemptedAt time.Time
}

// CalendarCache holds the last calendar per date and decides when a refresh
// is due. Freshness is measured against the caller's clock.
type CalendarCache struct {
	items    *cache.Cache
	interval time.Duration
}

// NewCalendarCache creates a cache that refreshes a date at most once per interval.
func NewCalendarCache(interval time.Duration) *CalendarCache {
	return &CalendarCache{
		items:    cache.New(24*time.Hour, time.Hour),
		interval: interval,
	}
}

// Get returns the cached calendar for date.
func (c *CalendarCache) Get(date string) (*models.Calendar, bool) {
	v, ok := c.items.Get(date)
	if !ok {
		return nil, false
	}
	entry := v.(*cachedCalendar)
	return entry.calendar, entry.calendar != nil
}

// Refresh returns the calendar for date, fetching it only when nothing is
// cached or the last attempt is older than the interval. On a failed fetch
// the previous calendar is returned together with the error.
func (c *CalendarCache) Refresh(ctx context.Context, fetcher CalendarFetcher, date string, now time.Time) (cal *models.Calendar, fetched bool, err error) {
	var entry *cachedCalendar
	if v, ok := c.items.Get(date); ok {
		entry = v.(*cachedCalendar)
	}
	if entry != nil && entry.calendar != nil && now.Sub(entry.attemptedAt) < c.interval {
		return entry.calendar, false, nil
	}

	fresh, err := fetcher.FetchCalendar(ctx, date)
	if err != nil {
		if entry == nil {
			return nil, true, err
		}
		entry.attemptedAt = now
		return entry.calendar, true, err
	}

	c.items.SetDefault(date, &cachedCalendar{calendar: fresh, attemptedAt: now})
	return fresh, true, nil
}
