package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/logger"
	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/rawstore"
)

// DefaultGameTypes are the game types that carry every race of a day, in
// priority order.
var DefaultGameTypes = []string{
	"V75", "V86", "V64", "V65", "V5", "V4", "GS75", "LD", "V3", "vinnare", "plats", "tvilling",
}

// DayCapturer stores calendars and games in the raw store.
type DayCapturer interface {
	CaptureCalendar(ctx context.Context, date string) (*models.Calendar, rawstore.Key, error)
	CaptureGame(ctx context.Context, gameID, date string) (rawstore.Key, error)
}

// CrawlResult summarises one day's crawl.
type CrawlResult struct {
	Date     string
	Games    int
	Captured int
	Failed   int
}

// Crawler captures everything known about a day.
type Crawler struct {
	capturer      DayCapturer
	gameTypes     []string
	fallbackLimit int
	log           *logger.PipelineLogger
}

// NewCrawler creates a Crawler
func NewCrawler(capturer DayCapturer, cfg config.CrawlConfig, log *logrus.Logger) *Crawler {
	gameTypes := cfg.GameTypes
	if len(gameTypes) == 0 {
		gameTypes = DefaultGameTypes
	}
	return &Crawler{
		capturer:      capturer,
		gameTypes:     gameTypes,
		fallbackLimit: cfg.FallbackLimit,
		log:           logger.NewPipelineLogger(log).WithStage("crawl"),
	}
}

// CrawlDay captures the calendar and then every selected game. Only a
// calendar failure fails the day; game failures are logged and counted.
func (c *Crawler) CrawlDay(ctx context.Context, date string) (*CrawlResult, error) {
	started := time.Now()

	cal, _, err := c.capturer.CaptureCalendar(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", date, err)
	}

	ids := SelectGames(cal, c.gameTypes, c.fallbackLimit)
	res := &CrawlResult{Date: date, Games: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := c.capturer.CaptureGame(ctx, id, date)
		switch {
		case err == nil:
			res.Captured++
		case errors.Is(err, models.ErrCaptureExists):
			res.Captured++
		default:
			res.Failed++
			c.log.LogRecordSkipped(date, rawstore.CategoryGames+"/"+date, id, err)
		}
	}

	c.log.LogStageCompleted(date, map[string]int{
		"games":    res.Games,
		"captured": res.Captured,
		"failed":   res.Failed,
	}, time.Since(started))
	return res, nil
}

// SelectGames returns the prioritized games in type order then calendar
// order. When the calendar has none of them, it falls back to the first
// fallbackLimit games of every type in sorted type order.
func SelectGames(cal *models.Calendar, gameTypes []string, fallbackLimit int) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, t := range gameTypes {
		for _, g := range cal.Games[t] {
			add(g.ID)
		}
	}
	if len(ids) > 0 {
		return ids
	}

	types := make([]string, 0, len(cal.Games))
	for t := range cal.Games {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		games := cal.Games[t]
		if fallbackLimit > 0 && len(games) > fallbackLimit {
			games = games[:fallbackLimit]
		}
		for _, g := range games {
			add(g.ID)
		}
	}
	return ids
}
