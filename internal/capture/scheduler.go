package capture

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/logger"
	"github.com/yourusername/racecapture/internal/metrics"
	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/rawstore"
)

// GameCapturer stores one snapshot of a game.
type GameCapturer interface {
	CaptureGame(ctx context.Context, gameID, date string) (rawstore.Key, error)
}

// Options configures a Scheduler.
type Options struct {
	Offsets         []time.Duration
	Tolerance       time.Duration
	TickInterval    time.Duration
	Grace           time.Duration
	CalendarRefresh time.Duration
	CaptureTimeout  time.Duration
	IdleTimeout     time.Duration
	MaxDuration     time.Duration
	GamePrefix      string
	// Region restricts tracking to tracks with this country code. Empty tracks all.
	Region   string
	Location *time.Location
}

// OptionsFromConfig builds scheduler options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Offsets:         cfg.Offsets(),
		Tolerance:       cfg.Capture.Tolerance,
		TickInterval:    cfg.Capture.TickInterval,
		Grace:           cfg.Capture.Grace,
		CalendarRefresh: cfg.Capture.CalendarRefresh,
		CaptureTimeout:  cfg.Capture.CaptureTimeout,
		IdleTimeout:     cfg.Capture.IdleTimeout,
		MaxDuration:     cfg.Capture.MaxDuration,
		GamePrefix:      cfg.Capture.GamePrefix,
		Region:          cfg.Transform.Region,
		Location:        cfg.Location(),
	}
}

// Scheduler triggers exactly one capture per (event, offset) pair while the
// event's time to start is inside the offset's tolerance window.
// A Scheduler is one run: create it at run start and discard it afterwards.
type Scheduler struct {
	opts      Options
	calendars CalendarFetcher
	capturer  GameCapturer
	cache     *CalendarCache
	log       *logger.CaptureLogger
	runID     string
	now       func() time.Time

	mu       sync.Mutex
	tracked  map[string]TrackedEvent
	pairs    map[pairKey]PairState
	inFlight int
	lastTick time.Time

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler run.
func NewScheduler(opts Options, calendars CalendarFetcher, capturer GameCapturer, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	runID := uuid.NewString()
	return &Scheduler{
		opts:      opts,
		calendars: calendars,
		capturer:  capturer,
		cache:     NewCalendarCache(opts.CalendarRefresh),
		log:       logger.NewCaptureLogger(log, runID),
		runID:     runID,
		now:       time.Now,
		tracked:   make(map[string]TrackedEvent),
		pairs:     make(map[pairKey]PairState),
	}
}

// Run polls until ctx is cancelled, the maximum duration elapses, or no
// event has been active for the idle timeout. In-flight captures are
// drained before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.now()
	lastActive := start

	s.log.WithFields(logrus.Fields{
		"offsets":      s.opts.Offsets,
		"tolerance":    s.opts.Tolerance,
		"tick":         s.opts.TickInterval,
		"max_duration": s.opts.MaxDuration,
	}).Info("Snapshot scheduler started")

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	defer s.Wait()

	for {
		now := s.now()
		res := s.Tick(ctx, now)
		if res.Active > 0 {
			lastActive = now
		}

		if s.opts.MaxDuration > 0 && now.Sub(start) >= s.opts.MaxDuration {
			s.log.Info("Maximum run duration reached, stopping")
			return nil
		}
		if res.Active == 0 && now.Sub(lastActive) >= s.opts.IdleTimeout {
			s.log.Info("No active events left to track, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			s.log.Info("Snapshot scheduler stopped by context")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick evaluates every tracked event against the capture windows at now and
// dispatches the captures that are due.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickResult {
	events := s.upcoming(ctx, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	var res TickResult
	previous := s.tracked
	s.tracked = make(map[string]TrackedEvent, len(events))
	for _, ev := range events {
		tts := ev.StartTime.Sub(now)
		if tts < -s.opts.Grace {
			s.expireAll(ev.EventID)
			continue
		}
		s.tracked[ev.EventID] = ev
		res.Active++

		for _, offset := range s.opts.Offsets {
			key := pairKey{eventID: ev.EventID, offset: offset}
			if s.pairs[key] != PairPending {
				continue
			}
			if tts < offset-s.opts.Tolerance {
				s.pairs[key] = PairExpired
				s.log.LogPairExpired(ev.EventID, offset)
				continue
			}
			if tts <= offset+s.opts.Tolerance {
				s.pairs[key] = PairInWindow
				s.inFlight++
				res.Dispatched = append(res.Dispatched, Dispatch{EventID: ev.EventID, Offset: offset, TimeToStart: tts})
				s.log.LogCaptureTriggered(ev.EventID, offset, tts)
				s.dispatch(ctx, ev, offset)
				break
			}
		}
	}

	for id := range previous {
		if _, ok := s.tracked[id]; !ok {
			s.expireAll(id)
		}
	}

	s.lastTick = now
	metrics.UpdateTrackedEvents(len(s.tracked))
	return res
}

// dispatch runs one capture in its own goroutine with an independent timeout.
// Must be called with s.mu held.
func (s *Scheduler) dispatch(ctx context.Context, ev TrackedEvent, offset time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		captureCtx, cancel := context.WithTimeout(ctx, s.opts.CaptureTimeout)
		defer cancel()

		started := time.Now()
		key, err := s.capturer.CaptureGame(captureCtx, ev.GameID, ev.Date)
		elapsed := time.Since(started)
		metrics.RecordCapture(offset, elapsed, err)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight--
		k := pairKey{eventID: ev.EventID, offset: offset}
		switch {
		case errors.Is(err, models.ErrCaptureExists):
			s.pairs[k] = PairTriggered
			s.log.LogCaptureCollision(ev.EventID, offset, err)
		case err != nil:
			s.pairs[k] = PairPending
			s.log.LogCaptureFailed(ev.EventID, offset, err)
		default:
			s.pairs[k] = PairTriggered
			s.log.LogCaptureCompleted(ev.EventID, offset, key.Path(), elapsed)
		}
	}()
}

// expireAll closes the pending pairs of an event that left tracking.
func (s *Scheduler) expireAll(eventID string) {
	for _, offset := range s.opts.Offsets {
		key := pairKey{eventID: eventID, offset: offset}
		if s.pairs[key] == PairPending {
			s.pairs[key] = PairExpired
			s.log.LogPairExpired(eventID, offset)
		}
	}
}

// upcoming lists the events on the calendars covering now and the largest
// offset ahead of it.
func (s *Scheduler) upcoming(ctx context.Context, now time.Time) []TrackedEvent {
	var events []TrackedEvent
	seen := make(map[string]bool)
	for _, date := range s.datesFor(now) {
		cal, fetched, err := s.cache.Refresh(ctx, s.calendars, date, now)
		if fetched {
			metrics.RecordCalendarRefresh(err)
			n := 0
			if cal != nil {
				n = cal.RaceCount()
			}
			s.log.LogCalendarRefresh(date, n, err)
		}
		if cal == nil {
			continue
		}
		for _, ev := range s.eventsFrom(cal) {
			if !seen[ev.EventID] {
				seen[ev.EventID] = true
				events = append(events, ev)
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].StartTime.Before(events[j].StartTime)
		}
		return events[i].EventID < events[j].EventID
	})
	return events
}

// datesFor returns the calendar dates whose events can still be inside the
// grace period or a capture window at now.
func (s *Scheduler) datesFor(now time.Time) []string {
	var horizon time.Duration
	for _, o := range s.opts.Offsets {
		if o > horizon {
			horizon = o
		}
	}

	var dates []string
	for _, t := range []time.Time{now.Add(-s.opts.Grace), now, now.Add(horizon + s.opts.Tolerance)} {
		d := t.In(s.opts.Location).Format("2006-01-02")
		if len(dates) == 0 || dates[len(dates)-1] != d {
			dates = append(dates, d)
		}
	}
	return dates
}

func (s *Scheduler) eventsFrom(cal *models.Calendar) []TrackedEvent {
	var out []TrackedEvent
	for _, track := range cal.Tracks {
		if s.opts.Region != "" && track.CountryCode != s.opts.Region {
			continue
		}
		for _, race := range track.Races {
			if race.ID == "" || race.StartTime == "" {
				continue
			}
			start, err := models.ParseSourceTime(race.StartTime, s.opts.Location)
			if err != nil {
				s.log.WithError(err).WithField("race_id", race.ID).Warn("Skipping race with bad start time")
				continue
			}
			out = append(out, TrackedEvent{
				EventID:   race.ID,
				GameID:    s.opts.GamePrefix + "_" + race.ID,
				Date:      start.Format("2006-01-02"),
				StartTime: start,
			})
		}
	}
	return out
}

// State returns the state of one (event, offset) pair.
func (s *Scheduler) State(eventID string, offset time.Duration) PairState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairs[pairKey{eventID: eventID, offset: offset}]
}

// Status reports the run's progress.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	triggered := 0
	for _, st := range s.pairs {
		if st == PairTriggered {
			triggered++
		}
	}
	return Status{
		RunID:     s.runID,
		Tracked:   len(s.tracked),
		Triggered: triggered,
		InFlight:  s.inFlight,
		LastTick:  s.lastTick,
	}
}

// Wait blocks until all dispatched captures have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
