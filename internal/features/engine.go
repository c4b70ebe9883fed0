// Package features builds model-ready rows whose history statistics only
// use outcomes of events that started strictly before the row's own event.
package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/logger"
	"github.com/yourusername/racecapture/internal/metrics"
	"github.com/yourusername/racecapture/internal/models"
)

// Options configures an Engine.
type Options struct {
	// DefaultDistance fills rows where neither participant nor event has one.
	DefaultDistance int
	VerifyLeakage   bool
}

// OptionsFromConfig builds engine options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultDistance: cfg.Features.DefaultDistance,
		VerifyLeakage:   cfg.Features.VerifyLeakage,
	}
}

// Request describes one build. Relations should start at the history
// lookback date; only rows dated within [From, To] are returned. Empty
// bounds are open.
type Request struct {
	Relations []*models.Relations
	Mode      Mode
	From      string
	To        string
	// Encoder is required in inference mode and ignored in train mode.
	Encoder *CategoryEncoder
}

// Result carries the rows and the encoder they were encoded with.
type Result struct {
	Rows    []models.FeatureRow
	Encoder *CategoryEncoder
}

// Engine computes feature rows.
type Engine struct {
	opts Options
	log  *logger.PipelineLogger
}

// NewEngine creates an Engine.
func NewEngine(opts Options, log *logrus.Logger) *Engine {
	if opts.DefaultDistance <= 0 {
		opts.DefaultDistance = 2140
	}
	return &Engine{opts: opts, log: logger.NewPipelineLogger(log).WithStage("features")}
}

// Build runs the rolling history over every supplied relation, then encodes
// and filters the rows requested.
func (e *Engine) Build(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Mode == ModeInference && req.Encoder == nil {
		return nil, fmt.Errorf("%w: inference requires a fitted category encoder", models.ErrMissingPrerequisite)
	}

	candidates := assemble(req.Relations)
	history := newRollingHistory()

	type scored struct {
		c *candidate
		h History
	}
	var kept []scored
	for _, c := range candidates {
		h := history.score(c)
		if !inRange(c.event.Date, req.From, req.To) {
			continue
		}
		if req.Mode == ModeTrain && c.rank() == nil {
			continue
		}
		kept = append(kept, scored{c: c, h: h})
	}

	enc := req.Encoder
	if req.Mode == ModeTrain {
		values := make(map[string][]string, len(categoryColumns))
		for _, s := range kept {
			for col, v := range categoryValues(s.c) {
				values[col] = append(values[col], v)
			}
		}
		enc = FitEncoder(values)
	}

	rows := make([]models.FeatureRow, 0, len(kept))
	for _, s := range kept {
		rows = append(rows, e.row(s.c, s.h, enc, req.Mode))
	}

	if e.opts.VerifyLeakage {
		if err := e.Audit(rows, req.Relations); err != nil {
			return nil, err
		}
	}

	metrics.RecordFeatureRows(string(req.Mode), len(rows))
	e.log.LogStageCompleted(req.To, map[string]int{
		"rows":       len(rows),
		"candidates": len(candidates),
	}, time.Since(started))

	return &Result{Rows: rows, Encoder: enc}, nil
}

// Audit runs VerifyNoLeakage and reports a violation loudly.
func (e *Engine) Audit(rows []models.FeatureRow, rels []*models.Relations) error {
	err := VerifyNoLeakage(rows, rels)
	if err != nil {
		metrics.RecordLeakageViolation()
		var v *LeakageError
		if errors.As(err, &v) {
			e.log.LogLeakageViolation(v.EventID, v.HorseID, v.Detail())
		}
	}
	return err
}

func (e *Engine) row(c *candidate, h History, enc *CategoryEncoder, mode Mode) models.FeatureRow {
	p, ev := c.participant, c.event
	cat := categoryValues(c)
	market := computeMarket(c.quotes, ev.StartTime)

	r := models.FeatureRow{
		EventID:     ev.EventID,
		HorseID:     p.HorseID,
		HorseName:   p.HorseName,
		Date:        ev.Date,
		StartTime:   ev.StartTime,
		StartNumber: p.StartNumber,

		Distance:         e.distance(p, ev),
		Age:              p.Age,
		HistoryStarts:    h.Starts,
		HistoryWins:      h.Wins,
		HistoryTop3:      h.Top3,
		HistoryWinRate:   h.WinRate(),
		HistoryPlaceRate: h.PlaceRate(),
		ShoesFront:       shoeFlag(p.ShoesFront),
		ShoesBack:        shoeFlag(p.ShoesBack),

		SexEncoded:         enc.Encode(CategorySex, cat[CategorySex]),
		SulkyTypeEncoded:   enc.Encode(CategorySulkyType, cat[CategorySulkyType]),
		StartMethodEncoded: enc.Encode(CategoryStartMethod, cat[CategoryStartMethod]),
		SportEncoded:       enc.Encode(CategorySport, cat[CategorySport]),
		TrackIDEncoded:     enc.Encode(CategoryTrackID, cat[CategoryTrackID]),

		OddsDropPercentage: market.oddsDrop,
		QuoteCount:         market.quoteCount,
		Odds5m:             market.odds5m,
		Odds30m:            market.odds30m,
	}
	if p.PostPosition != nil {
		r.PostPosition = *p.PostPosition
	}
	r.Month, r.DayOfWeek, r.IsWeekend = calendarFeatures(ev.Date, ev.StartTime)

	if mode == ModeTrain {
		rank := c.rank()
		r.FinishOrder = rank
		win := 0
		if rank != nil && *rank == 1 {
			win = 1
		}
		r.TargetWin = &win
		if c.outcome != nil && c.outcome.FinalOdds != nil {
			odds := c.outcome.FinalOdds.InexactFloat64()
			r.FinalOdds = &odds
		}
	}
	return r
}

func (e *Engine) distance(p *models.Participant, ev *models.Event) int {
	switch {
	case p.Distance != nil:
		return *p.Distance
	case ev.Distance != nil:
		return *ev.Distance
	default:
		return e.opts.DefaultDistance
	}
}

func shoeFlag(v *bool) int {
	switch {
	case v == nil:
		return -1
	case *v:
		return 1
	default:
		return 0
	}
}

// calendarFeatures returns month, day of week (Monday = 0) and a weekend flag.
func calendarFeatures(date string, fallback time.Time) (month, dayOfWeek, weekend int) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		d = fallback
	}
	month = int(d.Month())
	dayOfWeek = (int(d.Weekday()) + 6) % 7
	if dayOfWeek >= 5 {
		weekend = 1
	}
	return month, dayOfWeek, weekend
}

func inRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}
