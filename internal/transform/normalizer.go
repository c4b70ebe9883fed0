// Package transform normalizes raw game captures into the Events,
// Participants, Outcomes and MarketQuotes relations of one logical date.
package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/logger"
	"github.com/yourusername/racecapture/internal/metrics"
	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/rawstore"
)

// RawReader is the read side of the raw capture store.
type RawReader interface {
	Get(ctx context.Context, key rawstore.Key) ([]byte, error)
	List(ctx context.Context, category, date string) ([]rawstore.Key, error)
}

// Options configures a Normalizer.
type Options struct {
	Region      string
	Equipment   EquipmentPolicy
	PriceScale  int64
	Parallelism int
	Location    *time.Location
}

// OptionsFromConfig builds transform options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Region:      cfg.Transform.Region,
		Equipment:   EquipmentPolicy(cfg.Transform.EquipmentDefault),
		PriceScale:  cfg.Transform.PriceScale,
		Parallelism: cfg.Transform.Parallelism,
		Location:    cfg.Location(),
	}
}

// Normalizer turns raw captures into relations.
//
// Files are merged in sorted key order, which for one identifier is capture
// time order. When a natural key appears in several files the last one read
// wins, for events, participants, outcomes and quotes alike.
type Normalizer struct {
	raw   RawReader
	opts  Options
	scale decimal.Decimal
	log   *logger.PipelineLogger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(raw RawReader, opts Options, log *logrus.Logger) *Normalizer {
	if log == nil {
		log = logrus.New()
	}
	if opts.PriceScale <= 0 {
		opts.PriceScale = 100
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.Equipment == "" {
		opts.Equipment = EquipmentEquipped
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Normalizer{
		raw:   raw,
		opts:  opts,
		scale: decimal.NewFromInt(opts.PriceScale),
		log:   logger.NewPipelineLogger(log).WithStage("transform"),
	}
}

type readResult struct {
	key  rawstore.Key
	game *gamePayload
	err  error
}

// merged accumulates relations keyed by natural key.
type merged struct {
	events       map[string]models.Event
	participants map[models.ParticipantKey]models.Participant
	outcomes     map[models.ParticipantKey]models.Outcome
	quotes       map[models.QuoteKey]models.MarketQuote
}

// Transform reads every game capture of date and returns its relations.
// It fails with models.ErrNoRawData when the date has no usable capture.
func (n *Normalizer) Transform(ctx context.Context, date string) (*models.Relations, error) {
	started := time.Now()

	keys, err := n.raw.List(ctx, rawstore.CategoryGames, date)
	if err != nil {
		return nil, fmt.Errorf("list raw captures for %s: %w", date, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoRawData, date)
	}

	results, err := n.readAll(ctx, keys)
	if err != nil {
		return nil, err
	}

	m := &merged{
		events:       make(map[string]models.Event),
		participants: make(map[models.ParticipantKey]models.Participant),
		outcomes:     make(map[models.ParticipantKey]models.Outcome),
		quotes:       make(map[models.QuoteKey]models.MarketQuote),
	}

	usable := 0
	for _, res := range results {
		err := res.err
		if err == nil {
			err = n.mergeFile(date, res.key, res.game, m)
		}
		metrics.RecordTransformFile(err)
		if err != nil {
			n.log.LogFileSkipped(date, res.key.Path(), err)
			continue
		}
		usable++
	}
	if usable == 0 {
		return nil, fmt.Errorf("%w: all %d captures for %s were malformed", models.ErrNoRawData, len(keys), date)
	}

	rel := m.relations(date)
	if err := rel.CheckKeys(); err != nil {
		return nil, err
	}

	n.log.LogStageCompleted(date, rel.Counts(), time.Since(started))
	return rel, nil
}

// readAll fetches and decodes captures in parallel. Per-file failures are
// kept in the result; only cancellation aborts.
func (n *Normalizer) readAll(ctx context.Context, keys []rawstore.Key) ([]readResult, error) {
	results := make([]readResult, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.opts.Parallelism)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			results[i].key = key
			data, err := n.raw.Get(gctx, key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i].err = err
				return nil
			}
			game, err := decodeGame(data)
			if err != nil {
				results[i].err = fmt.Errorf("%w: %v", models.ErrMalformedCapture, err)
				return nil
			}
			results[i].game = game
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mergeFile folds one capture into m. Bad races and starts are logged and
// skipped; an error means the file as a whole cannot be used.
func (n *Normalizer) mergeFile(date string, key rawstore.Key, game *gamePayload, m *merged) error {
	pair, err := pairTurnover(game, n.scale)
	if err != nil {
		return fmt.Errorf("%w: tvilling turnover: %v", models.ErrMalformedCapture, err)
	}

	for i, raw := range game.Races {
		race, ok, err := decodeRace(raw)
		if err != nil {
			n.log.LogRecordSkipped(date, key.Path(), fmt.Sprintf("races[%d]", i), fmt.Errorf("%w: %v", models.ErrMalformedCapture, err))
			continue
		}
		if !ok || !keepRace(race, date, n.opts.Region) {
			continue
		}

		ev, err := extractEvent(race, date, n.opts.Region, n.opts.Location)
		if err != nil {
			n.log.LogRecordSkipped(date, key.Path(), race.ID.value(), err)
			continue
		}
		m.events[ev.EventID] = ev

		withResult := populated(race.Result)
		for j := range race.Starts {
			start := &race.Starts[j]

			p, err := extractParticipant(ev.EventID, start, n.opts.Equipment)
			if err != nil {
				n.log.LogRecordSkipped(date, key.Path(), ev.EventID, err)
				continue
			}
			m.participants[p.Key()] = p

			if withResult {
				o, ok, err := extractOutcome(ev.EventID, start, n.scale)
				if err != nil {
					n.log.LogRecordSkipped(date, key.Path(), ev.EventID, err)
				} else if ok {
					m.outcomes[o.Key()] = o
				}
			}

			q, err := extractQuote(&ev, &p, start, key.CapturedAt, pair, n.scale)
			if err != nil {
				n.log.LogRecordSkipped(date, key.Path(), ev.EventID, err)
				continue
			}
			if q != nil {
				m.quotes[q.Key()] = *q
			}
		}
	}
	return nil
}

func (m *merged) relations(date string) *models.Relations {
	rel := &models.Relations{
		Date:         date,
		Events:       make([]models.Event, 0, len(m.events)),
		Participants: make([]models.Participant, 0, len(m.participants)),
		Outcomes:     make([]models.Outcome, 0, len(m.outcomes)),
		Quotes:       make([]models.MarketQuote, 0, len(m.quotes)),
	}
	for _, e := range m.events {
		rel.Events = append(rel.Events, e)
	}
	for _, p := range m.participants {
		rel.Participants = append(rel.Participants, p)
	}
	for _, o := range m.outcomes {
		rel.Outcomes = append(rel.Outcomes, o)
	}
	for _, q := range m.quotes {
		rel.Quotes = append(rel.Quotes, q)
	}
	rel.Sort()
	return rel
}
