package features

import (
	"sort"
	"time"

	"github.com/yourusername/racecapture/internal/models"
)

// candidate is one (event, participant) row before feature computation.
type candidate struct {
	event       *models.Event
	participant *models.Participant
	outcome     *models.Outcome
	quotes      []models.MarketQuote
}

func (c *candidate) refTime() time.Time { return c.event.StartTime }

// started reports whether the row's outcome counts as a start.
func (c *candidate) started() bool {
	return c.outcome != nil && c.outcome.Started()
}

func (c *candidate) rank() *int {
	if c.outcome == nil || c.outcome.Withdrawn {
		return nil
	}
	return c.outcome.FinishOrder
}

// assemble left-joins participants with their outcome, event and quote
// series, then sorts by (date, start_time, event_id, start_number).
// Participants whose event is missing are dropped.
func assemble(rels []*models.Relations) []*candidate {
	var out []*candidate
	for _, rel := range rels {
		events := make(map[string]*models.Event, len(rel.Events))
		for i := range rel.Events {
			events[rel.Events[i].EventID] = &rel.Events[i]
		}
		outcomes := make(map[models.ParticipantKey]*models.Outcome, len(rel.Outcomes))
		for i := range rel.Outcomes {
			outcomes[rel.Outcomes[i].Key()] = &rel.Outcomes[i]
		}
		type seriesKey struct{ eventID, horseID string }
		series := make(map[seriesKey][]models.MarketQuote)
		for _, q := range rel.Quotes {
			k := seriesKey{q.EventID, q.HorseID}
			series[k] = append(series[k], q)
		}

		for i := range rel.Participants {
			p := &rel.Participants[i]
			ev, ok := events[p.EventID]
			if !ok {
				continue
			}
			out = append(out, &candidate{
				event:       ev,
				participant: p,
				outcome:     outcomes[p.Key()],
				quotes:      series[seriesKey{p.EventID, p.HorseID}],
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.event.Date != b.event.Date {
			return a.event.Date < b.event.Date
		}
		if !a.refTime().Equal(b.refTime()) {
			return a.refTime().Before(b.refTime())
		}
		if a.event.EventID != b.event.EventID {
			return a.event.EventID < b.event.EventID
		}
		return a.participant.StartNumber < b.participant.StartNumber
	})
	return out
}
