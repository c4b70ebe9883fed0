package models

import (
	"fmt"
	"sort"
)

// Relations is the normalized output of one logical date.
type Relations struct {
	Date         string
	Events       []Event
	Participants []Participant
	Outcomes     []Outcome
	Quotes       []MarketQuote
}

// Counts returns row counts per relation
func (r *Relations) Counts() map[string]int {
	return map[string]int{
		"events":        len(r.Events),
		"participants":  len(r.Participants),
		"outcomes":      len(r.Outcomes),
		"market_quotes": len(r.Quotes),
	}
}

// Sort puts every relation into its canonical order.
func (r *Relations) Sort() {
	sort.SliceStable(r.Events, func(i, j int) bool {
		a, b := r.Events[i], r.Events[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.EventID < b.EventID
	})
	sort.SliceStable(r.Participants, func(i, j int) bool {
		a, b := r.Participants[i], r.Participants[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.StartNumber < b.StartNumber
	})
	sort.SliceStable(r.Outcomes, func(i, j int) bool {
		a, b := r.Outcomes[i], r.Outcomes[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.StartNumber < b.StartNumber
	})
	sort.SliceStable(r.Quotes, func(i, j int) bool {
		a, b := r.Quotes[i], r.Quotes[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.HorseID != b.HorseID {
			return a.HorseID < b.HorseID
		}
		return a.CapturedAt.Before(b.CapturedAt)
	})
}

// CheckKeys returns ErrInvariantViolation if a natural key occurs twice.
func (r *Relations) CheckKeys() error {
	events := make(map[string]bool, len(r.Events))
	for _, e := range r.Events {
		if events[e.EventID] {
			return fmt.Errorf("%w: duplicate event %s", ErrInvariantViolation, e.EventID)
		}
		events[e.EventID] = true
	}
	participants := make(map[ParticipantKey]bool, len(r.Participants))
	for i := range r.Participants {
		k := r.Participants[i].Key()
		if participants[k] {
			return fmt.Errorf("%w: duplicate participant %s/%d", ErrInvariantViolation, k.EventID, k.StartNumber)
		}
		participants[k] = true
	}
	outcomes := make(map[ParticipantKey]bool, len(r.Outcomes))
	for i := range r.Outcomes {
		k := r.Outcomes[i].Key()
		if outcomes[k] {
			return fmt.Errorf("%w: duplicate outcome %s/%d", ErrInvariantViolation, k.EventID, k.StartNumber)
		}
		outcomes[k] = true
	}
	quotes := make(map[QuoteKey]bool, len(r.Quotes))
	for i := range r.Quotes {
		k := r.Quotes[i].Key()
		if quotes[k] {
			return fmt.Errorf("%w: duplicate quote %s/%s@%s", ErrInvariantViolation, k.EventID, k.HorseID, k.CapturedAt)
		}
		quotes[k] = true
	}
	return nil
}
