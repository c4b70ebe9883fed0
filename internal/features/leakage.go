package features

import (
	"fmt"

	"github.com/yourusername/racecapture/internal/models"
)

// LeakageError describes a row whose history disagrees with a brute-force
// recount over strictly earlier outcomes.
type LeakageError struct {
	EventID  string
	HorseID  string
	Got      History
	Expected History
}

func (e *LeakageError) Error() string {
	return fmt.Sprintf("%s: %s/%s %s", models.ErrInvariantViolation, e.EventID, e.HorseID, e.Detail())
}

// Detail renders the mismatch.
func (e *LeakageError) Detail() string {
	return fmt.Sprintf("history %+v, expected %+v", e.Got, e.Expected)
}

// Unwrap lets errors.Is match models.ErrInvariantViolation.
func (e *LeakageError) Unwrap() error { return models.ErrInvariantViolation }

// VerifyNoLeakage recomputes every row's history from the outcomes in rels
// whose event started strictly before the row and compares. It is quadratic
// per entity and meant as an audit, not a feature path.
func VerifyNoLeakage(rows []models.FeatureRow, rels []*models.Relations) error {
	type prior struct {
		start   *models.Event
		outcome *models.Outcome
	}
	byHorse := make(map[string][]prior)
	for _, rel := range rels {
		events := make(map[string]*models.Event, len(rel.Events))
		for i := range rel.Events {
			events[rel.Events[i].EventID] = &rel.Events[i]
		}
		for i := range rel.Outcomes {
			o := &rel.Outcomes[i]
			ev, ok := events[o.EventID]
			if !ok || !o.Started() {
				continue
			}
			byHorse[o.HorseID] = append(byHorse[o.HorseID], prior{start: ev, outcome: o})
		}
	}

	for i := range rows {
		r := &rows[i]
		var want History
		for _, p := range byHorse[r.HorseID] {
			if !p.start.StartTime.Before(r.StartTime) {
				continue
			}
			rank := p.outcome.FinishOrder
			want.add(rank)
		}
		got := History{Starts: r.HistoryStarts, Wins: r.HistoryWins, Top3: r.HistoryTop3}
		if got != want || r.HistoryWinRate != want.WinRate() || r.HistoryPlaceRate != want.PlaceRate() {
			return &LeakageError{EventID: r.EventID, HorseID: r.HorseID, Got: got, Expected: want}
		}
	}
	return nil
}
