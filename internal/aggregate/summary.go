// Package aggregate derives the per-event daily summary from normalized relations.
package aggregate

import (
	"sort"

	"github.com/yourusername/racecapture/internal/models"
)

// ListSeparator joins horse names in the list columns.
const ListSeparator = ", "

// BuildDailySummary produces one row per event, ordered by event id.
//
// horse_list holds the runners with a non-withdrawn outcome. When the date
// has no outcomes at all (results not yet published) it falls back to every
// participant.
func BuildDailySummary(rel *models.Relations) []models.DailySummary {
	participants := make(map[string][]models.Participant)
	for _, p := range rel.Participants {
		participants[p.EventID] = append(participants[p.EventID], p)
	}
	outcomes := make(map[models.ParticipantKey]models.Outcome, len(rel.Outcomes))
	for _, o := range rel.Outcomes {
		outcomes[o.Key()] = o
	}
	haveOutcomes := len(rel.Outcomes) > 0

	rows := make([]models.DailySummary, 0, len(rel.Events))
	for _, e := range rel.Events {
		runners := participants[e.EventID]
		sort.SliceStable(runners, func(i, j int) bool {
			return runners[i].StartNumber < runners[j].StartNumber
		})

		row := models.DailySummary{
			Date:          rel.Date,
			TrackName:     e.TrackName,
			EventID:       e.EventID,
			NHorses:       len(runners),
			ScratchedList: []string{},
			HorseList:     []string{},
		}
		for _, p := range runners {
			o, ok := outcomes[p.Key()]
			switch {
			case ok && o.Withdrawn:
				row.NScratched++
				row.ScratchedList = append(row.ScratchedList, p.HorseName)
			case ok, !haveOutcomes:
				row.HorseList = append(row.HorseList, p.HorseName)
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EventID < rows[j].EventID
	})
	return rows
}
