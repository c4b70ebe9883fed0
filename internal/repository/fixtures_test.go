package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/racecapture/internal/models"
)

var stockholm, _ = time.LoadLocation("Europe/Stockholm")

func ptr[T any](v T) *T {
	return &v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sampleRelations builds one event with two runners, one scratched, and a
// two-point quote series.
func sampleRelations(date string) *models.Relations {
	day, err := time.ParseInLocation("2006-01-02", date, stockholm)
	if err != nil {
		panic(err)
	}
	start := day.Add(13 * time.Hour)
	eventID := date + "_6_1"

	return &models.Relations{
		Date: date,
		Events: []models.Event{{
			EventID:     eventID,
			Date:        date,
			Region:      "SE",
			TrackID:     "6",
			TrackName:   "Åby, \"main\"",
			RaceNumber:  1,
			Distance:    ptr(2140),
			StartMethod: "auto",
			Sport:       "trot",
			StartTime:   start,
			Status:      "results",
		}},
		Participants: []models.Participant{
			{
				EventID:      eventID,
				StartNumber:  1,
				HorseID:      "h1",
				HorseName:    "Alpha",
				Age:          ptr(5),
				Sex:          "gelding",
				Money:        ptr(int64(125000)),
				DriverID:     "d1",
				DriverName:   "Erik Adielsson",
				TrainerName:  "Stefan Melander",
				PostPosition: ptr(1),
				Distance:     ptr(2140),
				ShoesFront:   ptr(true),
				ShoesBack:    ptr(false),
				SulkyType:    "Amerikansk",
			},
			{
				EventID:     eventID,
				StartNumber: 2,
				HorseID:     "h2",
				HorseName:   "Bravo",
				SulkyType:   "Vanlig",
			},
		},
		Outcomes: []models.Outcome{
			{EventID: eventID, HorseID: "h1", StartNumber: 1, Place: ptr(1), FinishOrder: ptr(1), FinalOdds: ptr(dec("3.45"))},
			{EventID: eventID, HorseID: "h2", StartNumber: 2, Withdrawn: true},
		},
		Quotes: []models.MarketQuote{
			{
				EventID:        eventID,
				HorseID:        "h1",
				StartNumber:    1,
				CapturedAt:     start.Add(-30 * time.Minute),
				MinutesToStart: 30,
				WinOdds:        ptr(dec("4.1")),
				PlaceOdds:      ptr(dec("1.3")),
				WinTurnover:    dec("15000"),
				PlaceTurnover:  dec("2000"),
				PairTurnover:   dec("45678"),
			},
			{
				EventID:        eventID,
				HorseID:        "h1",
				StartNumber:    1,
				CapturedAt:     start.Add(-5*time.Minute - 20*time.Second),
				MinutesToStart: 5.33,
				WinOdds:        ptr(dec("3.5")),
				WinTurnover:    dec("22000.5"),
				PairTurnover:   dec("45678"),
			},
		},
	}
}
