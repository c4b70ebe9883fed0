package service

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/racecapture/internal/models"
)

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validRelations() *models.Relations {
	start := time.Date(2026, 2, 5, 14, 0, 0, 0, time.UTC)
	return &models.Relations{
		Date: "2026-02-05",
		Events: []models.Event{{
			EventID: "2026-02-05_6_1", Date: "2026-02-05", RaceNumber: 1,
			Distance: intPtr(2140), StartTime: start,
		}},
		Participants: []models.Participant{{
			EventID: "2026-02-05_6_1", StartNumber: 1, HorseID: "101", PostPosition: intPtr(1),
		}},
		Outcomes: []models.Outcome{{
			EventID: "2026-02-05_6_1", HorseID: "101", StartNumber: 1,
			FinishOrder: intPtr(1), FinalOdds: decPtr("2.5"),
		}},
		Quotes: []models.MarketQuote{{
			EventID: "2026-02-05_6_1", HorseID: "101", StartNumber: 1,
			CapturedAt: start.Add(-time.Hour), WinOdds: decPtr("2"),
		}},
	}
}

func TestRelationValidatorAcceptsCleanDay(t *testing.T) {
	assert.Empty(t, NewRelationValidator().Validate(validRelations()))
}

func TestRelationValidatorFindings(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(rel *models.Relations)
		shouldHave string
	}{
		{
			name:       "missing horse id",
			mutate:     func(rel *models.Relations) { rel.Participants[0].HorseID = "" },
			shouldHave: "HorseID failed required",
		},
		{
			name:       "start on another date",
			mutate:     func(rel *models.Relations) { rel.Events[0].StartTime = rel.Events[0].StartTime.AddDate(0, 0, 1) },
			shouldHave: "is not on 2026-02-05",
		},
		{
			name:       "non-positive distance",
			mutate:     func(rel *models.Relations) { rel.Events[0].Distance = intPtr(0) },
			shouldHave: "distance must be positive",
		},
		{
			name:       "orphan participant",
			mutate:     func(rel *models.Relations) { rel.Participants[0].EventID = "2026-02-05_6_9" },
			shouldHave: "references unknown event",
		},
		{
			name:       "final odds below one",
			mutate:     func(rel *models.Relations) { rel.Outcomes[0].FinalOdds = decPtr("0.25") },
			shouldHave: "final odds below 1",
		},
		{
			name:       "win odds below one",
			mutate:     func(rel *models.Relations) { rel.Quotes[0].WinOdds = decPtr("0.5") },
			shouldHave: "win odds below 1",
		},
		{
			name:       "negative turnover",
			mutate:     func(rel *models.Relations) { rel.Quotes[0].WinTurnover = decimal.NewFromInt(-5) },
			shouldHave: "negative turnover",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := validRelations()
			tt.mutate(rel)

			issues := NewRelationValidator().Validate(rel)
			assert.NotEmpty(t, issues)
			found := false
			for _, issue := range issues {
				if strings.Contains(issue, tt.shouldHave) {
					found = true
				}
			}
			assert.True(t, found, "expected issue containing %q, got %v", tt.shouldHave, issues)
		})
	}
}
