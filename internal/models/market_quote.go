package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteKey identifies one observation in the quote series.
type QuoteKey struct {
	EventID    string
	HorseID    string
	CapturedAt time.Time
}

// MarketQuote is one priced observation of a participant at a capture time.
// Prices are in decimal odds; turnovers in currency units.
type MarketQuote struct {
	EventID        string           `db:"event_id" json:"event_id" validate:"required"`
	HorseID        string           `db:"horse_id" json:"horse_id" validate:"required"`
	StartNumber    int              `db:"start_number" json:"start_number"`
	CapturedAt     time.Time        `db:"captured_at" json:"captured_at" validate:"required"`
	MinutesToStart float64          `db:"minutes_to_start" json:"minutes_to_start"`
	WinOdds        *decimal.Decimal `db:"win_odds" json:"win_odds"`
	PlaceOdds      *decimal.Decimal `db:"place_odds" json:"place_odds"`
	WinTurnover    decimal.Decimal  `db:"win_turnover" json:"win_turnover"`
	PlaceTurnover  decimal.Decimal  `db:"place_turnover" json:"place_turnover"`
	PairTurnover   decimal.Decimal  `db:"pair_turnover" json:"pair_turnover"`
}

// Key returns the quote's series key
func (q *MarketQuote) Key() QuoteKey {
	return QuoteKey{EventID: q.EventID, HorseID: q.HorseID, CapturedAt: q.CapturedAt.UTC()}
}

// GetImpliedProbability returns the implied win probability, or 0 without a price
func (q *MarketQuote) GetImpliedProbability() float64 {
	if q.WinOdds == nil || !q.WinOdds.IsPositive() {
		return 0
	}
	p, _ := decimal.NewFromInt(1).Div(*q.WinOdds).Float64()
	return p
}
