package transform

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/racecapture/internal/models"
)

// pairTurnover returns the game-level tvilling turnover, which the source
// reports once per game rather than per start.
func pairTurnover(g *gamePayload, scale decimal.Decimal) (decimal.Decimal, error) {
	pool, ok := g.Pools["tvilling"]
	if !ok {
		return decimal.Zero, nil
	}
	v, err := scaled(pool.Turnover, scale)
	if err != nil || v == nil {
		return decimal.Zero, err
	}
	return *v, nil
}

// extractQuote builds the quote of one start at the file's capture time.
// It returns nil when the start carries neither a win nor a place price.
func extractQuote(ev *models.Event, p *models.Participant, start *startPayload, capturedAt time.Time, pair, scale decimal.Decimal) (*models.MarketQuote, error) {
	if start.Pools == nil {
		return nil, nil
	}

	q := &models.MarketQuote{
		EventID:        ev.EventID,
		HorseID:        p.HorseID,
		StartNumber:    p.StartNumber,
		CapturedAt:     capturedAt,
		MinutesToStart: minutesBetween(capturedAt, ev.StartTime),
		PairTurnover:   pair,
	}

	if win := start.Pools.Vinnare; win != nil && nonZero(win.Odds) {
		odds, err := scaled(win.Odds, scale)
		if err != nil {
			return nil, err
		}
		q.WinOdds = odds
		if q.WinTurnover, err = turnover(win, scale); err != nil {
			return nil, err
		}
	}
	if place := start.Pools.Plats; place != nil && nonZero(place.MinOdds) {
		odds, err := scaled(place.MinOdds, scale)
		if err != nil {
			return nil, err
		}
		q.PlaceOdds = odds
		if q.PlaceTurnover, err = turnover(place, scale); err != nil {
			return nil, err
		}
	}

	if q.WinOdds == nil && q.PlaceOdds == nil {
		return nil, nil
	}
	return q, nil
}

func turnover(pool *poolPayload, scale decimal.Decimal) (decimal.Decimal, error) {
	v, err := scaled(pool.Turnover, scale)
	if err != nil || v == nil {
		return decimal.Zero, err
	}
	return *v, nil
}

func nonZero(n *json.Number) bool {
	if n == nil {
		return false
	}
	d, err := decimal.NewFromString(n.String())
	return err == nil && !d.IsZero()
}

// minutesBetween returns start minus at in minutes, rounded to two decimals.
func minutesBetween(at, start time.Time) float64 {
	return math.Round(start.Sub(at).Minutes()*100) / 100
}
