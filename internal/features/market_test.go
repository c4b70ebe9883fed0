package features

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/models"
)

func quote(start time.Time, minutesBefore float64, win string) models.MarketQuote {
	q := models.MarketQuote{
		EventID:        "R1",
		HorseID:        "h1",
		CapturedAt:     start.Add(-time.Duration(minutesBefore * float64(time.Minute))),
		MinutesToStart: minutesBefore,
	}
	if win != "" {
		d := decimal.RequireFromString(win)
		q.WinOdds = &d
	}
	return q
}

func TestComputeMarket(t *testing.T) {
	start := time.Date(2026, 2, 5, 13, 0, 0, 0, time.UTC)
	quotes := []models.MarketQuote{
		quote(start, 5.5, "3.0"),
		quote(start, 60, "5.0"),
		quote(start, 31, "4.5"),
		quote(start, 28, "4.4"),
		quote(start, 4.5, "3.2"),
		quote(start, 1, ""),
		quote(start, -2, "2.0"),
	}

	m := computeMarket(quotes, start)
	assert.Equal(t, 5, m.quoteCount)
	assert.InDelta(t, (5.0-3.2)/5.0, m.oddsDrop, 1e-9)
	require.NotNil(t, m.odds5m)
	assert.Equal(t, 3.0, *m.odds5m, "5.5 and 4.5 tie, the earlier capture wins")
	require.NotNil(t, m.odds30m)
	assert.Equal(t, 4.5, *m.odds30m)
}

func TestComputeMarketWithoutQuotes(t *testing.T) {
	start := time.Date(2026, 2, 5, 13, 0, 0, 0, time.UTC)

	m := computeMarket(nil, start)
	assert.Zero(t, m.oddsDrop)
	assert.Zero(t, m.quoteCount)
	assert.Nil(t, m.odds5m)
	assert.Nil(t, m.odds30m)

	m = computeMarket([]models.MarketQuote{quote(start, 45, "4.0")}, start)
	assert.Zero(t, m.oddsDrop)
	assert.Equal(t, 1, m.quoteCount)
	assert.Nil(t, m.odds5m)
}
