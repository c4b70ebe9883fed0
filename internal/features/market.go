package features

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/racecapture/internal/models"
)

// Quote windows in minutes before start.
const (
	odds5mTarget  = 5.0
	odds5mLow     = 3.0
	odds5mHigh    = 7.0
	odds30mTarget = 30.0
	odds30mLow    = 25.0
	odds30mHigh   = 35.0
)

type marketFeatures struct {
	oddsDrop   float64
	quoteCount int
	odds5m     *float64
	odds30m    *float64
}

type pricedQuote struct {
	capturedAt time.Time
	minutes    float64
	win        float64
}

// computeMarket derives the market trend from priced quotes captured strictly
// before start. Without such quotes every value is zero or nil.
func computeMarket(quotes []models.MarketQuote, start time.Time) marketFeatures {
	var priced []pricedQuote
	for _, q := range quotes {
		if !q.CapturedAt.Before(start) || q.WinOdds == nil || !q.WinOdds.IsPositive() {
			continue
		}
		priced = append(priced, pricedQuote{
			capturedAt: q.CapturedAt,
			minutes:    q.MinutesToStart,
			win:        q.WinOdds.InexactFloat64(),
		})
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].capturedAt.Before(priced[j].capturedAt)
	})

	m := marketFeatures{quoteCount: len(priced)}
	if len(priced) == 0 {
		return m
	}
	first, last := priced[0].win, priced[len(priced)-1].win
	m.oddsDrop = (first - last) / first
	m.odds5m = closest(priced, odds5mTarget, odds5mLow, odds5mHigh)
	m.odds30m = closest(priced, odds30mTarget, odds30mLow, odds30mHigh)
	return m
}

// closest picks the price whose minutes-to-start is nearest target within
// [low, high]. Ties go to the earlier capture.
func closest(priced []pricedQuote, target, low, high float64) *float64 {
	best := -1
	bestDist := math.Inf(1)
	for i, q := range priced {
		if q.minutes < low || q.minutes > high {
			continue
		}
		if d := math.Abs(q.minutes - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return nil
	}
	v := priced[best].win
	return &v
}
