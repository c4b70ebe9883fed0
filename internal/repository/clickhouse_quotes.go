package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/yourusername/racecapture/internal/models"
)

// batchConn is the part of a ClickHouse connection the quote sink uses.
type batchConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
}

// ClickHouseQuoteSink mirrors the market quote series into ClickHouse for
// analytics. Only quotes are written; the other relations are ignored.
type ClickHouseQuoteSink struct {
	conn batchConn
}

// NewClickHouseQuoteSink creates a new ClickHouseQuoteSink.
func NewClickHouseQuoteSink(conn batchConn) *ClickHouseQuoteSink {
	return &ClickHouseQuoteSink{conn: conn}
}

// Compile-time interface check.
var _ RelationWriter = (*ClickHouseQuoteSink)(nil)

// ReplaceDate drops the date's partition rows and inserts the new series.
func (s *ClickHouseQuoteSink) ReplaceDate(ctx context.Context, rel *models.Relations) error {
	day, err := time.Parse(dateLayout, rel.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", rel.Date, err)
	}

	if err := s.conn.Exec(ctx, "ALTER TABLE market_quotes DELETE WHERE date = ? SETTINGS mutations_sync = 1", day); err != nil {
		return fmt.Errorf("clear market quotes: %w", err)
	}
	if len(rel.Quotes) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_quotes (
			date, event_id, horse_id, start_number, captured_at, minutes_to_start,
			win_odds, place_odds, win_turnover, place_turnover, pair_turnover
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i := range rel.Quotes {
		if err := batch.Append(quoteRow(day, &rel.Quotes[i])...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// quoteRow maps a quote to the market_quotes column order.
func quoteRow(day time.Time, q *models.MarketQuote) []any {
	return []any{
		day,
		q.EventID,
		q.HorseID,
		uint16(q.StartNumber),
		q.CapturedAt.UTC(),
		q.MinutesToStart,
		nullableDecimal(q.WinOdds),
		nullableDecimal(q.PlaceOdds),
		q.WinTurnover,
		q.PlaceTurnover,
		q.PairTurnover,
	}
}

func nullableDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
