package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/racecapture/internal/database"
	"github.com/yourusername/racecapture/internal/models"
)

const dateLayout = "2006-01-02"

var (
	pgEventColumns = []string{
		"date", "event_id", "region", "track_id", "track_name", "race_number",
		"distance", "start_method", "sport", "start_time", "status",
	}
	pgParticipantColumns = []string{
		"date", "event_id", "start_number", "horse_id", "horse_name", "age", "sex", "money",
		"driver_id", "driver_name", "trainer_name", "post_position", "distance",
		"shoes_front", "shoes_back", "sulky_type", "sulky_colour",
	}
	pgOutcomeColumns = []string{
		"date", "event_id", "horse_id", "start_number", "withdrawn", "place", "finish_order", "final_odds",
	}
	pgQuoteColumns = []string{
		"date", "event_id", "horse_id", "start_number", "captured_at", "minutes_to_start",
		"win_odds", "place_odds", "win_turnover", "place_turnover", "pair_turnover",
	}
	pgFeatureColumns = []string{
		"mode", "date", "event_id", "start_number", "horse_id", "start_time",
		"finish_order", "target_win", "final_odds",
		"horse_history_starts", "horse_history_wins", "horse_history_top3",
		"horse_history_win_rate", "horse_history_place_rate",
		"odds_drop_percentage", "quote_count", "odds_5m", "odds_30m",
	}
)

// PostgresRelationRepository mirrors relations into PostgreSQL. Each date is
// replaced inside one transaction.
type PostgresRelationRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewPostgresRelationRepository creates a new relation repository
func NewPostgresRelationRepository(db *database.DB, loc *time.Location) *PostgresRelationRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresRelationRepository{db: db, loc: loc}
}

// ReplaceDate deletes the date's rows and bulk-copies the new snapshot
func (r *PostgresRelationRepository) ReplaceDate(ctx context.Context, rel *models.Relations) error {
	day, err := time.Parse(dateLayout, rel.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", rel.Date, err)
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, table := range []string{"events", "participants", "outcomes", "market_quotes"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE date = $1", day); err != nil {
				return fmt.Errorf("failed to clear %s for %s: %w", table, rel.Date, err)
			}
		}

		events := make([][]interface{}, len(rel.Events))
		for i, e := range rel.Events {
			events[i] = []interface{}{
				day, e.EventID, e.Region, e.TrackID, e.TrackName, e.RaceNumber,
				e.Distance, e.StartMethod, e.Sport, e.StartTime, e.Status,
			}
		}
		participants := make([][]interface{}, len(rel.Participants))
		for i, p := range rel.Participants {
			participants[i] = []interface{}{
				day, p.EventID, p.StartNumber, p.HorseID, p.HorseName, p.Age, p.Sex, p.Money,
				p.DriverID, p.DriverName, p.TrainerName, p.PostPosition, p.Distance,
				p.ShoesFront, p.ShoesBack, p.SulkyType, p.SulkyColour,
			}
		}
		outcomes := make([][]interface{}, len(rel.Outcomes))
		for i, o := range rel.Outcomes {
			outcomes[i] = []interface{}{
				day, o.EventID, o.HorseID, o.StartNumber, o.Withdrawn, o.Place, o.FinishOrder, floatPtr(o.FinalOdds),
			}
		}
		quotes := make([][]interface{}, len(rel.Quotes))
		for i, q := range rel.Quotes {
			quotes[i] = []interface{}{
				day, q.EventID, q.HorseID, q.StartNumber, q.CapturedAt, q.MinutesToStart,
				floatPtr(q.WinOdds), floatPtr(q.PlaceOdds),
				q.WinTurnover.InexactFloat64(), q.PlaceTurnover.InexactFloat64(), q.PairTurnover.InexactFloat64(),
			}
		}

		copies := []struct {
			table   string
			columns []string
			rows    [][]interface{}
		}{
			{"events", pgEventColumns, events},
			{"participants", pgParticipantColumns, participants},
			{"outcomes", pgOutcomeColumns, outcomes},
			{"market_quotes", pgQuoteColumns, quotes},
		}
		for _, c := range copies {
			if err := copyRows(ctx, tx, c.table, c.columns, c.rows); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadDate reads the mirrored relations of one date
func (r *PostgresRelationRepository) LoadDate(ctx context.Context, date string) (*models.Relations, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	rel := &models.Relations{Date: date}
	if rel.Events, err = r.loadEvents(ctx, day); err != nil {
		return nil, err
	}
	if len(rel.Events) == 0 {
		return nil, fmt.Errorf("%w: no relations for %s", models.ErrMissingPrerequisite, date)
	}
	if rel.Participants, err = r.loadParticipants(ctx, day); err != nil {
		return nil, err
	}
	if rel.Outcomes, err = r.loadOutcomes(ctx, day); err != nil {
		return nil, err
	}
	if rel.Quotes, err = r.loadQuotes(ctx, day); err != nil {
		return nil, err
	}
	rel.Sort()
	return rel, nil
}

// LoadRange loads every mirrored date in [from, to]
func (r *PostgresRelationRepository) LoadRange(ctx context.Context, from, to string) ([]*models.Relations, error) {
	dates, err := DateRange(from, to)
	if err != nil {
		return nil, err
	}

	var out []*models.Relations
	for _, date := range dates {
		rel, err := r.LoadDate(ctx, date)
		if err != nil {
			if isMissing(err) {
				continue
			}
			return nil, err
		}
		out = append(out, rel)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no relations between %s and %s", models.ErrMissingPrerequisite, from, to)
	}
	return out, nil
}

// ReplaceFeatureRows replaces the rows of every date present in rows for mode
func (r *PostgresRelationRepository) ReplaceFeatureRows(ctx context.Context, mode string, rows []models.FeatureRow) error {
	byDate := make(map[string][][]interface{})
	var order []string
	for _, f := range rows {
		if _, ok := byDate[f.Date]; !ok {
			order = append(order, f.Date)
		}
		day, err := time.Parse(dateLayout, f.Date)
		if err != nil {
			return fmt.Errorf("invalid feature row date %q: %w", f.Date, err)
		}
		byDate[f.Date] = append(byDate[f.Date], []interface{}{
			mode, day, f.EventID, f.StartNumber, f.HorseID, f.StartTime,
			f.FinishOrder, f.TargetWin, f.FinalOdds,
			f.HistoryStarts, f.HistoryWins, f.HistoryTop3,
			f.HistoryWinRate, f.HistoryPlaceRate,
			f.OddsDropPercentage, f.QuoteCount, f.Odds5m, f.Odds30m,
		})
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, date := range order {
			day, _ := time.Parse(dateLayout, date)
			if _, err := tx.Exec(ctx, "DELETE FROM feature_rows WHERE mode = $1 AND date = $2", mode, day); err != nil {
				return fmt.Errorf("failed to clear feature rows for %s: %w", date, err)
			}
			if err := copyRows(ctx, tx, "feature_rows", pgFeatureColumns, byDate[date]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRelationRepository) loadEvents(ctx context.Context, day time.Time) ([]models.Event, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT date, event_id, region, track_id, track_name, race_number,
		       distance, start_method, sport, start_time, status
		FROM events WHERE date = $1
		ORDER BY start_time, event_id
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var d time.Time
		if err := rows.Scan(&d, &e.EventID, &e.Region, &e.TrackID, &e.TrackName, &e.RaceNumber,
			&e.Distance, &e.StartMethod, &e.Sport, &e.StartTime, &e.Status); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Date = d.Format(dateLayout)
		e.StartTime = e.StartTime.In(r.loc)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PostgresRelationRepository) loadParticipants(ctx context.Context, day time.Time) ([]models.Participant, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT event_id, start_number, horse_id, horse_name, age, sex, money,
		       driver_id, driver_name, trainer_name, post_position, distance,
		       shoes_front, shoes_back, sulky_type, sulky_colour
		FROM participants WHERE date = $1
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.EventID, &p.StartNumber, &p.HorseID, &p.HorseName, &p.Age, &p.Sex, &p.Money,
			&p.DriverID, &p.DriverName, &p.TrainerName, &p.PostPosition, &p.Distance,
			&p.ShoesFront, &p.ShoesBack, &p.SulkyType, &p.SulkyColour); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *PostgresRelationRepository) loadOutcomes(ctx context.Context, day time.Time) ([]models.Outcome, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT event_id, horse_id, start_number, withdrawn, place, finish_order, final_odds
		FROM outcomes WHERE date = $1
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var o models.Outcome
		var odds *float64
		if err := rows.Scan(&o.EventID, &o.HorseID, &o.StartNumber, &o.Withdrawn, &o.Place, &o.FinishOrder, &odds); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.FinalOdds = decimalPtr(odds)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (r *PostgresRelationRepository) loadQuotes(ctx context.Context, day time.Time) ([]models.MarketQuote, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT event_id, horse_id, start_number, captured_at, minutes_to_start,
		       win_odds, place_odds, win_turnover, place_turnover, pair_turnover
		FROM market_quotes WHERE date = $1
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query market quotes: %w", err)
	}
	defer rows.Close()

	var quotes []models.MarketQuote
	for rows.Next() {
		var q models.MarketQuote
		var win, place *float64
		var winTurnover, placeTurnover, pairTurnover float64
		if err := rows.Scan(&q.EventID, &q.HorseID, &q.StartNumber, &q.CapturedAt, &q.MinutesToStart,
			&win, &place, &winTurnover, &placeTurnover, &pairTurnover); err != nil {
			return nil, fmt.Errorf("failed to scan market quote: %w", err)
		}
		q.CapturedAt = q.CapturedAt.In(r.loc)
		q.WinOdds = decimalPtr(win)
		q.PlaceOdds = decimalPtr(place)
		q.WinTurnover = decimal.NewFromFloat(winTurnover)
		q.PlaceTurnover = decimal.NewFromFloat(placeTurnover)
		q.PairTurnover = decimal.NewFromFloat(pairTurnover)
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	count, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", table, err)
	}
	if count != int64(len(rows)) {
		return fmt.Errorf("copied %d %s rows, expected %d", count, table, len(rows))
	}
	return nil
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
