package models

import "time"

// FeatureRow is one model-ready row per (event, participant).
// Label fields are nil when the outcome is not known.
type FeatureRow struct {
	EventID     string    `db:"event_id" json:"race_id"`
	HorseID     string    `db:"horse_id" json:"horse_id"`
	HorseName   string    `db:"horse_name" json:"horse_name"`
	Date        string    `db:"date" json:"date"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	StartNumber int       `db:"start_number" json:"start_number"`

	FinishOrder *int     `db:"finish_order" json:"finish_order"`
	TargetWin   *int     `db:"target_win" json:"target_win"`
	FinalOdds   *float64 `db:"final_odds" json:"final_odds"`

	PostPosition       int     `db:"post_position" json:"post_position"`
	Distance           int     `db:"distance" json:"distance"`
	Age                *int    `db:"age" json:"age"`
	HistoryStarts      int     `db:"horse_history_starts" json:"horse_history_starts"`
	HistoryWins        int     `db:"horse_history_wins" json:"horse_history_wins"`
	HistoryTop3        int     `db:"horse_history_top3" json:"horse_history_top3"`
	HistoryWinRate     float64 `db:"horse_history_win_rate" json:"horse_history_win_rate"`
	HistoryPlaceRate   float64 `db:"horse_history_place_rate" json:"horse_history_place_rate"`
	ShoesFront         int     `db:"horse_shoes_front" json:"horse_shoes_front"`
	ShoesBack          int     `db:"horse_shoes_back" json:"horse_shoes_back"`
	SexEncoded         int     `db:"sex_encoded" json:"sex_encoded"`
	SulkyTypeEncoded   int     `db:"sulky_type_encoded" json:"sulky_type_encoded"`
	StartMethodEncoded int     `db:"start_method_encoded" json:"start_method_encoded"`
	SportEncoded       int     `db:"sport_encoded" json:"sport_encoded"`
	TrackIDEncoded     int     `db:"track_id_encoded" json:"track_id_encoded"`
	Month              int     `db:"month" json:"month"`
	DayOfWeek          int     `db:"day_of_week" json:"day_of_week"`
	IsWeekend          int     `db:"is_weekend" json:"is_weekend"`

	OddsDropPercentage float64  `db:"odds_drop_percentage" json:"odds_drop_percentage"`
	QuoteCount         int      `db:"quote_count" json:"quote_count"`
	Odds5m             *float64 `db:"odds_5m" json:"odds_5m"`
	Odds30m            *float64 `db:"odds_30m" json:"odds_30m"`
}
