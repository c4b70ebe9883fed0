package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/yourusername/racecapture/internal/models"
)

// Mode selects between training and inference output.
type Mode string

const (
	ModeTrain     Mode = "train"
	ModeInference Mode = "inference"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTrain, ModeInference:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown feature mode %q", s)
	}
}

var (
	identifierColumns = []string{
		"race_id", "horse_id", "horse_name", "date", "start_time", "start_number",
	}
	labelColumns = []string{
		"finish_order", "target_win", "final_odds",
	}
	featureColumns = []string{
		"post_position", "distance", "age",
		"horse_history_starts", "horse_history_wins", "horse_history_top3",
		"horse_history_win_rate", "horse_history_place_rate",
		"horse_shoes_front", "horse_shoes_back",
		"sex_encoded", "sulky_type_encoded", "start_method_encoded", "sport_encoded", "track_id_encoded",
		"month", "day_of_week", "is_weekend",
	}
	marketColumns = []string{
		"odds_drop_percentage", "quote_count", "odds_5m", "odds_30m",
	}
)

// Columns returns the output column set. Label columns exist only in train mode.
func Columns(mode Mode) []string {
	cols := append([]string{}, identifierColumns...)
	if mode == ModeTrain {
		cols = append(cols, labelColumns...)
	}
	cols = append(cols, featureColumns...)
	return append(cols, marketColumns...)
}

// WriteCSV writes rows with the explicit header of Columns(mode).
func WriteCSV(w io.Writer, mode Mode, rows []models.FeatureRow) error {
	cols := Columns(mode)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for i := range rows {
		for j, col := range cols {
			record[j] = columnValue(&rows[i], col)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnValue(r *models.FeatureRow, col string) string {
	switch col {
	case "race_id":
		return r.EventID
	case "horse_id":
		return r.HorseID
	case "horse_name":
		return r.HorseName
	case "date":
		return r.Date
	case "start_time":
		return r.StartTime.Format(time.RFC3339)
	case "start_number":
		return strconv.Itoa(r.StartNumber)
	case "finish_order":
		return optInt(r.FinishOrder)
	case "target_win":
		return optInt(r.TargetWin)
	case "final_odds":
		return optFloat(r.FinalOdds)
	case "post_position":
		return strconv.Itoa(r.PostPosition)
	case "distance":
		return strconv.Itoa(r.Distance)
	case "age":
		return optInt(r.Age)
	case "horse_history_starts":
		return strconv.Itoa(r.HistoryStarts)
	case "horse_history_wins":
		return strconv.Itoa(r.HistoryWins)
	case "horse_history_top3":
		return strconv.Itoa(r.HistoryTop3)
	case "horse_history_win_rate":
		return formatFloat(r.HistoryWinRate)
	case "horse_history_place_rate":
		return formatFloat(r.HistoryPlaceRate)
	case "horse_shoes_front":
		return strconv.Itoa(r.ShoesFront)
	case "horse_shoes_back":
		return strconv.Itoa(r.ShoesBack)
	case "sex_encoded":
		return strconv.Itoa(r.SexEncoded)
	case "sulky_type_encoded":
		return strconv.Itoa(r.SulkyTypeEncoded)
	case "start_method_encoded":
		return strconv.Itoa(r.StartMethodEncoded)
	case "sport_encoded":
		return strconv.Itoa(r.SportEncoded)
	case "track_id_encoded":
		return strconv.Itoa(r.TrackIDEncoded)
	case "month":
		return strconv.Itoa(r.Month)
	case "day_of_week":
		return strconv.Itoa(r.DayOfWeek)
	case "is_weekend":
		return strconv.Itoa(r.IsWeekend)
	case "odds_drop_percentage":
		return formatFloat(r.OddsDropPercentage)
	case "quote_count":
		return strconv.Itoa(r.QuoteCount)
	case "odds_5m":
		return optFloat(r.Odds5m)
	case "odds_30m":
		return optFloat(r.Odds30m)
	default:
		return ""
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
