package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/racecapture/internal/models"
)

// Relation file names within a date directory
const (
	EventsFile       = "events.csv"
	ParticipantsFile = "participants.csv"
	OutcomesFile     = "outcomes.csv"
	QuotesFile       = "market_quotes.csv"
)

var (
	eventHeader = []string{
		"date", "event_id", "region", "track_id", "track_name", "race_number",
		"distance", "start_method", "sport", "start_time", "status",
	}
	participantHeader = []string{
		"event_id", "start_number", "horse_id", "horse_name", "age", "sex", "money",
		"driver_id", "driver_name", "trainer_name", "post_position", "distance",
		"shoes_front", "shoes_back", "sulky_type", "sulky_colour",
	}
	outcomeHeader = []string{
		"event_id", "horse_id", "start_number", "withdrawn", "place", "finish_order", "final_odds",
	}
	quoteHeader = []string{
		"event_id", "horse_id", "start_number", "captured_at", "minutes_to_start",
		"win_odds", "place_odds", "win_turnover", "place_turnover", "pair_turnover",
	}
)

// CSVRelationRepository stores relations as CSV files under
// {root}/{date}/. It is the canonical store read by later stages.
type CSVRelationRepository struct {
	root string
	loc  *time.Location
}

// NewCSVRelationRepository creates a repository rooted at root
func NewCSVRelationRepository(root string, loc *time.Location) *CSVRelationRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVRelationRepository{root: root, loc: loc}
}

// ReplaceDate writes all four relations to a fresh directory and swaps it in
// place of the previous snapshot for the date.
func (r *CSVRelationRepository) ReplaceDate(ctx context.Context, rel *models.Relations) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.root, err)
	}

	staging, err := os.MkdirTemp(r.root, ".staging-"+rel.Date+"-")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	writes := []struct {
		name   string
		header []string
		rows   func(w *csv.Writer) error
	}{
		{EventsFile, eventHeader, func(w *csv.Writer) error { return writeEvents(w, rel) }},
		{ParticipantsFile, participantHeader, func(w *csv.Writer) error { return writeParticipants(w, rel) }},
		{OutcomesFile, outcomeHeader, func(w *csv.Writer) error { return writeOutcomes(w, rel) }},
		{QuotesFile, quoteHeader, func(w *csv.Writer) error { return writeQuotes(w, rel) }},
	}
	for _, wr := range writes {
		if err := writeCSVFile(filepath.Join(staging, wr.name), wr.header, wr.rows); err != nil {
			return err
		}
	}

	target := r.dateDir(rel.Date)
	retired := ""
	if _, err := os.Stat(target); err == nil {
		retired = staging + ".old"
		if err := os.Rename(target, retired); err != nil {
			return fmt.Errorf("failed to retire %s: %w", target, err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if retired != "" {
			_ = os.Rename(retired, target)
		}
		return fmt.Errorf("failed to publish %s: %w", target, err)
	}
	if retired != "" {
		_ = os.RemoveAll(retired)
	}
	return nil
}

// LoadDate reads the relations of one date
func (r *CSVRelationRepository) LoadDate(ctx context.Context, date string) (*models.Relations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := r.dateDir(date)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no relations for %s", models.ErrMissingPrerequisite, date)
		}
		return nil, err
	}

	rel := &models.Relations{Date: date}
	if err := readCSVFile(filepath.Join(dir, EventsFile), func(rec *csvRecord) error {
		rel.Events = append(rel.Events, models.Event{
			EventID:     rec.str("event_id"),
			Date:        rec.str("date"),
			Region:      rec.str("region"),
			TrackID:     rec.str("track_id"),
			TrackName:   rec.str("track_name"),
			RaceNumber:  rec.int("race_number"),
			Distance:    rec.intPtr("distance"),
			StartMethod: rec.str("start_method"),
			Sport:       rec.str("sport"),
			StartTime:   rec.time("start_time", r.loc),
			Status:      rec.str("status"),
		})
		return rec.err
	}); err != nil {
		return nil, err
	}
	if err := readCSVFile(filepath.Join(dir, ParticipantsFile), func(rec *csvRecord) error {
		rel.Participants = append(rel.Participants, models.Participant{
			EventID:      rec.str("event_id"),
			StartNumber:  rec.int("start_number"),
			HorseID:      rec.str("horse_id"),
			HorseName:    rec.str("horse_name"),
			Age:          rec.intPtr("age"),
			Sex:          rec.str("sex"),
			Money:        rec.int64Ptr("money"),
			DriverID:     rec.str("driver_id"),
			DriverName:   rec.str("driver_name"),
			TrainerName:  rec.str("trainer_name"),
			PostPosition: rec.intPtr("post_position"),
			Distance:     rec.intPtr("distance"),
			ShoesFront:   rec.boolPtr("shoes_front"),
			ShoesBack:    rec.boolPtr("shoes_back"),
			SulkyType:    rec.str("sulky_type"),
			SulkyColour:  rec.str("sulky_colour"),
		})
		return rec.err
	}); err != nil {
		return nil, err
	}
	if err := readCSVFile(filepath.Join(dir, OutcomesFile), func(rec *csvRecord) error {
		rel.Outcomes = append(rel.Outcomes, models.Outcome{
			EventID:     rec.str("event_id"),
			HorseID:     rec.str("horse_id"),
			StartNumber: rec.int("start_number"),
			Withdrawn:   rec.bool("withdrawn"),
			Place:       rec.intPtr("place"),
			FinishOrder: rec.intPtr("finish_order"),
			FinalOdds:   rec.decimalPtr("final_odds"),
		})
		return rec.err
	}); err != nil {
		return nil, err
	}
	if err := readCSVFile(filepath.Join(dir, QuotesFile), func(rec *csvRecord) error {
		rel.Quotes = append(rel.Quotes, models.MarketQuote{
			EventID:        rec.str("event_id"),
			HorseID:        rec.str("horse_id"),
			StartNumber:    rec.int("start_number"),
			CapturedAt:     rec.time("captured_at", r.loc),
			MinutesToStart: rec.float("minutes_to_start"),
			WinOdds:        rec.decimalPtr("win_odds"),
			PlaceOdds:      rec.decimalPtr("place_odds"),
			WinTurnover:    rec.decimal("win_turnover"),
			PlaceTurnover:  rec.decimal("place_turnover"),
			PairTurnover:   rec.decimal("pair_turnover"),
		})
		return rec.err
	}); err != nil {
		return nil, err
	}

	return rel, nil
}

// LoadRange loads every written date in [from, to]. Dates without relations
// are skipped; an empty result is models.ErrMissingPrerequisite.
func (r *CSVRelationRepository) LoadRange(ctx context.Context, from, to string) ([]*models.Relations, error) {
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

func (r *CSVRelationRepository) dateDir(date string) string {
	return filepath.Join(r.root, date)
}

// DateRange lists the dates from..to inclusive (YYYY-MM-DD).
func DateRange(from, to string) ([]string, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("to date %s is before from date %s", to, from)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

func writeCSVFile(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header of %s: %w", path, err)
	}
	if err := rows(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readCSVFile(path string, fn func(rec *csvRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", models.ErrMissingPrerequisite, path)
		}
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	index := newHeaderIndex(header)

	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(&csvRecord{index: index, fields: fields}); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

func writeEvents(w *csv.Writer, rel *models.Relations) error {
	for _, e := range rel.Events {
		if err := w.Write([]string{
			e.Date, e.EventID, e.Region, e.TrackID, e.TrackName, fmtInt(e.RaceNumber),
			fmtIntPtr(e.Distance), e.StartMethod, e.Sport, fmtTime(e.StartTime), e.Status,
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeParticipants(w *csv.Writer, rel *models.Relations) error {
	for _, p := range rel.Participants {
		if err := w.Write([]string{
			p.EventID, fmtInt(p.StartNumber), p.HorseID, p.HorseName, fmtIntPtr(p.Age), p.Sex, fmtInt64Ptr(p.Money),
			p.DriverID, p.DriverName, p.TrainerName, fmtIntPtr(p.PostPosition), fmtIntPtr(p.Distance),
			fmtBoolPtr(p.ShoesFront), fmtBoolPtr(p.ShoesBack), p.SulkyType, p.SulkyColour,
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeOutcomes(w *csv.Writer, rel *models.Relations) error {
	for _, o := range rel.Outcomes {
		if err := w.Write([]string{
			o.EventID, o.HorseID, fmtInt(o.StartNumber), fmtBool(o.Withdrawn),
			fmtIntPtr(o.Place), fmtIntPtr(o.FinishOrder), fmtDecimalPtr(o.FinalOdds),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeQuotes(w *csv.Writer, rel *models.Relations) error {
	for _, q := range rel.Quotes {
		if err := w.Write([]string{
			q.EventID, q.HorseID, fmtInt(q.StartNumber), fmtTime(q.CapturedAt), fmtFloat(q.MinutesToStart),
			fmtDecimalPtr(q.WinOdds), fmtDecimalPtr(q.PlaceOdds),
			q.WinTurnover.String(), q.PlaceTurnover.String(), q.PairTurnover.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}
