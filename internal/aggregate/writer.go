package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/racecapture/internal/models"
)

const sheetName = "daily_summary"

var summaryHeader = []string{
	"date", "track_name", "race_id", "n_horses", "n_scratched", "scratched_list", "horse_list",
}

// CSVPath returns gold/daily_summary_{date}.csv under goldDir.
func CSVPath(goldDir, date string) string {
	return filepath.Join(goldDir, "daily_summary_"+date+".csv")
}

// WorkbookPath returns gold/daily_summary_{date}.xlsx under goldDir.
func WorkbookPath(goldDir, date string) string {
	return filepath.Join(goldDir, "daily_summary_"+date+".xlsx")
}

func summaryRecord(r models.DailySummary) []string {
	return []string{
		r.Date,
		r.TrackName,
		r.EventID,
		strconv.Itoa(r.NHorses),
		strconv.Itoa(r.NScratched),
		strings.Join(r.ScratchedList, ListSeparator),
		strings.Join(r.HorseList, ListSeparator),
	}
}

// WriteCSV replaces the summary CSV for date and returns its path.
func WriteCSV(goldDir, date string, rows []models.DailySummary) (string, error) {
	if err := os.MkdirAll(goldDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", goldDir, err)
	}
	path := CSVPath(goldDir, date)

	tmp, err := os.CreateTemp(goldDir, ".daily_summary_"+date+"-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(summaryHeader); err != nil {
		tmp.Close()
		return "", err
	}
	for _, r := range rows {
		if err := w.Write(summaryRecord(r)); err != nil {
			tmp.Close()
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", path, err)
	}
	return path, nil
}

// WriteWorkbook writes the same rows as an xlsx workbook for reporting.
func WriteWorkbook(goldDir, date string, rows []models.DailySummary) (string, error) {
	if err := os.MkdirAll(goldDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", goldDir, err)
	}
	path := WorkbookPath(goldDir, date)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}
	if err := f.SetCellStyle(sheetName, "A1", "G1", bold); err != nil {
		return "", err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		values := []interface{}{
			r.Date,
			r.TrackName,
			r.EventID,
			r.NHorses,
			r.NScratched,
			strings.Join(r.ScratchedList, ListSeparator),
			strings.Join(r.HorseList, ListSeparator),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(sheetName, "F", "G", 60); err != nil {
		return "", err
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}
