package aggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/racecapture/internal/models"
)

func relationsFixture() *models.Relations {
	return &models.Relations{
		Date: "2026-02-05",
		Events: []models.Event{
			{EventID: "2026-02-05_6_2", TrackName: "Åby"},
			{EventID: "2026-02-05_6_1", TrackName: "Åby"},
		},
		Participants: []models.Participant{
			{EventID: "2026-02-05_6_1", StartNumber: 3, HorseID: "h3", HorseName: "Charlie"},
			{EventID: "2026-02-05_6_1", StartNumber: 1, HorseID: "h1", HorseName: "Alpha"},
			{EventID: "2026-02-05_6_1", StartNumber: 2, HorseID: "h2", HorseName: "Bravo"},
			{EventID: "2026-02-05_6_2", StartNumber: 1, HorseID: "h4", HorseName: "Delta"},
		},
		Outcomes: []models.Outcome{
			{EventID: "2026-02-05_6_1", HorseID: "h1", StartNumber: 1},
			{EventID: "2026-02-05_6_1", HorseID: "h2", StartNumber: 2, Withdrawn: true},
			{EventID: "2026-02-05_6_1", HorseID: "h3", StartNumber: 3},
		},
	}
}

func TestBuildDailySummary(t *testing.T) {
	rows := BuildDailySummary(relationsFixture())
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "2026-02-05_6_1", first.EventID)
	assert.Equal(t, 3, first.NHorses)
	assert.Equal(t, 1, first.NScratched)
	assert.Equal(t, []string{"Bravo"}, first.ScratchedList)
	assert.Equal(t, []string{"Alpha", "Charlie"}, first.HorseList)

	// Outcomes exist for the date, so an event without any lists no runners.
	second := rows[1]
	assert.Equal(t, 1, second.NHorses)
	assert.Empty(t, second.HorseList)
}

func TestBuildDailySummaryBeforeResults(t *testing.T) {
	rel := relationsFixture()
	rel.Outcomes = nil

	rows := BuildDailySummary(rel)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, rows[0].HorseList)
	assert.Zero(t, rows[0].NScratched)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	rows := BuildDailySummary(relationsFixture())

	path, err := WriteCSV(dir, "2026-02-05", rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "daily_summary_2026-02-05.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"date,track_name,race_id,n_horses,n_scratched,scratched_list,horse_list\n"+
			"2026-02-05,Åby,2026-02-05_6_1,3,1,Bravo,\"Alpha, Charlie\"\n"+
			"2026-02-05,Åby,2026-02-05_6_2,1,0,,\n",
		string(data))

	// Rewriting replaces rather than appends.
	_, err = WriteCSV(dir, "2026-02-05", rows[:1])
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "2026-02-05_6_2")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteWorkbook(dir, "2026-02-05", BuildDailySummary(relationsFixture()))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, summaryHeader, rows[0])
	assert.Equal(t, "Alpha, Charlie", rows[1][6])
	assert.Equal(t, "3", rows[1][3])
}
