package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/models"
)

func TestCSVRelationRepositoryRoundTrip(t *testing.T) {
	repo := NewCSVRelationRepository(t.TempDir(), stockholm)
	ctx := context.Background()
	want := sampleRelations("2026-02-05")

	require.NoError(t, repo.ReplaceDate(ctx, want))

	got, err := repo.LoadDate(ctx, "2026-02-05")
	require.NoError(t, err)

	require.Len(t, got.Events, 1)
	assert.Equal(t, want.Events[0].TrackName, got.Events[0].TrackName)
	assert.True(t, want.Events[0].StartTime.Equal(got.Events[0].StartTime))
	assert.Equal(t, 2140, *got.Events[0].Distance)

	require.Len(t, got.Participants, 2)
	assert.Equal(t, int64(125000), *got.Participants[0].Money)
	assert.True(t, *got.Participants[0].ShoesFront)
	assert.False(t, *got.Participants[0].ShoesBack)
	assert.Nil(t, got.Participants[1].Age)
	assert.Nil(t, got.Participants[1].ShoesFront)

	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "3.45", got.Outcomes[0].FinalOdds.String())
	assert.True(t, got.Outcomes[1].Withdrawn)
	assert.Nil(t, got.Outcomes[1].FinishOrder)

	require.Len(t, got.Quotes, 2)
	assert.Equal(t, 5.33, got.Quotes[1].MinutesToStart)
	assert.Nil(t, got.Quotes[1].PlaceOdds)
	assert.Equal(t, "22000.5", got.Quotes[1].WinTurnover.String())
	assert.Equal(t, "45678", got.Quotes[0].PairTurnover.String())
}

func TestCSVRelationRepositoryIdempotent(t *testing.T) {
	root := t.TempDir()
	repo := NewCSVRelationRepository(root, stockholm)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-05")))
	first := readAllFiles(t, filepath.Join(root, "2026-02-05"))

	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-05")))
	second := readAllFiles(t, filepath.Join(root, "2026-02-05"))

	assert.Equal(t, first, second)
}

func TestCSVRelationRepositoryOverwritesDate(t *testing.T) {
	repo := NewCSVRelationRepository(t.TempDir(), stockholm)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-05")))

	smaller := sampleRelations("2026-02-05")
	smaller.Quotes = smaller.Quotes[:1]
	smaller.Participants = smaller.Participants[:1]
	require.NoError(t, repo.ReplaceDate(ctx, smaller))

	got, err := repo.LoadDate(ctx, "2026-02-05")
	require.NoError(t, err)
	assert.Len(t, got.Quotes, 1)
	assert.Len(t, got.Participants, 1)

	entries, err := os.ReadDir(repo.root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directories must not be left behind")
	assert.Equal(t, "2026-02-05", entries[0].Name())
}

func TestCSVRelationRepositoryMissingDate(t *testing.T) {
	repo := NewCSVRelationRepository(t.TempDir(), stockholm)

	_, err := repo.LoadDate(context.Background(), "2026-02-05")
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)

	_, err = repo.LoadRange(context.Background(), "2026-02-01", "2026-02-03")
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)
}

func TestCSVRelationRepositoryLoadRangeSkipsGaps(t *testing.T) {
	repo := NewCSVRelationRepository(t.TempDir(), stockholm)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-05")))
	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-07")))

	got, err := repo.LoadRange(ctx, "2026-02-04", "2026-02-07")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-02-05", got[0].Date)
	assert.Equal(t, "2026-02-07", got[1].Date)
	require.Len(t, got[1].Events, 1)
	assert.Equal(t, "2026-02-07", got[1].Events[0].StartTime.In(stockholm).Format("2006-01-02"))
	for _, q := range got[1].Quotes {
		assert.True(t, q.CapturedAt.Before(got[1].Events[0].StartTime))
	}
}

func TestDateRange(t *testing.T) {
	dates, err := DateRange("2026-02-27", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}, dates)

	_, err = DateRange("2026-03-02", "2026-02-27")
	assert.Error(t, err)

	_, err = DateRange("yesterday", "2026-02-27")
	assert.Error(t, err)
}

func readAllFiles(t *testing.T, dir string) map[string][]byte {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = data
	}
	return out
}
