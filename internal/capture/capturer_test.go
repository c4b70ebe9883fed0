package capture

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/rawstore"
)

type fakeSource struct {
	calendar *models.Calendar
	game     json.RawMessage
	err      error
}

func (f *fakeSource) FetchCalendar(_ context.Context, _ string) (*models.Calendar, error) {
	return f.calendar, f.err
}

func (f *fakeSource) FetchGame(_ context.Context, _ string) (json.RawMessage, error) {
	return f.game, f.err
}

func (f *fakeSource) Name() string { return "fake" }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCaptureGameStoresUnderGamesDate(t *testing.T) {
	store := rawstore.NewFileStore(t.TempDir(), stockholm, quietLogger())
	source := &fakeSource{game: json.RawMessage(`{"id":"vinnare_2026-02-05_6_1"}`)}
	c := NewCapturer(source, store, stockholm)
	c.now = fixedClock(time.Date(2026, 2, 5, 12, 59, 30, 0, stockholm))

	key, err := c.CaptureGame(context.Background(), "vinnare_2026-02-05_6_1", "2026-02-05")
	require.NoError(t, err)
	assert.Equal(t, "games/2026-02-05/vinnare_2026-02-05_6_1_20260205_125930.json", key.Path())

	payload, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"vinnare_2026-02-05_6_1"}`, string(payload))

	_, err = c.CaptureGame(context.Background(), "vinnare_2026-02-05_6_1", "2026-02-05")
	assert.ErrorIs(t, err, models.ErrCaptureExists)
}

func TestCaptureCalendarKeepsRawBytes(t *testing.T) {
	store := rawstore.NewFileStore(t.TempDir(), stockholm, quietLogger())
	raw := json.RawMessage(`{"date":"2026-02-05","tracks":[]}`)
	source := &fakeSource{calendar: &models.Calendar{Date: "2026-02-05", Raw: raw}}
	c := NewCapturer(source, store, stockholm)
	c.now = fixedClock(time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC))

	cal, key, err := c.CaptureCalendar(context.Background(), "2026-02-05")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-05", cal.Date)
	assert.Equal(t, "calendar/2026-02-05/2026-02-05_20260205_090000.json", key.Path())

	payload, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(payload))
}

func TestCaptureGameSourceError(t *testing.T) {
	store := rawstore.NewFileStore(t.TempDir(), stockholm, quietLogger())
	c := NewCapturer(&fakeSource{err: errors.New("boom")}, store, stockholm)

	_, err := c.CaptureGame(context.Background(), "vinnare_x", "2026-02-05")
	require.Error(t, err)

	keys, err := store.List(context.Background(), rawstore.CategoryGames, "2026-02-05")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
