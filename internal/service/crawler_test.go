package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/models"
	"github.com/yourusername/racecapture/internal/rawstore"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeDayCapturer struct {
	cal      *models.Calendar
	calErr   error
	failing  map[string]error
	captured []string
}

func (f *fakeDayCapturer) CaptureCalendar(_ context.Context, _ string) (*models.Calendar, rawstore.Key, error) {
	if f.calErr != nil {
		return nil, rawstore.Key{}, f.calErr
	}
	return f.cal, rawstore.Key{}, nil
}

func (f *fakeDayCapturer) CaptureGame(_ context.Context, gameID, _ string) (rawstore.Key, error) {
	if err, ok := f.failing[gameID]; ok {
		return rawstore.Key{}, err
	}
	f.captured = append(f.captured, gameID)
	return rawstore.Key{Identifier: gameID}, nil
}

func games(ids ...string) []models.CalendarGame {
	out := make([]models.CalendarGame, len(ids))
	for i, id := range ids {
		out[i] = models.CalendarGame{ID: id}
	}
	return out
}

func TestSelectGamesPriorityOrder(t *testing.T) {
	cal := &models.Calendar{Games: map[string][]models.CalendarGame{
		"vinnare": games("vinnare_1", "vinnare_2"),
		"V75":     games("V75_1"),
		"trio":    games("trio_1"),
		"V4":      games("V4_1", "V4_2"),
	}}

	ids := SelectGames(cal, DefaultGameTypes, 20)
	assert.Equal(t, []string{"V75_1", "V4_1", "V4_2", "vinnare_1", "vinnare_2"}, ids)
}

func TestSelectGamesFallback(t *testing.T) {
	cal := &models.Calendar{Games: map[string][]models.CalendarGame{
		"trio": games("trio_1", "trio_2", "trio_3"),
		"dd":   games("dd_1"),
		"komb": games(),
	}}

	ids := SelectGames(cal, DefaultGameTypes, 2)
	assert.Equal(t, []string{"dd_1", "trio_1", "trio_2"}, ids)
}

func TestCrawlDayCountsFailures(t *testing.T) {
	capturer := &fakeDayCapturer{
		cal: &models.Calendar{Games: map[string][]models.CalendarGame{
			"V75":     games("V75_1"),
			"vinnare": games("vinnare_1", "vinnare_2"),
		}},
		failing: map[string]error{
			"vinnare_1": errors.New("timeout"),
			"vinnare_2": models.ErrCaptureExists,
		},
	}
	crawler := NewCrawler(capturer, config.CrawlConfig{FallbackLimit: 20}, quietLogger())

	res, err := crawler.CrawlDay(context.Background(), "2026-02-05")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Games)
	assert.Equal(t, 2, res.Captured)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"V75_1"}, capturer.captured)
}

func TestCrawlDayCalendarFailure(t *testing.T) {
	crawler := NewCrawler(&fakeDayCapturer{calErr: errors.New("503")}, config.CrawlConfig{}, quietLogger())

	_, err := crawler.CrawlDay(context.Background(), "2026-02-05")
	assert.ErrorContains(t, err, "503")
}
