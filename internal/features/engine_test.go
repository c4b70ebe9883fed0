package features

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/models"
)

var stockholm, _ = time.LoadLocation("Europe/Stockholm")

func ptr[T any](v T) *T {
	return &v
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEngine() *Engine {
	return NewEngine(Options{DefaultDistance: 2140, VerifyLeakage: true}, quietLogger())
}

type runner struct {
	horse     string
	rank      *int
	withdrawn bool
	noResult  bool
}

// race builds the relations of one event with the given runners, numbered from 1.
func race(date, eventID string, start time.Time, runners ...runner) *models.Relations {
	rel := &models.Relations{
		Date: date,
		Events: []models.Event{{
			EventID:     eventID,
			Date:        date,
			Region:      "SE",
			TrackID:     "6",
			TrackName:   "Åby",
			StartMethod: "auto",
			Sport:       "trot",
			Distance:    ptr(2140),
			StartTime:   start,
		}},
	}
	for i, r := range runners {
		n := i + 1
		rel.Participants = append(rel.Participants, models.Participant{
			EventID:     eventID,
			StartNumber: n,
			HorseID:     r.horse,
			HorseName:   strings.ToUpper(r.horse),
			Sex:         "gelding",
			SulkyType:   "Vanlig",
		})
		if r.noResult {
			continue
		}
		rel.Outcomes = append(rel.Outcomes, models.Outcome{
			EventID:     eventID,
			HorseID:     r.horse,
			StartNumber: n,
			Withdrawn:   r.withdrawn,
			FinishOrder: r.rank,
			Place:       r.rank,
		})
	}
	return rel
}

func merge(rels ...*models.Relations) []*models.Relations {
	byDate := map[string]*models.Relations{}
	var out []*models.Relations
	for _, r := range rels {
		existing, ok := byDate[r.Date]
		if !ok {
			byDate[r.Date] = r
			out = append(out, r)
			continue
		}
		existing.Events = append(existing.Events, r.Events...)
		existing.Participants = append(existing.Participants, r.Participants...)
		existing.Outcomes = append(existing.Outcomes, r.Outcomes...)
		existing.Quotes = append(existing.Quotes, r.Quotes...)
	}
	return out
}

func findRow(t *testing.T, rows []models.FeatureRow, eventID, horseID string) models.FeatureRow {
	t.Helper()
	for _, r := range rows {
		if r.EventID == eventID && r.HorseID == horseID {
			return r
		}
	}
	t.Fatalf("no row for %s/%s", eventID, horseID)
	return models.FeatureRow{}
}

func buildInference(t *testing.T, rels []*models.Relations) []models.FeatureRow {
	t.Helper()
	res, err := newTestEngine().Build(context.Background(), Request{
		Relations: rels,
		Mode:      ModeInference,
		Encoder:   FitEncoder(nil),
	})
	require.NoError(t, err)
	return res.Rows
}

func TestRateDefaultsWithoutHistory(t *testing.T) {
	start := time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm)
	rows := buildInference(t, []*models.Relations{
		race("2026-02-05", "R1", start, runner{horse: "h1", rank: ptr(1)}),
	})

	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].HistoryStarts)
	assert.Equal(t, 0.0, rows[0].HistoryWinRate)
	assert.Equal(t, 0.0, rows[0].HistoryPlaceRate)
}

func TestHistoryCarriesToLaterDate(t *testing.T) {
	r1 := race("2026-02-05", "R1", time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm),
		runner{horse: "h1", rank: ptr(1)},
		runner{horse: "h2", rank: ptr(2)},
		runner{horse: "h3", rank: ptr(4)},
	)
	r2 := race("2026-02-06", "R2", time.Date(2026, 2, 6, 18, 0, 0, 0, stockholm),
		runner{horse: "h1", noResult: true},
		runner{horse: "h2", noResult: true},
	)

	rows := buildInference(t, []*models.Relations{r1, r2})

	h1 := findRow(t, rows, "R2", "h1")
	assert.Equal(t, 1, h1.HistoryStarts)
	assert.Equal(t, 1, h1.HistoryWins)
	assert.Equal(t, 1.0, h1.HistoryWinRate)
	assert.Equal(t, 1.0, h1.HistoryPlaceRate)

	h2 := findRow(t, rows, "R2", "h2")
	assert.Equal(t, 1, h2.HistoryStarts)
	assert.Equal(t, 0, h2.HistoryWins)
	assert.Equal(t, 1, h2.HistoryTop3)
	assert.Equal(t, 0.0, h2.HistoryWinRate)

	// Own outcome never feeds the row.
	assert.Zero(t, findRow(t, rows, "R1", "h1").HistoryStarts)
}

func TestWithdrawnAndUnresolvedDoNotCount(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 2, d, 13, 0, 0, 0, stockholm) }
	rows := buildInference(t, merge(
		race("2026-02-02", "A", day(2), runner{horse: "h1", withdrawn: true}),
		race("2026-02-03", "B", day(3), runner{horse: "h1", noResult: true}),
		race("2026-02-04", "C", day(4), runner{horse: "h1"}),
		race("2026-02-05", "D", day(5), runner{horse: "h1", noResult: true}),
	))

	// Only C counts: a started run without a rank.
	d := findRow(t, rows, "D", "h1")
	assert.Equal(t, 1, d.HistoryStarts)
	assert.Zero(t, d.HistoryWins)
	assert.Zero(t, d.HistoryTop3)
}

func TestEqualStartTimesDoNotSeeEachOther(t *testing.T) {
	start := time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm)
	rows := buildInference(t, merge(
		race("2026-02-05", "R1", start, runner{horse: "h1", rank: ptr(1)}),
		race("2026-02-05", "R2", start, runner{horse: "h1", rank: ptr(1)}),
	))

	assert.Zero(t, findRow(t, rows, "R1", "h1").HistoryStarts)
	assert.Zero(t, findRow(t, rows, "R2", "h1").HistoryStarts)
}

func TestTrainModeDropsUnrankedRows(t *testing.T) {
	rel := race("2026-02-05", "R1", time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm),
		runner{horse: "h1", rank: ptr(1)},
		runner{horse: "h2", withdrawn: true},
		runner{horse: "h3", noResult: true},
		runner{horse: "h4", rank: ptr(3)},
	)
	rel.Outcomes[0].FinalOdds = ptr(decimal.RequireFromString("3.45"))

	res, err := newTestEngine().Build(context.Background(), Request{
		Relations: []*models.Relations{rel},
		Mode:      ModeTrain,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, 1, *res.Rows[0].TargetWin)
	assert.Equal(t, 3.45, *res.Rows[0].FinalOdds)
	assert.Equal(t, 0, *res.Rows[1].TargetWin)
	assert.Nil(t, res.Rows[1].FinalOdds)
	assert.NotNil(t, res.Encoder)
}

func TestInferenceRequiresEncoder(t *testing.T) {
	_, err := newTestEngine().Build(context.Background(), Request{Mode: ModeInference})
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)
}

func TestBuildRespectsRangeButKeepsHistory(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 2, d, 13, 0, 0, 0, stockholm) }
	res, err := newTestEngine().Build(context.Background(), Request{
		Relations: merge(
			race("2026-02-01", "A", day(1), runner{horse: "h1", rank: ptr(1)}),
			race("2026-02-05", "B", day(5), runner{horse: "h1", rank: ptr(2)}),
		),
		Mode:    ModeInference,
		From:    "2026-02-05",
		To:      "2026-02-05",
		Encoder: FitEncoder(nil),
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "B", res.Rows[0].EventID)
	assert.Equal(t, 1, res.Rows[0].HistoryWins)
	assert.Nil(t, res.Rows[0].FinishOrder)
}

func TestStaticFeatures(t *testing.T) {
	rel := race("2026-02-07", "R1", time.Date(2026, 2, 7, 13, 0, 0, 0, stockholm),
		runner{horse: "h1", rank: ptr(1)},
		runner{horse: "h2", rank: ptr(2)},
	)
	rel.Events[0].Distance = nil
	rel.Participants[0].Distance = ptr(2160)
	rel.Participants[0].PostPosition = ptr(4)
	rel.Participants[0].ShoesFront = ptr(true)
	rel.Participants[0].ShoesBack = ptr(false)

	rows := buildInference(t, []*models.Relations{rel})

	first := findRow(t, rows, "R1", "h1")
	assert.Equal(t, 2160, first.Distance)
	assert.Equal(t, 4, first.PostPosition)
	assert.Equal(t, 1, first.ShoesFront)
	assert.Equal(t, 0, first.ShoesBack)
	assert.Equal(t, 2, first.Month)
	assert.Equal(t, 5, first.DayOfWeek)
	assert.Equal(t, 1, first.IsWeekend)

	second := findRow(t, rows, "R1", "h2")
	assert.Equal(t, 2140, second.Distance)
	assert.Equal(t, -1, second.ShoesFront)
}

func TestAuditDetectsTamperedHistory(t *testing.T) {
	rels := []*models.Relations{
		race("2026-02-05", "R1", time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm), runner{horse: "h1", rank: ptr(1)}),
		race("2026-02-06", "R2", time.Date(2026, 2, 6, 13, 0, 0, 0, stockholm), runner{horse: "h1", rank: ptr(1)}),
	}
	rows := buildInference(t, rels)
	require.NoError(t, VerifyNoLeakage(rows, rels))

	// Pretend R1 could see its own win.
	rows[0].HistoryStarts, rows[0].HistoryWins, rows[0].HistoryWinRate = 1, 1, 1

	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	err := NewEngine(Options{}, log).Audit(rows, rels)
	assert.ErrorIs(t, err, models.ErrInvariantViolation)
	assert.Contains(t, buf.String(), "Leakage")
}

// TestNoLeakageProperty checks over randomized histories that altering one
// outcome never changes the history of a row that does not start strictly
// after it.
func TestNoLeakageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(20260205))

	for iter := 0; iter < 25; iter++ {
		rels := randomHistory(rng)
		base := buildInference(t, rels)
		require.NoError(t, VerifyNoLeakage(base, rels))

		// Alter one random outcome.
		relIdx := rng.Intn(len(rels))
		if len(rels[relIdx].Outcomes) == 0 {
			continue
		}
		oIdx := rng.Intn(len(rels[relIdx].Outcomes))
		altered := &rels[relIdx].Outcomes[oIdx]
		var alteredStart time.Time
		for _, e := range rels[relIdx].Events {
			if e.EventID == altered.EventID {
				alteredStart = e.StartTime
			}
		}
		altered.Withdrawn = false
		if altered.FinishOrder != nil && *altered.FinishOrder == 1 {
			altered.FinishOrder = ptr(9)
		} else {
			altered.FinishOrder = ptr(1)
		}

		after := buildInference(t, rels)
		require.Len(t, after, len(base))
		for i := range base {
			if base[i].StartTime.After(alteredStart) {
				continue
			}
			assert.Equal(t, base[i].HistoryStarts, after[i].HistoryStarts, "iteration %d row %s/%s", iter, base[i].EventID, base[i].HorseID)
			assert.Equal(t, base[i].HistoryWins, after[i].HistoryWins, "iteration %d row %s/%s", iter, base[i].EventID, base[i].HorseID)
			assert.Equal(t, base[i].HistoryTop3, after[i].HistoryTop3, "iteration %d row %s/%s", iter, base[i].EventID, base[i].HorseID)
		}
	}
}

// randomHistory builds a few days of races over a small horse pool, with
// shared start times so equal-time rows occur.
func randomHistory(rng *rand.Rand) []*models.Relations {
	horses := []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8"}
	slots := []int{12, 13, 13, 14, 18}

	var rels []*models.Relations
	for d := 1; d <= 4; d++ {
		date := fmt.Sprintf("2026-02-%02d", d)
		var dayRel *models.Relations
		for raceNo, hour := range slots {
			eventID := fmt.Sprintf("%s_6_%d", date, raceNo+1)
			start := time.Date(2026, 2, d, hour, 0, 0, 0, stockholm)

			perm := rng.Perm(len(horses))[:3+rng.Intn(3)]
			runners := make([]runner, 0, len(perm))
			for pos, idx := range perm {
				r := runner{horse: horses[idx]}
				switch rng.Intn(10) {
				case 0:
					r.withdrawn = true
				case 1:
					r.noResult = true
				default:
					r.rank = ptr(pos + 1)
				}
				runners = append(runners, r)
			}

			rel := race(date, eventID, start, runners...)
			if dayRel == nil {
				dayRel = rel
				continue
			}
			dayRel.Events = append(dayRel.Events, rel.Events...)
			dayRel.Participants = append(dayRel.Participants, rel.Participants...)
			dayRel.Outcomes = append(dayRel.Outcomes, rel.Outcomes...)
		}
		rels = append(rels, dayRel)
	}
	return rels
}

func TestEncoderPersistence(t *testing.T) {
	enc := FitEncoder(map[string][]string{
		CategorySex:   {"mare", "gelding", "mare", ""},
		CategorySport: {"trot"},
	})
	assert.Equal(t, 1, enc.Encode(CategorySex, "gelding"))
	assert.Equal(t, 2, enc.Encode(CategorySex, "mare"))
	assert.Equal(t, 3, enc.Encode(CategorySex, ""))
	assert.Equal(t, UnknownCode, enc.Encode(CategorySex, "stallion"))
	assert.Equal(t, UnknownCode, enc.Encode(CategoryTrackID, "6"))

	path := filepath.Join(t.TempDir(), "models", "encoder.json")
	require.NoError(t, enc.Save(path))

	loaded, err := LoadEncoder(path)
	require.NoError(t, err)
	assert.Equal(t, enc.Columns, loaded.Columns)

	_, err = LoadEncoder(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)
}

func TestInferenceUsesTrainedEncoder(t *testing.T) {
	train := race("2026-02-05", "R1", time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm),
		runner{horse: "h1", rank: ptr(1)},
	)
	res, err := newTestEngine().Build(context.Background(), Request{
		Relations: []*models.Relations{train},
		Mode:      ModeTrain,
	})
	require.NoError(t, err)

	later := race("2026-02-06", "R2", time.Date(2026, 2, 6, 13, 0, 0, 0, stockholm),
		runner{horse: "h1", noResult: true},
	)
	later.Events[0].TrackID = "99"

	inf, err := newTestEngine().Build(context.Background(), Request{
		Relations: []*models.Relations{train, later},
		Mode:      ModeInference,
		From:      "2026-02-06",
		Encoder:   res.Encoder,
	})
	require.NoError(t, err)
	require.Len(t, inf.Rows, 1)
	assert.Equal(t, UnknownCode, inf.Rows[0].TrackIDEncoded)
	assert.Equal(t, 1, inf.Rows[0].SexEncoded)
}
