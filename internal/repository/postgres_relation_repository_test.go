package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yourusername/racecapture/internal/database"
	"github.com/yourusername/racecapture/internal/models"
)

// setupTestDB starts a PostgreSQL container and applies the embedded migrations.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() || os.Getenv("RACECAPTURE_INTEGRATION") == "" {
		t.Skip("set RACECAPTURE_INTEGRATION=1 to run database integration tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("racecapture"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewDBFromDSN(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.RunPostgresMigrations(ctx, db))
	return db
}

func TestPostgresRelationRepositoryReplaceDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresRelationRepository(db, stockholm)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-05")))
	require.NoError(t, repo.ReplaceDate(ctx, sampleRelations("2026-02-05")))

	got, err := repo.LoadDate(ctx, "2026-02-05")
	require.NoError(t, err)
	assert.Len(t, got.Events, 1)
	assert.Len(t, got.Participants, 2)
	assert.Len(t, got.Outcomes, 2)
	require.Len(t, got.Quotes, 2)
	assert.Equal(t, "4.1", got.Quotes[0].WinOdds.String())
	assert.Nil(t, got.Quotes[1].PlaceOdds)

	_, err = repo.LoadDate(ctx, "2026-02-06")
	assert.ErrorIs(t, err, models.ErrMissingPrerequisite)
}

func TestPostgresRelationRepositoryFeatureRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresRelationRepository(db, stockholm)
	ctx := context.Background()

	rows := []models.FeatureRow{{
		EventID:     "2026-02-05_6_1",
		HorseID:     "h1",
		Date:        "2026-02-05",
		StartTime:   time.Date(2026, 2, 5, 13, 0, 0, 0, stockholm),
		StartNumber: 1,
		QuoteCount:  2,
		Odds5m:      ptr(3.5),
	}}
	require.NoError(t, repo.ReplaceFeatureRows(ctx, "train", rows))
	require.NoError(t, repo.ReplaceFeatureRows(ctx, "train", rows))

	var count int
	require.NoError(t, db.GetPool().QueryRow(ctx, "SELECT count(*) FROM feature_rows WHERE mode = 'train'").Scan(&count))
	assert.Equal(t, 1, count)
}
