package database

import (
	"context"
	"fmt"

	"github.com/yourusername/racecapture/internal/config"
)

// Initialize connects to the relational mirror and applies the embedded migrations.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := RunPostgresMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
