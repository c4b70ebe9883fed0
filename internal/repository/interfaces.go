package repository

import (
	"context"
	"errors"

	"github.com/yourusername/racecapture/internal/models"
)

// RelationWriter replaces the stored relations of one logical date.
// Writing a date twice leaves only the second snapshot.
type RelationWriter interface {
	ReplaceDate(ctx context.Context, rel *models.Relations) error
}

// RelationReader loads stored relations.
type RelationReader interface {
	// LoadDate returns models.ErrMissingPrerequisite when the date was never written.
	LoadDate(ctx context.Context, date string) (*models.Relations, error)
	// LoadRange returns the written dates within [from, to] in date order.
	LoadRange(ctx context.Context, from, to string) ([]*models.Relations, error)
}

// RelationRepository defines the interface for normalized relation storage
type RelationRepository interface {
	RelationWriter
	RelationReader
}

// FeatureRowWriter mirrors feature rows produced for one mode.
type FeatureRowWriter interface {
	ReplaceFeatureRows(ctx context.Context, mode string, rows []models.FeatureRow) error
}

func isMissing(err error) bool {
	return errors.Is(err, models.ErrMissingPrerequisite)
}
