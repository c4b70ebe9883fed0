package repository

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/config"
	"github.com/yourusername/racecapture/internal/database"
)

// Repositories holds the relation stores used by the pipeline
type Repositories struct {
	// Relations is the canonical store that later stages read.
	Relations RelationRepository
	// Writer fans relation writes out to the canonical store and any mirrors.
	Writer RelationWriter
	// Features mirrors feature rows; nil without a database.
	Features FeatureRowWriter
}

// NewRepositories wires the CSV store with the optional PostgreSQL and
// ClickHouse mirrors. db and ch may be nil.
func NewRepositories(cfg *config.Config, db *database.DB, ch *database.ClickHouseConn, log *logrus.Logger) (*Repositories, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	loc := cfg.Location()
	csvRepo := NewCSVRelationRepository(cfg.Storage.SilverPath, loc)
	writer := NewMultiRelationWriter(csvRepo, log)
	repos := &Repositories{Relations: csvRepo, Writer: writer}

	if db != nil {
		pg := NewPostgresRelationRepository(db, loc)
		writer.AddMirror("postgres", pg)
		repos.Features = pg
	}
	if ch != nil {
		writer.AddMirror("clickhouse", NewClickHouseQuoteSink(ch))
	}
	return repos, nil
}

