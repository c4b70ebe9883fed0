package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/models"
)

// MultiRelationWriter writes to a primary store and best-effort mirrors.
// A primary failure fails the date; a mirror failure is logged.
type MultiRelationWriter struct {
	primary RelationWriter
	mirrors map[string]RelationWriter
	names   []string
	log     *logrus.Logger
}

// NewMultiRelationWriter creates a writer fanning out to primary and mirrors
func NewMultiRelationWriter(primary RelationWriter, log *logrus.Logger) *MultiRelationWriter {
	return &MultiRelationWriter{
		primary: primary,
		mirrors: make(map[string]RelationWriter),
		log:     log,
	}
}

// AddMirror registers a named secondary writer
func (m *MultiRelationWriter) AddMirror(name string, w RelationWriter) {
	if _, ok := m.mirrors[name]; !ok {
		m.names = append(m.names, name)
	}
	m.mirrors[name] = w
}

// ReplaceDate writes rel to the primary, then to each mirror in registration order
func (m *MultiRelationWriter) ReplaceDate(ctx context.Context, rel *models.Relations) error {
	if err := m.primary.ReplaceDate(ctx, rel); err != nil {
		return fmt.Errorf("failed to write relations for %s: %w", rel.Date, err)
	}

	for _, name := range m.names {
		if err := m.mirrors[name].ReplaceDate(ctx, rel); err != nil {
			m.log.WithFields(logrus.Fields{
				"mirror": name,
				"date":   rel.Date,
				"error":  err.Error(),
			}).Warn("Relation mirror write failed")
		}
	}
	return nil
}
