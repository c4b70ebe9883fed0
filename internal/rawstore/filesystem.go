package rawstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/models"
)

// FileStore keeps raw captures on the local filesystem under a root directory.
type FileStore struct {
	root   string
	loc    *time.Location
	logger *logrus.Entry
}

// NewFileStore creates a FileStore rooted at root
func NewFileStore(root string, loc *time.Location, logger *logrus.Logger) *FileStore {
	if logger == nil {
		logger = logrus.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &FileStore{
		root:   root,
		loc:    loc,
		logger: logger.WithField("component", "rawstore"),
	}
}

// Put writes the payload atomically. The final name is created with a hard
// link so an existing capture is never replaced.
func (s *FileStore) Put(ctx context.Context, key Key, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(s.root, key.Category, key.Date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".capture-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}

	if err := os.Link(tmpName, filepath.Join(dir, key.FileName())); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", models.ErrCaptureExists, key)
		}
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	return nil
}

// Get reads one capture
func (s *FileStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key.Path())))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// List returns every capture of a category and date. Names that do not
// follow the key layout are logged and left out.
func (s *FileStore) List(ctx context.Context, category, date string) ([]Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, category, date))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	keys := make([]Key, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		identifier, capturedAt, err := ParseFileName(name, s.loc)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"category": category,
				"date":     date,
				"file":     name,
			}).WithError(err).Warn("Ignoring file outside key layout")
			continue
		}
		keys = append(keys, Key{
			Category:   category,
			Date:       date,
			Identifier: identifier,
			CapturedAt: capturedAt,
		})
	}

	sortKeys(keys)
	return keys, nil
}
