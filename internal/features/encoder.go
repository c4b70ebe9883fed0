package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/yourusername/racecapture/internal/models"
)

// Encoded categorical columns.
const (
	CategorySex         = "sex"
	CategorySulkyType   = "sulky_type"
	CategoryStartMethod = "start_method"
	CategorySport       = "sport"
	CategoryTrackID     = "track_id"
)

// UnknownCode is assigned to values the encoder was not fitted on.
const UnknownCode = 0

// missingCategory stands in for an empty source value.
const missingCategory = "unknown"

var categoryColumns = []string{
	CategorySex, CategorySulkyType, CategoryStartMethod, CategorySport, CategoryTrackID,
}

// CategoryEncoder maps categorical values to dense integer codes. Fitted
// values get 1..n in sorted order.
type CategoryEncoder struct {
	Version int                       `json:"version"`
	Columns map[string]map[string]int `json:"columns"`
}

// FitEncoder builds an encoder from the observed values of each column.
func FitEncoder(values map[string][]string) *CategoryEncoder {
	enc := &CategoryEncoder{Version: 1, Columns: make(map[string]map[string]int, len(categoryColumns))}
	for _, col := range categoryColumns {
		seen := make(map[string]bool)
		for _, v := range values[col] {
			seen[normalizeCategory(v)] = true
		}
		sorted := make([]string, 0, len(seen))
		for v := range seen {
			sorted = append(sorted, v)
		}
		sort.Strings(sorted)

		codes := make(map[string]int, len(sorted))
		for i, v := range sorted {
			codes[v] = i + 1
		}
		enc.Columns[col] = codes
	}
	return enc
}

// Encode returns the code of value in column, or UnknownCode.
func (e *CategoryEncoder) Encode(column, value string) int {
	codes, ok := e.Columns[column]
	if !ok {
		return UnknownCode
	}
	if code, ok := codes[normalizeCategory(value)]; ok {
		return code
	}
	return UnknownCode
}

// Save writes the encoder as JSON, replacing any previous file.
func (e *CategoryEncoder) Save(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode category encoder: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// LoadEncoder reads an encoder saved by a training run. A missing file is
// models.ErrMissingPrerequisite.
func LoadEncoder(path string) (*CategoryEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: category encoder %s not found, run a training build first", models.ErrMissingPrerequisite, path)
		}
		return nil, err
	}

	var enc CategoryEncoder
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("failed to parse category encoder %s: %w", path, err)
	}
	if enc.Columns == nil {
		enc.Columns = make(map[string]map[string]int)
	}
	return &enc, nil
}

func normalizeCategory(v string) string {
	if v == "" {
		return missingCategory
	}
	return v
}

func categoryValues(c *candidate) map[string]string {
	return map[string]string{
		CategorySex:         c.participant.Sex,
		CategorySulkyType:   c.participant.SulkyType,
		CategoryStartMethod: c.event.StartMethod,
		CategorySport:       c.event.Sport,
		CategoryTrackID:     c.event.TrackID,
	}
}
