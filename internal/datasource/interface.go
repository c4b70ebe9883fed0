package datasource

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yourusername/racecapture/internal/models"
)

// SourceClient fetches calendars and game payloads from a racing provider.
// Both calls may fail transiently; callers must not assume success.
type SourceClient interface {
	// FetchCalendar retrieves the calendar for a logical date (YYYY-MM-DD)
	FetchCalendar(ctx context.Context, date string) (*models.Calendar, error)

	// FetchGame retrieves the full payload of one game, unmodified
	FetchGame(ctx context.Context, gameID string) (json.RawMessage, error)

	// Name returns the name of the data source
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeTimeout           = "timeout"
	ErrCodeServerError       = "server_error"
	ErrCodeCircuitOpen       = "circuit_open"
	ErrCodeUnknown           = "unknown"
)

// ErrCircuitOpen is returned while the client refuses requests after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker open")

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsTransient reports whether err is worth retrying on a later tick or run.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dsErr DataSourceError
	if !errors.As(err, &dsErr) {
		return false
	}
	switch dsErr.Code {
	case ErrCodeRateLimitExceeded, ErrCodeNetworkError, ErrCodeTimeout, ErrCodeServerError, ErrCodeCircuitOpen:
		return true
	default:
		return false
	}
}
