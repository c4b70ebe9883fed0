package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/config"
)

// SourceType represents the type of data source
type SourceType string

const (
	// ATGSourceType is the ATG racing info API
	ATGSourceType SourceType = "atg"
)

// NewSourceClient builds the configured SourceClient with its rate-limited HTTP client
func NewSourceClient(cfg config.SourceConfig, logger *logrus.Logger) (SourceClient, error) {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Timeout
	httpCfg.MaxRetries = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		httpCfg.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		httpCfg.RetryWaitMax = cfg.RetryWaitMax
	}
	httpCfg.RateLimit = cfg.RateLimit
	httpCfg.RateBurst = cfg.RateBurst
	httpCfg.CircuitBreakerMax = cfg.CircuitBreakerThreshold

	switch SourceType(cfg.Name) {
	case ATGSourceType:
		return NewATGClient(cfg.BaseURL, NewRateLimitedHTTPClient(httpCfg, logger), logger), nil
	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Name)
	}
}
