package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/models"
)

const (
	// DefaultATGBaseURL is the public racing info API root.
	DefaultATGBaseURL = "https://www.atg.se/services/racinginfo/v1/api"

	maxPayloadBytes = 32 << 20
)

// ATGClient implements SourceClient against the ATG racing info API.
type ATGClient struct {
	baseURL    string
	httpClient *RateLimitedHTTPClient
	logger     *logrus.Entry
}

// NewATGClient creates a client for the given base URL
func NewATGClient(baseURL string, httpClient *RateLimitedHTTPClient, logger *logrus.Logger) *ATGClient {
	if baseURL == "" {
		baseURL = DefaultATGBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ATGClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.WithField("source", "atg"),
	}
}

// Name returns the name of the data source
func (c *ATGClient) Name() string {
	return "atg"
}

// FetchCalendar retrieves the day calendar and keeps the raw bytes
func (c *ATGClient) FetchCalendar(ctx context.Context, date string) (*models.Calendar, error) {
	body, err := c.fetch(ctx, "calendar/day/"+url.PathEscape(date))
	if err != nil {
		return nil, err
	}

	var cal models.Calendar
	if err := json.Unmarshal(body, &cal); err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "failed to decode calendar for "+date, err)
	}
	if cal.Date == "" {
		cal.Date = date
	}
	cal.Raw = body
	return &cal, nil
}

// FetchGame retrieves one game payload
func (c *ATGClient) FetchGame(ctx context.Context, gameID string) (json.RawMessage, error) {
	body, err := c.fetch(ctx, "games/"+url.PathEscape(gameID))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "game payload is not valid JSON: "+gameID, nil)
	}
	return json.RawMessage(body), nil
}

func (c *ATGClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	target := c.baseURL + "/" + endpoint
	c.logger.WithField("url", target).Debug("Fetching")

	resp, err := c.httpClient.Get(ctx, target)
	if err != nil {
		return nil, c.classify(err, target)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(c.Name(), ErrCodeNotFound, target, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(c.Name(), ErrCodeRateLimitExceeded, target, nil)
	case resp.StatusCode >= 500:
		return nil, NewDataSourceError(c.Name(), ErrCodeServerError, fmt.Sprintf("%s returned %d", target, resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("%s returned %d", target, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "failed to read body of "+target, err)
	}
	return body, nil
}

func (c *ATGClient) classify(err error, target string) error {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return NewDataSourceError(c.Name(), ErrCodeCircuitOpen, target, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NewDataSourceError(c.Name(), ErrCodeTimeout, target, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return NewDataSourceError(c.Name(), ErrCodeNetworkError, target, err)
	}
}
