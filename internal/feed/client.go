package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/microburst-monitor/internal/observability"
)

// maxBodySize caps API response bodies.
const maxBodySize = 16 << 20

// Stats is the summary returned by the detection API's /stats endpoint.
type Stats struct {
	TotalDetections      int            `json:"total_detections"`
	SeverityDistribution map[string]int `json:"severity_distribution"`
	AvgConfidence        float64        `json:"avg_confidence"`
	AvgWindShear         float64        `json:"avg_wind_shear"`
	PeriodDays           int            `json:"period_days"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithBackOff replaces the retry policy. newBackOff is called once per request.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// Client calls the REST endpoints of the detection API. Transient failures
// (network errors, 429 and 5xx) are retried with exponential backoff; every
// request runs through a circuit breaker so a dead peer fails fast.
type Client struct {
	endpoints  Endpoints
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a client for the given endpoints.
func NewClient(endpoints Endpoints, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...ClientOption) *Client {
	c := &Client{
		endpoints:  endpoints,
		http:       &http.Client{Timeout: timeout},
		newBackOff: defaultBackOff,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "detection-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(bo, 3)
}

// Health probes GET /health. Any 2xx response means healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "health", "/health", nil)
	return err
}

// Detections fetches the raw records of the last hours hours from
// GET /detections. Records are returned undecoded so that one malformed
// record does not discard the whole snapshot.
func (c *Client) Detections(ctx context.Context, hours int) ([]json.RawMessage, error) {
	body, err := c.get(ctx, "detections", "/detections", url.Values{"hours": {strconv.Itoa(hours)}})
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return records, nil
}

// Stats fetches GET /stats for the last days days.
func (c *Client) Stats(ctx context.Context, days int) (Stats, error) {
	body, err := c.get(ctx, "stats", "/stats", url.Values{"days": {strconv.Itoa(days)}})
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		return Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	target := c.endpoints.URL(path, query)
	start := time.Now()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		var body []byte
		operation := func() error {
			var err error
			body, err = c.do(ctx, target)
			return err
		}
		err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx))
		return body, err
	})

	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: detection API unavailable: %w", endpoint, err)
		}
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	c.metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}

// do performs a single GET. Errors that should not be retried are wrapped
// with backoff.Permanent.
func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body))
	default:
		return nil, backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body)))
	}
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
