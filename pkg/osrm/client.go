// Package osrm is a client for the OSRM route service's driving profile.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/destinos-interinos/destinos-cli/internal/model"
	"github.com/destinos-interinos/destinos-cli/internal/resilience"
)

// ErrNoRoute means the service answered but found no drivable route.
// Not retryable; callers fall back to geodesic distance.
var ErrNoRoute = eris.New("osrm: no route")

// Client queries the OSRM route endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRatePerMinute sets the external-call budget, shared across goroutines.
func WithRatePerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		}
	}
}

// WithMaxAttempts sets the retry cap for transient failures.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewClient creates an OSRM client. baseURL includes the version prefix,
// e.g. "https://router.project-osrm.org/route/v1".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}

// DrivingDistanceKM returns the road-network distance between two points
// in kilometers. Transient failures are retried with backoff; a non-Ok
// route status returns ErrNoRoute.
func (c *Client) DrivingDistanceKM(ctx context.Context, from, to model.Coordinates) (float64, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.maxAttempts
	cfg.OnRetry = resilience.RetryLogger("osrm", "route")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (float64, error) {
		return c.route(ctx, from, to)
	})
}

func (c *Client) route(ctx context.Context, from, to model.Coordinates) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "osrm: rate limit")
	}

	// OSRM wants lon,lat ordering.
	reqURL := fmt.Sprintf("%s/driving/%f,%f;%f,%f", c.baseURL, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "osrm: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "osrm: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return 0, resilience.NewTransientError(
			eris.Errorf("osrm: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("osrm: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "osrm: read body")
	}

	var route routeResponse
	if err := json.Unmarshal(body, &route); err != nil {
		return 0, eris.Wrap(err, "osrm: parse response")
	}

	if route.Code != "Ok" || len(route.Routes) == 0 {
		return 0, ErrNoRoute
	}
	return route.Routes[0].Distance / 1000.0, nil
}
