// Package nominatim is a minimal client for the Nominatim search API,
// rate limited per the service's usage policy.
package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/destinos-interinos/destinos-cli/internal/resilience"
)

// Place is a single geocoding candidate.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Client queries the Nominatim search endpoint.
type Client struct {
	baseURL     string
	userAgent   string
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

// WithRatePerMinute sets the external-call budget. The limiter is shared
// by all goroutines using this client.
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

// NewClient creates a Nominatim client. userAgent identifies the
// application as required by the Nominatim usage policy.
func NewClient(baseURL, userAgent string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		userAgent:   userAgent,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(1), 1), // policy default: 1 req/s
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimPlace mirrors the wire format; lat/lon arrive as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search geocodes a free-text query restricted to Spain, returning up to
// five candidates. An empty slice means no match (not an error).
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.maxAttempts
	cfg.OnRetry = resilience.RetryLogger("nominatim", "search")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]Place, error) {
		return c.search(ctx, query)
	})
}

func (c *Client) search(ctx context.Context, query string) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"5"},
		"addressdetails": {"1"},
		"countrycodes":   {"es"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("nominatim: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	var raw []nominatimPlace
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}

	places := make([]Place, 0, len(raw))
	for _, p := range raw {
		lat, latErr := strconv.ParseFloat(p.Lat, 64)
		lon, lonErr := strconv.ParseFloat(p.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		places = append(places, Place{Lat: lat, Lon: lon, DisplayName: p.DisplayName})
	}
	return places, nil
}
