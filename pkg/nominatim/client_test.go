package nominatim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParsesCandidates(t *testing.T) {
	var gotUA string
	var gotQuery, gotCountry string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		gotCountry = r.URL.Query().Get("countrycodes")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"lat": "37.1773363", "lon": "-3.5985571", "display_name": "Granada, Andalucía, España"},
			{"lat": "not-a-number", "lon": "0", "display_name": "garbage row"}
		]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "destinos-test/1.0", WithRatePerMinute(6000))
	places, err := c.Search(context.Background(), "Granada, Granada, España")
	require.NoError(t, err)

	require.Len(t, places, 1) // unparsable rows are skipped
	assert.InDelta(t, 37.1773363, places[0].Lat, 1e-9)
	assert.InDelta(t, -3.5985571, places[0].Lon, 1e-9)
	assert.Equal(t, "Granada, Andalucía, España", places[0].DisplayName)

	assert.Equal(t, "destinos-test/1.0", gotUA)
	assert.Equal(t, "Granada, Granada, España", gotQuery)
	assert.Equal(t, "es", gotCountry)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "destinos-test/1.0", WithRatePerMinute(6000))
	places, err := c.Search(context.Background(), "Nowhere, España")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearchRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "36.7", "lon": "-3.5", "display_name": "Motril"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "destinos-test/1.0", WithRatePerMinute(6000))
	places, err := c.Search(context.Background(), "Motril, Granada, España")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "destinos-test/1.0", WithRatePerMinute(6000), WithMaxAttempts(3))
	_, err := c.Search(context.Background(), "Motril, Granada, España")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchPermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "destinos-test/1.0", WithRatePerMinute(6000))
	_, err := c.Search(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
