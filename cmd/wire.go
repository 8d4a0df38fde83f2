package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/destinos-interinos/destinos-cli/internal/distance"
	"github.com/destinos-interinos/destinos-cli/internal/geocode"
	"github.com/destinos-interinos/destinos-cli/internal/store"
	"github.com/destinos-interinos/destinos-cli/pkg/nominatim"
	"github.com/destinos-interinos/destinos-cli/pkg/osrm"
)

func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "cmd: open store")
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, eris.Wrap(err, "cmd: migrate store")
	}
	return s, nil
}

func newGeocoder(s *store.SQLiteStore) *geocode.Resolver {
	client := nominatim.NewClient(cfg.Nominatim.BaseURL, cfg.Nominatim.UserAgent,
		nominatim.WithRatePerMinute(cfg.Nominatim.RatePerMinute),
		nominatim.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Nominatim.TimeoutSecs) * time.Second}),
	)
	return geocode.NewResolver(client, s, geocode.WithRegion(cfg.Nominatim.Region))
}

func newDistanceResolver(s *store.SQLiteStore) *distance.Resolver {
	router := osrm.NewClient(cfg.OSRM.BaseURL,
		osrm.WithRatePerMinute(cfg.OSRM.RatePerMinute),
		osrm.WithMaxAttempts(cfg.OSRM.MaxAttempts),
		osrm.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.OSRM.TimeoutSecs) * time.Second}),
	)
	return distance.NewResolver(newGeocoder(s), router, s,
		distance.WithRoadFactor(cfg.Distance.RoadFactor))
}
