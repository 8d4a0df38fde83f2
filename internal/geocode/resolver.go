// Package geocode resolves place names to coordinates through a layered
// cache (in-memory tier, durable store) with a Nominatim fallback chain
// of increasingly relaxed query templates.
package geocode

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/destinos-interinos/destinos-cli/internal/model"
	"github.com/destinos-interinos/destinos-cli/internal/store"
	"github.com/destinos-interinos/destinos-cli/pkg/nominatim"
)

// ErrNotFound means every fallback template was exhausted without a
// Spain-bounded result. Callers drop the place from further processing.
var ErrNotFound = eris.New("geocode: place not found")

// Searcher is the external geocoding surface, satisfied by *nominatim.Client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]nominatim.Place, error)
}

// Administrative prefixes tried when the bare name has no match. Small
// Spanish municipalities are often registered under these.
var adminPrefixes = []string{"Municipio de", "Villa de"}

// Resolver resolves names to coordinates, write-through caching results.
type Resolver struct {
	client Searcher
	coords store.CoordinateStore
	memory *gocache.Cache
	region string
}

// Option configures the resolver.
type Option func(*Resolver)

// WithRegion sets the regional qualifier used by the relaxed fallback
// template (default "Andalucía").
func WithRegion(region string) Option {
	return func(r *Resolver) {
		if region != "" {
			r.region = region
		}
	}
}

// WithMemoryTTL sets the in-memory tier's entry lifetime.
func WithMemoryTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.memory = gocache.New(ttl, 10*time.Minute)
	}
}

// NewResolver creates a Resolver over the given search client and
// coordinate store.
func NewResolver(client Searcher, coords store.CoordinateStore, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		coords: coords,
		memory: gocache.New(24*time.Hour, 10*time.Minute),
		region: "Andalucía",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns a place name (plus optional province hint) into
// coordinates. Cache tiers are consulted first; external queries walk the
// template chain and the first Spain-bounded candidate wins. Returns
// ErrNotFound once the chain is exhausted.
func (r *Resolver) Resolve(ctx context.Context, name, province string) (model.Coordinates, error) {
	fullKey := model.PlaceKey(name, province)

	if c, ok := r.lookup(ctx, fullKey); ok {
		return c, nil
	}
	if province != "" {
		if c, ok := r.lookup(ctx, model.NameKey(name)); ok {
			return c, nil
		}
	}

	for _, q := range r.queries(name, province) {
		places, err := r.client.Search(ctx, q.text)
		if err != nil {
			zap.L().Warn("geocode: query failed, trying next template",
				zap.String("query", q.text),
				zap.Error(err),
			)
			continue
		}
		for _, p := range places {
			c := model.Coordinates{Lat: p.Lat, Lon: p.Lon}
			if !c.InSpain() {
				zap.L().Debug("geocode: candidate outside Spain, discarded",
					zap.String("query", q.text),
					zap.Float64("lat", p.Lat),
					zap.Float64("lon", p.Lon),
				)
				continue
			}
			r.persist(ctx, q.key, c)
			// The full key is the identity distance pairs are stored
			// under, so a wide-template match must be reachable by it.
			if q.key != fullKey {
				r.persist(ctx, fullKey, c)
			}
			return c, nil
		}
	}

	return model.Coordinates{}, eris.Wrapf(ErrNotFound, "%s (%s)", name, province)
}

type query struct {
	text string // free text sent to the geocoder
	key  string // most specific key to persist a validated result under
}

// queries builds the ordered fallback template chain.
func (r *Resolver) queries(name, province string) []query {
	fullKey := model.PlaceKey(name, province)
	var qs []query

	if province != "" {
		qs = append(qs, query{fmt.Sprintf("%s, %s, España", name, province), fullKey})
		for _, prefix := range adminPrefixes {
			qs = append(qs, query{fmt.Sprintf("%s %s, %s, España", prefix, name, province), fullKey})
		}
	}
	qs = append(qs,
		query{fmt.Sprintf("%s, %s, España", name, r.region), fullKey},
		query{fmt.Sprintf("%s, España", name), model.NameKey(name)},
	)
	return qs
}

// lookup consults the memory tier then the durable store. A store read
// failure is treated as a miss.
func (r *Resolver) lookup(ctx context.Context, key string) (model.Coordinates, bool) {
	if v, ok := r.memory.Get(key); ok {
		return v.(model.Coordinates), true
	}

	c, ok, err := r.coords.GetCoordinates(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: store read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return model.Coordinates{}, false
	}
	if ok {
		r.memory.SetDefault(key, c)
	}
	return c, ok
}

// persist writes through the memory tier into the durable store. A write
// failure is logged and swallowed; the resolved value is still returned
// to the caller.
func (r *Resolver) persist(ctx context.Context, key string, c model.Coordinates) {
	r.memory.SetDefault(key, c)
	if err := r.coords.PutCoordinates(ctx, key, c); err != nil {
		zap.L().Warn("geocode: store write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
