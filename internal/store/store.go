// Package store persists geocoded coordinates, computed distances, and
// imported locality records in sqlite.
package store

import (
	"context"

	"github.com/destinos-interinos/destinos-cli/internal/model"
)

// CoordinateStore is the durable key -> coordinates mapping.
type CoordinateStore interface {
	// GetCoordinates returns the coordinates for a normalized place key.
	// The second return is false on a miss.
	GetCoordinates(ctx context.Context, key string) (model.Coordinates, bool, error)

	// PutCoordinates upserts coordinates for a key, refreshing the
	// resolution timestamp. Last writer wins.
	PutCoordinates(ctx context.Context, key string, coords model.Coordinates) error
}

// DistanceCache is the durable pair -> distance mapping. Callers must
// canonicalize pairs with model.PairKey before every call.
type DistanceCache interface {
	// GetDistance returns the cached record for a canonical pair, or nil
	// on a miss. Geodesic records carry the stale flag from their insert:
	// the value is usable now but should be recomputed via routing when
	// capacity allows. Routed hits have no side effects.
	GetDistance(ctx context.Context, keyA, keyB string) (*model.DistanceRecord, error)

	// PutDistance upserts a distance. Geodesic writes are inserted stale,
	// a routed write clears the flag, and a geodesic write never
	// overwrites an existing routed record.
	PutDistance(ctx context.Context, keyA, keyB string, km float64, method model.DistanceMethod) error

	// MarkStale flags a pair for future recomputation.
	MarkStale(ctx context.Context, keyA, keyB string) error

	// ListStale returns the stale pairs with method=geodesic.
	ListStale(ctx context.Context) ([]Pair, error)

	// Stats returns cache population counters.
	Stats(ctx context.Context) (CacheStats, error)
}

// LocalityStore holds batch-imported candidate locations.
type LocalityStore interface {
	UpsertLocality(ctx context.Context, rec LocalityRecord) error
	ListLocalities(ctx context.Context, resolvedOnly bool) ([]LocalityRecord, error)
}

// Store is the combined persistence surface.
type Store interface {
	CoordinateStore
	DistanceCache
	LocalityStore

	Migrate(ctx context.Context) error
	Close() error
}

// Pair is a canonical distance-cache key pair.
type Pair struct {
	KeyA string
	KeyB string
}

// CacheStats summarizes the distance cache population.
type CacheStats struct {
	Total    int
	Routed   int
	Geodesic int
	Stale    int
	Places   int
}

// LocalityRecord is a row of the imported localities table.
type LocalityRecord struct {
	ID           string
	Name         string
	Province     string
	Municipality string
	Coords       model.Coordinates
	Resolved     bool
}
