// Package distance turns two place identities into a kilometer distance,
// consulting the durable cache first, then routing, then a geodesic
// fallback.
package distance

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/destinos-interinos/destinos-cli/internal/model"
	"github.com/destinos-interinos/destinos-cli/internal/store"
)

// ErrNotFound means one of the endpoints could not be geocoded. Callers
// needing a sort sentinel must map this to +Inf at their own boundary.
var ErrNotFound = eris.New("distance: endpoint not found")

// Geocoder resolves names to coordinates (internal/geocode.Resolver).
type Geocoder interface {
	Resolve(ctx context.Context, name, province string) (model.Coordinates, error)
}

// Router computes road-network distances (pkg/osrm.Client).
type Router interface {
	DrivingDistanceKM(ctx context.Context, from, to model.Coordinates) (float64, error)
}

// Result is a resolved distance and the method that produced it.
type Result struct {
	KM     float64
	Method model.DistanceMethod
}

// Resolver computes and caches distances between place identities.
type Resolver struct {
	geocoder   Geocoder
	router     Router
	cache      store.DistanceCache
	roadFactor float64
}

// Option configures the resolver.
type Option func(*Resolver)

// WithRoadFactor sets the multiplier applied to the geodesic fallback to
// approximate road distance. 1.0 disables the correction.
func WithRoadFactor(f float64) Option {
	return func(r *Resolver) {
		if f > 0 {
			r.roadFactor = f
		}
	}
}

// NewResolver creates a distance Resolver.
func NewResolver(geocoder Geocoder, router Router, cache store.DistanceCache, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder:   geocoder,
		router:     router,
		cache:      cache,
		roadFactor: 1.3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the distance between two places in kilometers.
//
// Identical place identities short-circuit to zero without any I/O. A
// cache hit returns immediately regardless of how the record was
// computed. On a miss, both endpoints are geocoded, routing
// is attempted, and the geodesic fallback covers routing failure. The
// result is persisted before returning; persistence failure is logged
// and swallowed.
func (r *Resolver) Resolve(ctx context.Context, nameA, provinceA, nameB, provinceB string) (Result, error) {
	keyA := model.PlaceKey(nameA, provinceA)
	keyB := model.PlaceKey(nameB, provinceB)
	if keyA == keyB {
		return Result{KM: 0, Method: model.MethodRouted}, nil
	}

	a, b := model.PairKey(keyA, keyB)

	rec, err := r.cache.GetDistance(ctx, a, b)
	if err != nil {
		zap.L().Warn("distance: cache read failed, recomputing",
			zap.String("key_a", a),
			zap.String("key_b", b),
			zap.Error(err),
		)
	}
	if rec != nil {
		return Result{KM: rec.DistanceKM, Method: rec.Method}, nil
	}

	coordsA, err := r.geocoder.Resolve(ctx, nameA, provinceA)
	if err != nil {
		return Result{}, eris.Wrapf(ErrNotFound, "%s (%s)", nameA, provinceA)
	}
	coordsB, err := r.geocoder.Resolve(ctx, nameB, provinceB)
	if err != nil {
		return Result{}, eris.Wrapf(ErrNotFound, "%s (%s)", nameB, provinceB)
	}

	res := r.compute(ctx, coordsA, coordsB)

	if err := r.cache.PutDistance(ctx, a, b, res.KM, res.Method); err != nil {
		zap.L().Warn("distance: cache write failed",
			zap.String("key_a", a),
			zap.String("key_b", b),
			zap.Error(err),
		)
	}
	return res, nil
}

// compute attempts routing and falls back to corrected geodesic distance.
func (r *Resolver) compute(ctx context.Context, from, to model.Coordinates) Result {
	km, err := r.router.DrivingDistanceKM(ctx, from, to)
	if err == nil {
		return Result{KM: km, Method: model.MethodRouted}
	}

	zap.L().Warn("distance: routing unavailable, using geodesic fallback",
		zap.Error(err),
	)
	return Result{
		KM:     haversineKM(from, to) * r.roadFactor,
		Method: model.MethodGeodesic,
	}
}

// UpgradeStale recomputes the stale geodesic records via routing only,
// overwriting them in place. Failures leave the record stale for a later
// pass. Returns the number of records upgraded.
func (r *Resolver) UpgradeStale(ctx context.Context, coords store.CoordinateStore) (int, error) {
	pairs, err := r.cache.ListStale(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "distance: list stale")
	}

	upgraded := 0
	for _, p := range pairs {
		if ctx.Err() != nil {
			return upgraded, ctx.Err()
		}

		from, okA, err := coords.GetCoordinates(ctx, p.KeyA)
		if err != nil || !okA {
			zap.L().Warn("distance: stale pair missing origin coordinates",
				zap.String("key", p.KeyA), zap.Error(err))
			continue
		}
		to, okB, err := coords.GetCoordinates(ctx, p.KeyB)
		if err != nil || !okB {
			zap.L().Warn("distance: stale pair missing destination coordinates",
				zap.String("key", p.KeyB), zap.Error(err))
			continue
		}

		km, err := r.router.DrivingDistanceKM(ctx, from, to)
		if err != nil {
			zap.L().Warn("distance: stale upgrade failed, left for next pass",
				zap.String("key_a", p.KeyA),
				zap.String("key_b", p.KeyB),
				zap.Error(err),
			)
			continue
		}

		if err := r.cache.PutDistance(ctx, p.KeyA, p.KeyB, km, model.MethodRouted); err != nil {
			zap.L().Warn("distance: stale upgrade write failed",
				zap.String("key_a", p.KeyA),
				zap.String("key_b", p.KeyB),
				zap.Error(err),
			)
			continue
		}
		upgraded++
	}
	return upgraded, nil
}
