// Package rank assigns school localities to their nearest reference
// city and orders the result for publication.
package rank

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/destinos-interinos/destinos-cli/internal/distance"
	"github.com/destinos-interinos/destinos-cli/internal/model"
)

const defaultWorkers = 4

// Resolver yields the road distance between two places.
type Resolver interface {
	Resolve(ctx context.Context, nameA, provinceA, nameB, provinceB string) (distance.Result, error)
}

// Engine fans locality placement out over a bounded worker pool.
type Engine struct {
	resolver Resolver
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds concurrent distance resolution.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureReferences returns the candidate set with every reference city
// present as a locality, so references rank themselves at distance zero
// even when the ingested files carry no center for them. Duplicates are
// dropped by place identity.
func EnsureReferences(localities []model.Locality, refs []model.ReferenceCity) []model.Locality {
	out := make([]model.Locality, 0, len(localities)+len(refs))
	seen := make(map[string]bool, len(localities)+len(refs))
	for _, loc := range localities {
		if seen[loc.Key()] {
			continue
		}
		seen[loc.Key()] = true
		out = append(out, loc)
	}
	for _, ref := range refs {
		loc := model.Locality{Name: ref.Name, Province: ref.Province}
		if seen[loc.Key()] {
			continue
		}
		seen[loc.Key()] = true
		out = append(out, loc)
	}
	return out
}

// Assign places every locality with the reference city that is closest
// to it among those whose radius admits it. A radius of zero admits any
// distance. Localities admitted by no reference are dropped. The result
// is ordered by reference rank, then ascending distance; localities at
// identical distance keep their input order.
func (e *Engine) Assign(ctx context.Context, localities []model.Locality, refs []model.ReferenceCity) ([]model.Placement, error) {
	if len(refs) == 0 {
		return nil, eris.New("rank: at least one reference city is required")
	}

	placed := make([]*model.Placement, len(localities))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, loc := range localities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			placed[i] = e.place(ctx, loc, refs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "rank: assign")
	}

	out := make([]model.Placement, 0, len(localities))
	for _, p := range placed {
		if p != nil {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RefRank != out[j].RefRank {
			return out[i].RefRank < out[j].RefRank
		}
		return out[i].DistanceKM < out[j].DistanceKM
	})
	return out, nil
}

// place measures a locality against every reference in declaration
// order. Ties on distance go to the earlier reference because only a
// strictly smaller distance displaces the incumbent.
func (e *Engine) place(ctx context.Context, loc model.Locality, refs []model.ReferenceCity) *model.Placement {
	best := math.Inf(1)
	bestRank := -1

	for _, ref := range refs {
		km := math.Inf(1)
		res, err := e.resolver.Resolve(ctx, loc.Name, loc.Province, ref.Name, ref.Province)
		if err != nil {
			zap.L().Warn("distance unresolved",
				zap.String("locality", loc.Name),
				zap.String("reference", ref.Name),
				zap.Error(err))
		} else {
			km = res.KM
		}
		if ref.RadiusKM > 0 && km > ref.RadiusKM {
			continue
		}
		if km < best {
			best = km
			bestRank = ref.Rank
		}
	}

	if bestRank < 0 {
		zap.L().Debug("locality outside every radius",
			zap.String("locality", loc.Name),
			zap.String("province", loc.Province))
		return nil
	}
	return &model.Placement{Locality: loc, RefRank: bestRank, DistanceKM: best}
}
