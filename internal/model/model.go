// Package model defines the core domain types: coordinates, reference
// cities, localities, and cached distance records, plus the normalized
// place-key conventions every other package relies on.
package model

import "time"

// DistanceMethod identifies how a cached distance was computed.
type DistanceMethod string

const (
	// MethodRouted is a road-network distance from the routing service.
	MethodRouted DistanceMethod = "routed"
	// MethodGeodesic is a great-circle fallback, lower confidence.
	MethodGeodesic DistanceMethod = "geodesic"
)

// Spain bounding box. Coordinates outside it are rejected as bad
// geocoder matches (e.g. a Spanish town name resolving to Latin America).
const (
	SpainMinLat = 36.0
	SpainMaxLat = 44.0
	SpainMinLon = -10.0
	SpainMaxLon = 5.0
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InSpain reports whether the point falls inside the Spain bounding box.
func (c Coordinates) InSpain() bool {
	return c.Lat >= SpainMinLat && c.Lat <= SpainMaxLat &&
		c.Lon >= SpainMinLon && c.Lon <= SpainMaxLon
}

// ReferenceCity is a caller-prioritized proximity anchor.
type ReferenceCity struct {
	Name     string  `json:"name"`
	Province string  `json:"province,omitempty"`
	RadiusKM float64 `json:"radius_km"` // 0 = unbounded
	Rank     int     `json:"rank"`      // position in the caller-supplied order
}

// Key returns the normalized identity of the reference city. Reference
// cities are keyed by name alone so the same city can be reused across
// requests with different province hints.
func (r ReferenceCity) Key() string {
	return NameKey(r.Name)
}

// Locality is a candidate place to be ordered relative to the references.
type Locality struct {
	Name     string `json:"name"`
	Province string `json:"province"`
}

// Key returns the normalized (name, province) identity of the locality.
func (l Locality) Key() string {
	return PlaceKey(l.Name, l.Province)
}

// CoordinateRecord is a persisted geocoding result.
type CoordinateRecord struct {
	Key        string      `json:"key"`
	Coords     Coordinates `json:"coords"`
	ResolvedAt time.Time   `json:"resolved_at"`
}

// DistanceRecord is a persisted distance between two place keys. KeyA
// and KeyB are always stored in canonical (lexically sorted) order.
type DistanceRecord struct {
	KeyA       string         `json:"key_a"`
	KeyB       string         `json:"key_b"`
	DistanceKM float64        `json:"distance_km"`
	Method     DistanceMethod `json:"method"`
	ComputedAt time.Time      `json:"computed_at"`
	Stale      bool           `json:"stale"`
}

// Placement is the per-locality output of the assignment engine: the
// locality, the rank of its assigned reference, and the distance to it.
type Placement struct {
	Locality   Locality `json:"locality"`
	RefRank    int      `json:"ref_rank"`
	DistanceKM float64  `json:"distance_km"`
}
