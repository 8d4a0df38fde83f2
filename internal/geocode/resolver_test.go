package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destinos-interinos/destinos-cli/internal/model"
	"github.com/destinos-interinos/destinos-cli/internal/store"
	"github.com/destinos-interinos/destinos-cli/pkg/nominatim"
)

// fakeSearcher returns canned results per query and records call order.
type fakeSearcher struct {
	results map[string][]nominatim.Place
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]nominatim.Place, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResolveFirstTemplateWins(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{results: map[string][]nominatim.Place{
		"Granada, Granada, España": {{Lat: 37.1773, Lon: -3.5986, DisplayName: "Granada"}},
	}}
	r := NewResolver(searcher, s)

	c, err := r.Resolve(context.Background(), "Granada", "Granada")
	require.NoError(t, err)
	assert.InDelta(t, 37.1773, c.Lat, 1e-9)
	assert.Equal(t, []string{"Granada, Granada, España"}, searcher.queries)

	// Persisted under the full place key.
	got, ok, err := s.GetCoordinates(context.Background(), "granada, granada, espana")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, -3.5986, got.Lon, 1e-9)
}

func TestResolveIdempotentSecondCallHitsCache(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{results: map[string][]nominatim.Place{
		"Motril, Granada, España": {{Lat: 36.7449, Lon: -3.5179}},
	}}
	r := NewResolver(searcher, s)

	first, err := r.Resolve(context.Background(), "Motril", "Granada")
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), "Motril", "Granada")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, searcher.queries, 1, "second resolve must not hit the network")
}

func TestResolveStoreHitSkipsNetwork(t *testing.T) {
	s := newTestStore(t)
	coords := model.Coordinates{Lat: 37.3891, Lon: -5.9845}
	require.NoError(t, s.PutCoordinates(context.Background(), "sevilla, sevilla, espana", coords))

	searcher := &fakeSearcher{}
	r := NewResolver(searcher, s)

	got, err := r.Resolve(context.Background(), "Sevilla", "Sevilla")
	require.NoError(t, err)
	assert.Equal(t, coords, got)
	assert.Empty(t, searcher.queries)
}

func TestResolveNameOnlyStoreFallback(t *testing.T) {
	s := newTestStore(t)
	coords := model.Coordinates{Lat: 37.1773, Lon: -3.5986}
	// Stored as a reference city (name-only key), looked up with a province hint.
	require.NoError(t, s.PutCoordinates(context.Background(), "granada, espana", coords))

	searcher := &fakeSearcher{}
	r := NewResolver(searcher, s)

	got, err := r.Resolve(context.Background(), "Granada", "Granada")
	require.NoError(t, err)
	assert.Equal(t, coords, got)
	assert.Empty(t, searcher.queries)
}

func TestResolveOutOfSpainDiscardedChainContinues(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{results: map[string][]nominatim.Place{
		// Homonym in South America comes back first.
		"Cordoba, Cordoba, España":              {{Lat: -31.42, Lon: -64.18}},
		"Municipio de Cordoba, Cordoba, España": {{Lat: 37.8882, Lon: -4.7794}},
	}}
	r := NewResolver(searcher, s)

	c, err := r.Resolve(context.Background(), "Cordoba", "Cordoba")
	require.NoError(t, err)
	assert.InDelta(t, 37.8882, c.Lat, 1e-9)
	assert.Equal(t, []string{
		"Cordoba, Cordoba, España",
		"Municipio de Cordoba, Cordoba, España",
	}, searcher.queries)
}

func TestResolveTemplateChainOrder(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{}
	r := NewResolver(searcher, s, WithRegion("Andalucía"))

	_, err := r.Resolve(context.Background(), "Ghosttown", "Granada")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	assert.Equal(t, []string{
		"Ghosttown, Granada, España",
		"Municipio de Ghosttown, Granada, España",
		"Villa de Ghosttown, Granada, España",
		"Ghosttown, Andalucía, España",
		"Ghosttown, España",
	}, searcher.queries)
}

func TestResolveWithoutProvinceSkipsProvinceTemplates(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{}
	r := NewResolver(searcher, s)

	_, err := r.Resolve(context.Background(), "Ghosttown", "")
	require.Error(t, err)

	assert.Equal(t, []string{
		"Ghosttown, Andalucía, España",
		"Ghosttown, España",
	}, searcher.queries)
}

func TestResolveWidestQueryPersistsNameKey(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{results: map[string][]nominatim.Place{
		"Ronda, España": {{Lat: 36.7426, Lon: -5.1671}},
	}}
	r := NewResolver(searcher, s)

	_, err := r.Resolve(context.Background(), "Ronda", "")
	require.NoError(t, err)

	_, ok, err := s.GetCoordinates(context.Background(), "ronda, espana")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveWideMatchReachableByFullKey(t *testing.T) {
	s := newTestStore(t)
	// Only the country-wide template matches; the resolver was asked
	// with a province, so the full key must still find the coordinates.
	searcher := &fakeSearcher{results: map[string][]nominatim.Place{
		"Salobreña, España": {{Lat: 36.7449, Lon: -3.5879}},
	}}
	r := NewResolver(searcher, s)

	_, err := r.Resolve(context.Background(), "Salobreña", "Granada")
	require.NoError(t, err)

	_, ok, err := s.GetCoordinates(context.Background(), "salobrena, granada, espana")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.GetCoordinates(context.Background(), "salobrena, espana")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveQueryErrorContinuesChain(t *testing.T) {
	s := newTestStore(t)
	searcher := &fakeSearcher{
		errs: map[string]error{
			"Nerja, Malaga, España": eris.New("nominatim: status 503"),
		},
		results: map[string][]nominatim.Place{
			"Municipio de Nerja, Malaga, España": {{Lat: 36.7479, Lon: -3.8811}},
		},
	}
	r := NewResolver(searcher, s)

	c, err := r.Resolve(context.Background(), "Nerja", "Malaga")
	require.NoError(t, err)
	assert.InDelta(t, 36.7479, c.Lat, 1e-9)
}

// failingCoordStore always errors, to prove persistence problems are
// swallowed and reads degrade to misses.
type failingCoordStore struct{}

func (failingCoordStore) GetCoordinates(context.Context, string) (model.Coordinates, bool, error) {
	return model.Coordinates{}, false, eris.New("disk on fire")
}

func (failingCoordStore) PutCoordinates(context.Context, string, model.Coordinates) error {
	return eris.New("disk on fire")
}

func TestResolveSurvivesStoreFailures(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]nominatim.Place{
		"Granada, Granada, España": {{Lat: 37.1773, Lon: -3.5986}},
	}}
	r := NewResolver(searcher, failingCoordStore{})

	c, err := r.Resolve(context.Background(), "Granada", "Granada")
	require.NoError(t, err)
	assert.InDelta(t, 37.1773, c.Lat, 1e-9)
}
