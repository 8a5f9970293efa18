package surfline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surflog/surf-forecast-service/internal/observability"
)

// mapCache is a plain map-backed SpotCache for tests.
type mapCache struct {
	entries map[string]SpotReference
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]SpotReference)}
}

func (c *mapCache) Get(_ context.Context, key string) (SpotReference, bool) {
	ref, ok := c.entries[key]
	return ref, ok
}

func (c *mapCache) Set(_ context.Context, key string, ref SpotReference) {
	c.entries[key] = ref
}

func searchBody(hits string) string {
	return `[{"hits":{"hits":[` + hits + `]}}]`
}

func testResolver(proxyURL string, cache SpotCache) *Resolver {
	return NewResolver(testClient(proxyURL), cache,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestResolveSpot_ExactMatchPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchBody(
			`{"_id":"1","_source":{"name":"Trestles North","href":"/n","breadCrumbs":["United States","California"]}},` +
				`{"_id":"2","_source":{"name":"Trestles","href":"/t","breadCrumbs":["United States","California","San Clemente"]}}`,
		)))
	}))
	defer srv.Close()

	r := testResolver(srv.URL, newMapCache())
	ref, err := r.ResolveSpot(context.Background(), "trestles")
	require.NoError(t, err)

	assert.Equal(t, "2", ref.SpotID)
	assert.Equal(t, "Trestles", ref.SpotName)
	assert.Equal(t, "/t", ref.Href)
	assert.Equal(t, "United States › California › San Clemente", ref.Region)
}

func TestResolveSpot_FallsBackToFirstHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchBody(
			`{"_id":"1","_source":{"name":"Popoyo Outer Reef","href":"/p","breadCrumbs":["Nicaragua","Rivas"]}},` +
				`{"_id":"2","_source":{"name":"Popoyo Beach Break","href":"/b","breadCrumbs":["Nicaragua","Rivas"]}}`,
		)))
	}))
	defer srv.Close()

	r := testResolver(srv.URL, newMapCache())
	ref, err := r.ResolveSpot(context.Background(), "popoyo")
	require.NoError(t, err)

	// No exact name match: the first-ranked hit wins.
	assert.Equal(t, "1", ref.SpotID)
	assert.Equal(t, "Popoyo Outer Reef", ref.SpotName)
}

func TestResolveSpot_CachesCaseInsensitively(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(searchBody(
			`{"_id":"1","_source":{"name":"Trestles","href":"/t","breadCrumbs":["United States","California"]}}`,
		)))
	}))
	defer srv.Close()

	r := testResolver(srv.URL, newMapCache())

	first, err := r.ResolveSpot(context.Background(), "Trestles")
	require.NoError(t, err)

	second, err := r.ResolveSpot(context.Background(), "TRESTLES")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second lookup must be served from cache")
}

func TestResolveSpot_NoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchBody("")))
	}))
	defer srv.Close()

	r := testResolver(srv.URL, newMapCache())
	_, err := r.ResolveSpot(context.Background(), "atlantis")
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestResolveSpot_TransportErrorMapsToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := testResolver(srv.URL, newMapCache())
	_, err := r.ResolveSpot(context.Background(), "trestles")
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestResolveSpot_MalformedResponseMapsToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	r := testResolver(srv.URL, newMapCache())
	_, err := r.ResolveSpot(context.Background(), "trestles")
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestResolveSpot_EmptyName(t *testing.T) {
	r := testResolver("http://unused.invalid", newMapCache())
	_, err := r.ResolveSpot(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrSpotNotFound)
}
