package surfline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/surflog/surf-forecast-service/internal/common"
	"github.com/surflog/surf-forecast-service/internal/observability"
)

// ErrSpotNotFound is returned when a spot name yields no usable Surfline hit,
// including when the search call itself fails. Callers treat both the same.
var ErrSpotNotFound = errors.New("surf spot not found")

// SpotReference identifies a Surfline spot resolved from a free-text name.
type SpotReference struct {
	SpotID   string `json:"spotId"`
	SpotName string `json:"spotName"`
	Href     string `json:"href"`
	Region   string `json:"region"`
}

// SpotCache stores resolved spots keyed by lowercase lookup name.
type SpotCache interface {
	Get(ctx context.Context, key string) (SpotReference, bool)
	Set(ctx context.Context, key string, ref SpotReference)
}

// Resolver maps free-text spot names to SpotReferences via Surfline's
// site-search endpoint, consulting the cache first.
type Resolver struct {
	client  *Client
	cache   SpotCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewResolver creates a spot resolver backed by the given client and cache.
func NewResolver(client *Client, cache SpotCache, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:  client,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// ResolveSpot returns the best Surfline match for name. An exact
// case-insensitive name match wins; otherwise the first-ranked hit is used
// (Surfline pre-sorts hits by relevance). Results are cached for the process
// lifetime keyed by the lowercased input.
func (r *Resolver) ResolveSpot(ctx context.Context, name string) (SpotReference, error) {
	if strings.TrimSpace(name) == "" {
		return SpotReference{}, ErrSpotNotFound
	}

	key := strings.ToLower(name)
	if ref, ok := r.cache.Get(ctx, key); ok {
		r.metrics.SpotCacheLookups.WithLabelValues("hit").Inc()
		return ref, nil
	}
	r.metrics.SpotCacheLookups.WithLabelValues("miss").Inc()

	query := url.Values{
		"q":    {name},
		"type": {"spot"},
	}

	body, err := r.client.get(ctx, "search", "/search/site", query)
	if err != nil {
		r.logger.Error("spot search failed", "spot", name, "error", err)
		return SpotReference{}, ErrSpotNotFound
	}

	hits, err := parseSearchHits(body)
	if err != nil {
		r.logger.Error("spot search response malformed", "spot", name, "error", err)
		return SpotReference{}, ErrSpotNotFound
	}
	if len(hits) == 0 {
		r.logger.Info("no spots found", "spot", name)
		return SpotReference{}, ErrSpotNotFound
	}

	chosen := hits[0]
	for _, h := range hits {
		if common.EqualsFold(h.Source.Name, name) {
			chosen = h
			break
		}
	}

	ref := SpotReference{
		SpotID:   chosen.ID,
		SpotName: chosen.Source.Name,
		Href:     chosen.Source.Href,
		Region:   strings.Join(chosen.Source.BreadCrumbs, " › "),
	}

	r.logger.Info("resolved spot", "query", name, "spot", ref.SpotName, "id", ref.SpotID)
	r.cache.Set(ctx, key, ref)
	return ref, nil
}

// The search endpoint returns a JSON array; the first element carries the
// Elasticsearch-style hit list for spots.
type searchSection struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string `json:"_id"`
	Source struct {
		Name        string   `json:"name"`
		Href        string   `json:"href"`
		BreadCrumbs []string `json:"breadCrumbs"`
	} `json:"_source"`
}

func parseSearchHits(body []byte) ([]searchHit, error) {
	var sections []searchSection
	if err := json.Unmarshal(body, &sections); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, nil
	}
	return sections[0].Hits.Hits, nil
}
