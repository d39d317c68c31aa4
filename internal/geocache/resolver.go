package geocache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
	"github.com/couchcryptid/cyberattack-map/internal/observability"
)

// Options configures how places are turned into geocoder queries.
type Options struct {
	// Country is appended to every query ("<place>, <Country>").
	Country string
}

// Stats counts what a Resolver did during a run.
type Stats struct {
	CacheHits  int
	Lookups    int
	Resolved   int
	Unresolved int
}

// Resolver maps place names to coordinates through a Store. Places missing
// from the store are looked up once and the outcome, found or not, is
// recorded and saved immediately.
type Resolver struct {
	store    *Store
	geocoder domain.Geocoder
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	stats    Stats
}

// NewResolver creates a Resolver. A nil geocoder runs offline: cache
// misses resolve to nil without recording a marker.
func NewResolver(store *Store, geocoder domain.Geocoder, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		store:    store,
		geocoder: geocoder,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() Stats { return r.stats }

// Query builds the geocoder query for a place.
func (r *Resolver) Query(place string) string {
	place = strings.TrimSpace(place)
	if r.opts.Country == "" {
		return place
	}
	return place + ", " + r.opts.Country
}

// Resolve returns the coordinates for place, or nil when the place is empty
// or known to be unresolvable. The only errors returned are context
// cancellation and failure to save the cache file.
func (r *Resolver) Resolve(ctx context.Context, place string) (*domain.Coordinates, error) {
	key := domain.PlaceKey(place)
	if key == "" {
		return nil, nil
	}

	if coords, ok := r.store.Get(key); ok {
		r.stats.CacheHits++
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return coords, nil
	}
	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	if r.geocoder == nil {
		r.logger.Debug("offline, place not cached", "place", place)
		return nil, nil
	}

	query := r.Query(place)
	r.stats.Lookups++
	start := time.Now()
	result, err := r.geocoder.Geocode(ctx, query)
	r.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	var coords *domain.Coordinates
	switch {
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		r.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		r.logger.Warn("geocoding failed, marking unresolvable", "place", place, "query", query, "error", err)
	case result == nil:
		r.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		r.logger.Info("no geocoding match, marking unresolvable", "place", place, "query", query)
	default:
		r.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		c := result.Coordinates()
		coords = &c
		r.logger.Debug("geocoded", "place", place, "lat", c.Lat, "lon", c.Lon, "provider", result.Provider)
	}

	if coords != nil {
		r.stats.Resolved++
	} else {
		r.stats.Unresolved++
	}

	r.store.Put(key, coords)
	if err := r.store.Save(); err != nil {
		return nil, err
	}
	return coords, nil
}

// ResolveAll resolves each distinct place once, in first-seen order, and
// returns the results keyed by domain.PlaceKey. onEach, when non-nil, is
// called after every distinct non-empty place.
func (r *Resolver) ResolveAll(ctx context.Context, places []string, onEach func(place string)) (map[string]*domain.Coordinates, error) {
	out := make(map[string]*domain.Coordinates)
	for _, place := range DistinctPlaces(places) {
		coords, err := r.Resolve(ctx, place)
		if err != nil {
			return nil, err
		}
		out[domain.PlaceKey(place)] = coords
		if onEach != nil {
			onEach(place)
		}
	}
	return out, nil
}

// DistinctPlaces returns the non-empty places of names with duplicate keys
// removed, keeping the first spelling seen.
func DistinctPlaces(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, name := range names {
		key := domain.PlaceKey(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Prune removes every unresolvable marker from the store and returns the
// removed keys. The caller decides whether to Save.
func Prune(store *Store) []string {
	var removed []string
	for _, key := range store.Keys() {
		if coords, ok := store.Get(key); ok && coords == nil {
			store.Delete(key)
			removed = append(removed, key)
		}
	}
	return removed
}
