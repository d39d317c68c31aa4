package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
	"github.com/couchcryptid/cyberattack-map/internal/geocache"
	"github.com/couchcryptid/cyberattack-map/internal/observability"
)

// Extractor reads the raw incident rows.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawRecord, error)
}

// PlaceResolver maps distinct place names to coordinates.
type PlaceResolver interface {
	ResolveAll(ctx context.Context, places []string, onEach func(place string)) (map[string]*domain.Coordinates, error)
	Stats() geocache.Stats
}

// Loader writes the finished dataset somewhere.
type Loader interface {
	Name() string
	Load(ctx context.Context, ds domain.Dataset) error
}

// Options configures a run.
type Options struct {
	Build   domain.BuildOptions
	Dataset domain.DatasetOptions
	// Progress receives a progress bar during geocoding; nil logs instead.
	Progress io.Writer
}

// Summary describes a completed run.
type Summary struct {
	Rows         int
	Places       int
	Lookups      int
	CacheHits    int
	Fallbacks    int
	UnknownDates int
	Duration     time.Duration
}

// Pipeline runs extract, resolve, transform and load once, in that order.
type Pipeline struct {
	extractor Extractor
	resolver  PlaceResolver
	loaders   []Loader
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, r PlaceResolver, loaders []Loader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		resolver:  r,
		loaders:   loaders,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes the whole generation. Geocoding problems and unparseable
// dates degrade individual records; only I/O failures and cancellation
// abort the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	p.logger.Info("pipeline started")

	records, err := p.extractor.Extract(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsRead.Add(float64(len(records)))

	places := make([]string, len(records))
	for i, rec := range records {
		places[i] = domain.NormalizeRecord(rec).Place
	}
	distinct := geocache.DistinctPlaces(places)

	progress := newProgress(p.opts.Progress, len(distinct), p.logger)
	coords, err := p.resolver.ResolveAll(ctx, distinct, progress.step)
	progress.finish()
	if err != nil {
		return Summary{}, fmt.Errorf("resolve places: %w", err)
	}

	incidents, fallbacks := Transform(records, coords, p.opts.Build, p.opts.Dataset.Fallback)
	p.metrics.FallbackAssignments.Add(float64(fallbacks))

	ds := domain.NewDataset(incidents, p.opts.Dataset)
	for _, l := range p.loaders {
		if err := l.Load(ctx, ds); err != nil {
			return Summary{}, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		p.metrics.IncidentsWritten.WithLabelValues(l.Name()).Add(float64(len(incidents)))
	}

	stats := p.resolver.Stats()
	summary := Summary{
		Rows:         len(records),
		Places:       len(distinct),
		Lookups:      stats.Lookups,
		CacheHits:    stats.CacheHits,
		Fallbacks:    fallbacks,
		UnknownDates: countUnknownDates(incidents),
		Duration:     time.Since(start),
	}
	p.metrics.RunDuration.Set(summary.Duration.Seconds())

	p.logger.Info("pipeline complete",
		"rows", summary.Rows,
		"places", summary.Places,
		"lookups", summary.Lookups,
		"cache_hits", summary.CacheHits,
		"fallbacks", summary.Fallbacks,
		"unknown_dates", summary.UnknownDates,
		"duration", summary.Duration,
	)
	return summary, nil
}

func countUnknownDates(incidents []domain.Incident) int {
	n := 0
	for i := range incidents {
		if incidents[i].DateISO == nil {
			n++
		}
	}
	return n
}
