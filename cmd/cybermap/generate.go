package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cyberattack-map/internal/adapter/htmlmap"
	"github.com/couchcryptid/cyberattack-map/internal/adapter/kafka"
	"github.com/couchcryptid/cyberattack-map/internal/adapter/mapbox"
	"github.com/couchcryptid/cyberattack-map/internal/adapter/nominatim"
	"github.com/couchcryptid/cyberattack-map/internal/adapter/ratelimit"
	"github.com/couchcryptid/cyberattack-map/internal/adapter/source"
	"github.com/couchcryptid/cyberattack-map/internal/config"
	"github.com/couchcryptid/cyberattack-map/internal/domain"
	"github.com/couchcryptid/cyberattack-map/internal/geocache"
	"github.com/couchcryptid/cyberattack-map/internal/observability"
	"github.com/couchcryptid/cyberattack-map/internal/pipeline"
)

func newGenerateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Geocode the input and write the HTML map (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, a)
		},
	}
}

func runGenerate(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	cfg, logger := a.cfg, a.logger
	metrics := observability.NewMetrics()

	geocoder := newGeocoder(cfg, logger)
	store := geocache.Open(cfg.CachePath, logger)
	resolver := geocache.NewResolver(store, geocoder, geocache.Options{Country: cfg.Country}, logger, metrics)

	renderer := htmlmap.NewRenderer(cfg.OutputPath, htmlmap.Options{
		Center:        htmlmap.DefaultCenter,
		Zoom:          htmlmap.DefaultZoom,
		SentinelLabel: cfg.SentinelLabel,
	}, logger)
	loaders := []pipeline.Loader{renderer}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafka.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	fallback := domain.Coordinates{Lat: cfg.FallbackLat, Lon: cfg.FallbackLon}
	p := pipeline.New(source.NewReader(cfg.InputPath, logger), resolver, loaders, pipeline.Options{
		Build: domain.BuildOptions{
			DefaultYear:     cfg.DefaultYear,
			SentinelCompany: cfg.SentinelCompany,
		},
		Dataset: domain.DatasetOptions{
			Title:    cfg.Title,
			Region:   cfg.Region,
			Year:     cfg.DefaultYear,
			Fallback: fallback,
		},
		Progress: pipeline.TerminalProgress(),
	}, logger, metrics)

	summary, err := p.Run(ctx)
	if pushErr := metrics.Push(ctx, cfg.PushgatewayURL); pushErr != nil {
		logger.Warn("metrics push failed", "error", pushErr)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Done, HTML file generated: %s\n", cfg.OutputPath)
	fmt.Fprintf(out, "%d incidents, %d places (%d looked up, %d from cache), %d at the fallback location.\n",
		summary.Rows, summary.Places, summary.Lookups, summary.CacheHits, summary.Fallbacks)
	fmt.Fprintf(out, "Check %s for stored coordinates (you can edit them manually if needed).\n", cfg.CachePath)
	return nil
}

// newGeocoder builds the configured provider behind the rate limiter, or
// returns nil when geocoding is disabled.
func newGeocoder(cfg *config.Config, logger *slog.Logger) domain.Geocoder {
	var inner domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderNominatim:
		inner = nominatim.NewClient(cfg.NominatimURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger)
	case config.ProviderMapbox:
		inner = mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderTimeout, logger)
	default:
		logger.Info("geocoding disabled, uncached places use the fallback location")
		return nil
	}
	logger.Info("geocoding enabled",
		"provider", cfg.GeocoderProvider,
		"min_interval", cfg.GeocoderMinInterval,
		"max_retries", cfg.GeocoderMaxRetries,
	)
	return ratelimit.New(inner, ratelimit.Options{
		MinInterval: cfg.GeocoderMinInterval,
		MaxRetries:  cfg.GeocoderMaxRetries,
		ErrorWait:   cfg.GeocoderErrorWait,
	}, nil, logger)
}
