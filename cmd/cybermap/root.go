package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cyberattack-map/internal/config"
	"github.com/couchcryptid/cyberattack-map/internal/observability"
)

// app carries what every subcommand needs once flags are applied.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// rootFlags are overrides for the matching environment variables.
type rootFlags struct {
	input   string
	output  string
	cache   string
	year    int
	offline bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "cybermap",
		Short: "Generate an interactive map of cyberattack incidents",
		Long: `Reads a table of cyberattack incidents, geocodes each place once through
a local cache and writes a single HTML page with a Leaflet map and
client-side filters.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = observability.NewLogger(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, a)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.input, "input", "i", "", "incident table, CSV or XLSX (env CYBERMAP_INPUT)")
	pf.StringVarP(&flags.output, "output", "o", "", "HTML file to write (env CYBERMAP_OUTPUT)")
	pf.StringVar(&flags.cache, "cache", "", "geocode cache file, .json or .yaml (env CYBERMAP_CACHE)")
	pf.IntVar(&flags.year, "year", 0, "year assumed for dates without one (env CYBERMAP_DEFAULT_YEAR)")
	pf.BoolVar(&flags.offline, "offline", false, "never call a geocoder; uncached places use the fallback")

	cmd.AddCommand(newGenerateCommand(a))
	cmd.AddCommand(newValidateCommand(a))
	cmd.AddCommand(newCacheCommand(a))

	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.InputPath = f.input
	}
	if changed("output") {
		cfg.OutputPath = f.output
	}
	if changed("cache") {
		cfg.CachePath = f.cache
	}
	if changed("year") {
		cfg.DefaultYear = f.year
	}
	if f.offline {
		cfg.GeocoderProvider = config.ProviderNone
	}
	return cfg.Validate()
}
