package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Geocoding providers.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
	ProviderNone      = "none"
)

// Config holds all generator settings, populated from environment variables.
type Config struct {
	InputPath  string
	OutputPath string
	CachePath  string

	DefaultYear     int
	Title           string
	Region          string // label used in the document title
	Country         string // qualifier appended to every geocoding query
	FallbackLat     float64
	FallbackLon     float64
	SentinelCompany string
	SentinelLabel   string // how the sentinel company is named on the map

	LogLevel  string
	LogFormat string

	// Geocoding configuration.
	GeocoderProvider    string
	NominatimURL        string
	GeocoderUserAgent   string
	GeocoderTimeout     time.Duration
	GeocoderMinInterval time.Duration
	GeocoderMaxRetries  int
	GeocoderErrorWait   time.Duration
	MapboxToken         string

	// Optional sinks.
	KafkaBrokers   []string
	KafkaTopic     string
	PushgatewayURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first when present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	year, err := parseInt("CYBERMAP_DEFAULT_YEAR", 2024)
	if err != nil {
		return nil, err
	}
	fallbackLat, err := parseFloat("CYBERMAP_FALLBACK_LAT", 52.132633)
	if err != nil {
		return nil, err
	}
	fallbackLon, err := parseFloat("CYBERMAP_FALLBACK_LON", 5.291266)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	minInterval, err := parseDuration("GEOCODER_MIN_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	errorWait, err := parseDuration("GEOCODER_ERROR_WAIT", "2s")
	if err != nil {
		return nil, err
	}
	maxRetries, err := parseInt("GEOCODER_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	defaultProvider := ProviderNominatim
	if mapboxToken != "" {
		defaultProvider = ProviderMapbox
	}

	cfg := &Config{
		InputPath:       sharedcfg.EnvOrDefault("CYBERMAP_INPUT", "cyber_ndl.csv"),
		OutputPath:      sharedcfg.EnvOrDefault("CYBERMAP_OUTPUT", "cyberattacks_map.html"),
		CachePath:       sharedcfg.EnvOrDefault("CYBERMAP_CACHE", "geo_cache.json"),
		DefaultYear:     year,
		Title:           os.Getenv("CYBERMAP_TITLE"),
		Region:          sharedcfg.EnvOrDefault("CYBERMAP_REGION", "the Netherlands"),
		Country:         sharedcfg.EnvOrDefault("CYBERMAP_COUNTRY", "Netherlands"),
		FallbackLat:     fallbackLat,
		FallbackLon:     fallbackLon,
		SentinelCompany: sharedcfg.EnvOrDefault("CYBERMAP_SENTINEL_COMPANY", "addcomm"),
		SentinelLabel:   sharedcfg.EnvOrDefault("CYBERMAP_SENTINEL_LABEL", "AddComm"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),

		GeocoderProvider:    strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", defaultProvider)),
		NominatimURL:        sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent:   sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "cyberattacks-nl-map-script"),
		GeocoderTimeout:     timeout,
		GeocoderMinInterval: minInterval,
		GeocoderMaxRetries:  maxRetries,
		GeocoderErrorWait:   errorWait,
		MapboxToken:         mapboxToken,

		KafkaBrokers:   sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "cyber-incidents"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that flag overrides could also break.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("CYBERMAP_INPUT is required")
	}
	if c.OutputPath == "" {
		return errors.New("CYBERMAP_OUTPUT is required")
	}
	if c.CachePath == "" {
		return errors.New("CYBERMAP_CACHE is required")
	}
	if c.DefaultYear < 1900 || c.DefaultYear > 2999 {
		return fmt.Errorf("invalid CYBERMAP_DEFAULT_YEAR %d", c.DefaultYear)
	}
	if c.FallbackLat < -90 || c.FallbackLat > 90 {
		return errors.New("CYBERMAP_FALLBACK_LAT must be within [-90, 90]")
	}
	if c.FallbackLon < -180 || c.FallbackLon > 180 {
		return errors.New("CYBERMAP_FALLBACK_LON must be within [-180, 180]")
	}
	switch c.GeocoderProvider {
	case ProviderNominatim, ProviderNone:
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return fmt.Errorf("unknown GEOCODER_PROVIDER %q", c.GeocoderProvider)
	}
	if c.GeocoderMaxRetries < 0 {
		return errors.New("GEOCODER_MAX_RETRIES must not be negative")
	}
	if c.GeocoderUserAgent == "" && c.GeocoderProvider == ProviderNominatim {
		return errors.New("GEOCODER_USER_AGENT is required for nominatim")
	}
	return nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
