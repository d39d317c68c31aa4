package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Provider    string
}

// Coordinates returns the result's point.
func (r GeocodingResult) Coordinates() Coordinates {
	return Coordinates{Lat: r.Lat, Lon: r.Lon}
}

// Geocoder resolves a free-text query to a location.
type Geocoder interface {
	// Geocode returns the best match for query. A nil result with a nil
	// error means the provider found nothing.
	Geocode(ctx context.Context, query string) (*GeocodingResult, error)
}
