package pipeline

import (
	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

// Transform builds one incident per record and places it using the
// resolved coordinates, keyed by domain.PlaceKey. Records whose place is
// empty, unresolvable or absent from coords get the fallback centroid; the
// second return value counts them.
func Transform(records []domain.RawRecord, coords map[string]*domain.Coordinates, opts domain.BuildOptions, fallback domain.Coordinates) ([]domain.Incident, int) {
	incidents := make([]domain.Incident, 0, len(records))
	fallbacks := 0
	for _, rec := range records {
		inc := domain.BuildIncident(rec, opts)
		inc = domain.AssignCoordinates(inc, coords[domain.PlaceKey(inc.Place)], fallback)
		if inc.GeoSource == domain.GeoSourceFallback {
			fallbacks++
		}
		incidents = append(incidents, inc)
	}
	return incidents, fallbacks
}
