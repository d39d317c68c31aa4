package domain

import "github.com/uber/h3-go/v4"

// H3Resolution is the cell size attached to incidents (~5 km² hexagons).
const H3Resolution = 7

// AssignCoordinates places an incident on the map. A nil resolved point
// (unresolvable or empty place) gives the fallback centroid, so the returned
// incident always carries coordinates.
func AssignCoordinates(inc Incident, resolved *Coordinates, fallback Coordinates) Incident {
	if resolved != nil {
		inc.Lat = resolved.Lat
		inc.Lon = resolved.Lon
		inc.GeoSource = GeoSourceGeocoded
	} else {
		inc.Lat = fallback.Lat
		inc.Lon = fallback.Lon
		inc.GeoSource = GeoSourceFallback
	}
	inc.H3Cell = h3Cell(inc.Lat, inc.Lon)
	return inc
}

// h3Cell returns the H3 index of a point, or "" when it cannot be computed.
func h3Cell(lat, lon float64) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), H3Resolution)
	if err != nil {
		return ""
	}
	return cell.String()
}
