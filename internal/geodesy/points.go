package geodesy

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// ValidPoint reports whether a control point has finite raster coordinates
// and a geographic position on the globe.
func ValidPoint(p raster.GCP) bool {
	if math.IsNaN(p.Pixel) || math.IsNaN(p.Line) || math.IsInf(p.Pixel, 0) || math.IsInf(p.Line, 0) {
		return false
	}
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude).IsValid()
}

// Bounds returns the [west, south, east, north] bounding box of the valid
// points, or nil when there are none. Boxes crossing the antimeridian have
// west > east.
func Bounds(points []raster.GCP) []float64 {
	rect := s2.EmptyRect()
	for _, p := range points {
		if !ValidPoint(p) {
			continue
		}
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Latitude, p.Longitude))
	}
	if rect.IsEmpty() {
		return nil
	}

	lo, hi := rect.Lo(), rect.Hi()
	return []float64{lo.Lng.Degrees(), lo.Lat.Degrees(), hi.Lng.Degrees(), hi.Lat.Degrees()}
}
