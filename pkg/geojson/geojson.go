// Package geojson provides the GeoJSON geometry used for mosaic footprints.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// BBox computes the bounding box of the geometry.
// Returns [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// NewPolygon creates a single-ring polygon. The ring is closed if its last
// point differs from its first.
func NewPolygon(ring [][]float64) (*Geometry, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon ring needs at least 3 points, got %d", len(ring))
	}
	for i, p := range ring {
		if len(p) < 2 {
			return nil, fmt.Errorf("invalid point %d in polygon ring: expected at least 2 coordinates", i)
		}
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return nil, fmt.Errorf("invalid point %d in polygon ring: non-finite coordinate", i)
		}
	}

	closed := make([][]float64, len(ring), len(ring)+1)
	copy(closed, ring)
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		closed = append(closed, first)
	}
	if len(closed) < 4 {
		return nil, fmt.Errorf("closed polygon ring needs at least 4 points, got %d", len(closed))
	}

	coordsJSON, err := json.Marshal([][][]float64{closed})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon coordinates: %w", err)
	}

	return &Geometry{
		Type:        "Polygon",
		Coordinates: coordsJSON,
	}, nil
}

// NewPolygonFromBBox creates a polygon geometry from a bounding box.
// bbox should be [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]
	return NewPolygon([][]float64{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
	})
}

// ComputeBBox computes the bounding box of a polygon.
// Returns [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	coords, err := g.Polygon()
	if err != nil {
		return nil, err
	}

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, ring := range coords {
		for _, point := range ring {
			if len(point) < 2 {
				continue
			}
			minLon = math.Min(minLon, point[0])
			maxLon = math.Max(maxLon, point[0])
			minLat = math.Min(minLat, point[1])
			maxLat = math.Max(maxLat, point[1])
		}
	}

	if math.IsInf(minLon, 0) || math.IsInf(minLat, 0) {
		return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
	}

	return []float64{minLon, minLat, maxLon, maxLat}, nil
}

// ToWKT converts a polygon to WKT.
func ToWKT(g *Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("geometry is nil")
	}

	coords, err := g.Polygon()
	if err != nil {
		return "", err
	}

	var rings []string
	for _, ring := range coords {
		points := make([]string, len(ring))
		for i, point := range ring {
			if len(point) < 2 {
				return "", fmt.Errorf("invalid point in polygon ring: expected at least 2 coordinates")
			}
			points[i] = formatFloat(point[0]) + " " + formatFloat(point[1])
		}
		rings = append(rings, "("+strings.Join(points, ",")+")")
	}

	return "POLYGON(" + strings.Join(rings, ",") + ")", nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
