// Package geodesy derives affine geotransforms from ground control points.
package geodesy

// GeoTransform maps raster coordinates to geographic coordinates:
//
//	X = GT[0] + pixel*GT[1] + line*GT[2]
//	Y = GT[3] + pixel*GT[4] + line*GT[5]
type GeoTransform [6]float64

// Apply maps (pixel, line) to (x, y).
func (gt GeoTransform) Apply(pixel, line float64) (x, y float64) {
	x = gt[0] + pixel*gt[1] + line*gt[2]
	y = gt[3] + pixel*gt[4] + line*gt[5]
	return x, y
}

// Translate moves the origin of the transform to raster position
// (xOffset, yOffset), so that the result maps pixel (0,0) to where gt maps
// (xOffset, yOffset).
func (gt GeoTransform) Translate(xOffset, yOffset float64) GeoTransform {
	return GeoTransform{
		gt[0] + xOffset*gt[1] + yOffset*gt[2],
		gt[1],
		gt[2],
		gt[3] + xOffset*gt[4] + yOffset*gt[5],
		gt[4],
		gt[5],
	}
}

// Footprint returns the closed ring of [x, y] corners of a width x height
// raster, in the order top-left, top-right, bottom-right, bottom-left.
func (gt GeoTransform) Footprint(width, height int) [][]float64 {
	w, h := float64(width), float64(height)
	corners := [][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}, {0, 0}}

	ring := make([][]float64, len(corners))
	for i, c := range corners {
		x, y := gt.Apply(c[0], c[1])
		ring[i] = []float64{x, y}
	}
	return ring
}
