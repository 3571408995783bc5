package geodesy

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// ErrInsufficientPoints is returned when the control points cannot determine
// an affine transform: fewer than three, or all on one line.
var ErrInsufficientPoints = errors.New("insufficient control points for affine fit")

// rankTolerance bounds the smallest normalised singular value of the design
// matrix below which the points are treated as collinear.
const rankTolerance = 1e-9

// FitAffine returns the least-squares affine transform mapping each point's
// (Pixel, Line) to its (Longitude, Latitude).
func FitAffine(points []raster.GCP) (GeoTransform, error) {
	n := len(points)
	if n < 3 {
		return GeoTransform{}, fmt.Errorf("%w: got %d, need 3", ErrInsufficientPoints, n)
	}

	// Centre and scale raster coordinates so the rank test and the solve do
	// not depend on the raster size.
	var meanP, meanL float64
	for _, p := range points {
		meanP += p.Pixel
		meanL += p.Line
	}
	meanP /= float64(n)
	meanL /= float64(n)

	var sdP, sdL float64
	for _, p := range points {
		sdP += (p.Pixel - meanP) * (p.Pixel - meanP)
		sdL += (p.Line - meanL) * (p.Line - meanL)
	}
	sdP = math.Sqrt(sdP / float64(n))
	sdL = math.Sqrt(sdL / float64(n))
	if sdP == 0 || sdL == 0 {
		return GeoTransform{}, fmt.Errorf("%w: %d points share one raster row or column", ErrInsufficientPoints, n)
	}

	design := mat.NewDense(n, 3, nil)
	targets := mat.NewDense(n, 2, nil)
	for i, p := range points {
		design.Set(i, 0, 1)
		design.Set(i, 1, (p.Pixel-meanP)/sdP)
		design.Set(i, 2, (p.Line-meanL)/sdL)
		targets.Set(i, 0, p.Longitude)
		targets.Set(i, 1, p.Latitude)
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDNone); !ok {
		return GeoTransform{}, fmt.Errorf("failed to factorize control point design matrix")
	}
	values := svd.Values(nil)
	if values[len(values)-1] <= values[0]*rankTolerance {
		return GeoTransform{}, fmt.Errorf("%w: %d points are collinear", ErrInsufficientPoints, n)
	}

	var coef mat.Dense
	if err := coef.Solve(design, targets); err != nil {
		return GeoTransform{}, fmt.Errorf("failed to solve affine fit: %w", err)
	}

	// Undo the normalisation: x = c + a*(p-meanP)/sdP + b*(l-meanL)/sdL.
	var gt GeoTransform
	for k, off := range []int{0, 3} {
		c, a, b := coef.At(0, k), coef.At(1, k)/sdP, coef.At(2, k)/sdL
		gt[off] = c - a*meanP - b*meanL
		gt[off+1] = a
		gt[off+2] = b
	}
	return gt, nil
}

// RMSE returns the root mean square distance, in geographic units, between
// each point and where gt maps its raster position.
func RMSE(gt GeoTransform, points []raster.GCP) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		x, y := gt.Apply(p.Pixel, p.Line)
		dx, dy := x-p.Longitude, y-p.Latitude
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(len(points)))
}
