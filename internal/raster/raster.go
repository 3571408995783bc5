// Package raster defines the pixel-level contracts between the deburst core
// and the raster files it reads and writes.
package raster

import (
	"context"
	"math"
	"math/cmplx"
)

// GCP is a ground control point tying a raster (pixel, line) position to a
// geographic position. Longitude and latitude are in degrees, elevation in metres.
type GCP struct {
	Line      float64 `json:"line"`
	Pixel     float64 `json:"pixel"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Elevation float64 `json:"elevation"`
}

// Block is a row-major buffer of complex samples.
type Block struct {
	Width, Height int
	Data          []complex64
}

// NewBlock allocates a zeroed width x height block.
func NewBlock(width, height int) *Block {
	return &Block{
		Width:  width,
		Height: height,
		Data:   make([]complex64, width*height),
	}
}

// At returns the sample at column x, row y.
func (b *Block) At(x, y int) complex64 { return b.Data[y*b.Width+x] }

// Set stores the sample at column x, row y.
func (b *Block) Set(x, y int, v complex64) { b.Data[y*b.Width+x] = v }

// Row returns row y as a slice aliasing the block data.
func (b *Block) Row(y int) []complex64 { return b.Data[y*b.Width : (y+1)*b.Width] }

// Amplitude returns 10*log10(|z|+1) for every sample.
func (b *Block) Amplitude() []float32 {
	out := make([]float32, len(b.Data))
	for i, v := range b.Data {
		out[i] = float32(10 * math.Log10(cmplx.Abs(complex128(v))+1))
	}
	return out
}

// Phase returns the argument of every sample in radians.
func (b *Block) Phase() []float32 {
	out := make([]float32, len(b.Data))
	for i, v := range b.Data {
		out[i] = float32(cmplx.Phase(complex128(v)))
	}
	return out
}

// Reader reads rectangular windows of samples out of a raster file.
type Reader interface {
	ReadWindow(ctx context.Context, path string, x, y, width, height int) (*Block, error)
}

// GCPSource lists the ground control points attached to a raster, in the
// order the source stores them.
type GCPSource interface {
	GroundControlPoints(ctx context.Context, path string) ([]GCP, error)
}

// Writer durably stores a block together with its affine geotransform and
// spatial reference.
type Writer interface {
	Write(ctx context.Context, name string, block *Block, geoTransform [6]float64, srs string) error
}

func checkWindow(rasterWidth, rasterHeight, x, y, width, height int) bool {
	return width > 0 && height > 0 &&
		x >= 0 && y >= 0 &&
		x+width <= rasterWidth && y+height <= rasterHeight
}
