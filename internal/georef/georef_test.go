package georef

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/deburst"
	"github.com/robert-malhotra/s1-deburst/internal/geodesy"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

func metadata(anx float64) burst.Metadata {
	const lines, samples = 100, 300
	first := make([]int, lines)
	last := make([]int, lines)
	for i := range first {
		first[i], last[i] = -1, -1
		if i >= 10 && i < 90 {
			first[i], last[i] = 5, 295
		}
	}
	return burst.Metadata{
		LinesPerBurst:       lines,
		SamplesPerBurst:     samples,
		AzimuthTimeInterval: 0.002,
		AzimuthAnxTime:      anx,
		FirstValidSample:    first,
		LastValidSample:     last,
	}
}

// threeBursts has overlaps [0, 10, 10], width 290 and origin (5, 10).
func threeBursts(t *testing.T) *burst.Swath {
	t.Helper()
	s, err := burst.NewSwath([]burst.Metadata{metadata(0), metadata(0.141), metadata(0.282)})
	if err != nil {
		t.Fatalf("NewSwath() error: %v", err)
	}
	return s
}

// trimmedFrame maps raw pixel and overlap-trimmed line to lon/lat.
var trimmedFrame = geodesy.GeoTransform{10, 1e-3, 2e-4, 50, -1e-4, -8e-4}

// gridGCPs places control points on a grid over the raw raster; lon/lat are
// consistent with trimmedFrame once each point's burst overlap is removed.
func gridGCPs(pixels []float64) []raster.GCP {
	cumulative := []float64{0, 10, 20}
	var gcps []raster.GCP
	for _, line := range []float64{0, 45, 99, 100, 150, 199, 200, 260, 299} {
		for _, pixel := range pixels {
			i := int(line) / 100
			lon, lat := trimmedFrame.Apply(pixel, line-cumulative[i])
			gcps = append(gcps, raster.GCP{Line: line, Pixel: pixel, Longitude: lon, Latitude: lat, Elevation: 12})
		}
	}
	return gcps
}

func TestRereference(t *testing.T) {
	s := threeBursts(t)
	gcps := gridGCPs([]float64{0, 5, 100, 294, 295, 299})

	res, err := NewReferencer().Rereference(s, gcps)
	if err != nil {
		t.Fatalf("Rereference() error: %v", err)
	}

	// pixels 0, 295 and 299 fall outside [5, 295) on every line
	if got, want := len(res.GCPs), 9*3; got != want {
		t.Errorf("kept %d GCPs, want %d", got, want)
	}
	if res.Discarded != 9*3 {
		t.Errorf("Discarded = %d, want 27", res.Discarded)
	}
	if res.Width != 290 || res.XOffset != 5 || res.YOffset != 10 {
		t.Errorf("frame = width %d origin (%d, %d), want 290 (5, 10)", res.Width, res.XOffset, res.YOffset)
	}

	want := trimmedFrame.Translate(5, 10)
	for i := range want {
		if math.Abs(res.GeoTransform[i]-want[i]) > 1e-9 {
			t.Errorf("GeoTransform[%d] = %v, want %v", i, res.GeoTransform[i], want[i])
		}
	}
	if res.RMSE > 1e-9 {
		t.Errorf("RMSE = %v, want ~0", res.RMSE)
	}

	for _, g := range res.GCPs {
		if g.Pixel < 0 || g.Pixel >= float64(res.Width) {
			t.Errorf("kept GCP pixel %v outside [0, %d)", g.Pixel, res.Width)
		}
		lon, lat := res.GeoTransform.Apply(g.Pixel, g.Line)
		if math.Abs(lon-g.Longitude) > 1e-9 || math.Abs(lat-g.Latitude) > 1e-9 {
			t.Errorf("GeoTransform maps (%v, %v) to (%v, %v), want (%v, %v)", g.Pixel, g.Line, lon, lat, g.Longitude, g.Latitude)
		}
		if g.Elevation != 12 {
			t.Errorf("Elevation = %v, want 12", g.Elevation)
		}
	}
}

func TestRereference_LineShift(t *testing.T) {
	s := threeBursts(t)
	gcps := []raster.GCP{
		{Line: 50, Pixel: 10, Longitude: 1, Latitude: 1},
		{Line: 150, Pixel: 20, Longitude: 2, Latitude: 1},
		{Line: 250, Pixel: 10, Longitude: 1, Latitude: 2},
	}

	res, err := NewReferencer().Rereference(s, gcps)
	if err != nil {
		t.Fatalf("Rereference() error: %v", err)
	}

	// mosaic line = raw line - cumulative overlap - y offset
	wantLines := []float64{50 - 0 - 10, 150 - 10 - 10, 250 - 20 - 10}
	wantPixels := []float64{5, 15, 5}
	for i, g := range res.GCPs {
		if g.Line != wantLines[i] || g.Pixel != wantPixels[i] {
			t.Errorf("GCPs[%d] = (%v, %v), want (%v, %v)", i, g.Pixel, g.Line, wantPixels[i], wantLines[i])
		}
	}
}

func TestRereference_BurstBoundaryLines(t *testing.T) {
	s := threeBursts(t)
	gcps := []raster.GCP{
		{Line: 99, Pixel: 10, Longitude: 1, Latitude: 1},
		{Line: 100, Pixel: 20, Longitude: 2, Latitude: 1},
		{Line: 200, Pixel: 10, Longitude: 1, Latitude: 2},
		{Line: 300, Pixel: 20, Longitude: 2, Latitude: 3},
	}

	res, err := NewReferencer().Rereference(s, gcps)
	if err != nil {
		t.Fatalf("Rereference() error: %v", err)
	}

	// line 100 starts burst 1, line 200 starts burst 2 and line 300 is
	// clamped into burst 2
	wantLines := []float64{99 - 0 - 10, 100 - 10 - 10, 200 - 20 - 10, 300 - 20 - 10}
	if len(res.GCPs) != len(wantLines) {
		t.Fatalf("kept %d GCPs, want %d", len(res.GCPs), len(wantLines))
	}
	for i, g := range res.GCPs {
		if g.Line != wantLines[i] {
			t.Errorf("GCPs[%d].Line = %v, want %v", i, g.Line, wantLines[i])
		}
	}
}

func TestRereference_WidthBoundary(t *testing.T) {
	s := threeBursts(t)
	const x0, width = 5, 290

	base := []raster.GCP{
		{Line: 20, Pixel: x0, Longitude: 0, Latitude: 0},
		{Line: 20, Pixel: x0 + 100, Longitude: 1, Latitude: 0},
		{Line: 80, Pixel: x0, Longitude: 0, Latitude: 1},
	}

	tests := []struct {
		name     string
		pixel    float64
		wantKept bool
	}{
		{name: "last column", pixel: x0 + width - 1, wantKept: true},
		{name: "one past last column", pixel: x0 + width, wantKept: false},
		{name: "first column", pixel: x0, wantKept: true},
		{name: "before first column", pixel: x0 - 1, wantKept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gcps := append([]raster.GCP{}, base...)
			gcps = append(gcps, raster.GCP{Line: 60, Pixel: tt.pixel, Longitude: 0.5, Latitude: 0.5})

			res, err := NewReferencer().Rereference(s, gcps)
			if err != nil {
				t.Fatalf("Rereference() error: %v", err)
			}

			kept := len(res.GCPs) == 4
			if kept != tt.wantKept {
				t.Errorf("point at pixel %v kept = %v, want %v", tt.pixel, kept, tt.wantKept)
			}
		})
	}
}

func TestRereference_Insufficient(t *testing.T) {
	s := threeBursts(t)

	tests := []struct {
		name string
		gcps []raster.GCP
	}{
		{name: "none"},
		{
			name: "two inside",
			gcps: []raster.GCP{
				{Line: 20, Pixel: 10, Longitude: 0, Latitude: 0},
				{Line: 40, Pixel: 50, Longitude: 1, Latitude: 1},
				{Line: 40, Pixel: 299, Longitude: 2, Latitude: 1},
			},
		},
		{
			name: "collinear",
			gcps: []raster.GCP{
				{Line: 20, Pixel: 10, Longitude: 0, Latitude: 0},
				{Line: 20, Pixel: 50, Longitude: 1, Latitude: 0},
				{Line: 20, Pixel: 90, Longitude: 2, Latitude: 0},
			},
		},
		{
			name: "invalid positions dropped",
			gcps: []raster.GCP{
				{Line: 20, Pixel: 10, Longitude: 0, Latitude: 0},
				{Line: 40, Pixel: 50, Longitude: 1, Latitude: 1},
				{Line: 60, Pixel: 90, Longitude: 2, Latitude: 95},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewReferencer().Rereference(s, tt.gcps)
			if !errors.Is(err, ErrInsufficientControlPoints) {
				t.Fatalf("Rereference() error = %v, want ErrInsufficientControlPoints", err)
			}
			if !errors.Is(err, geodesy.ErrInsufficientPoints) {
				t.Errorf("Rereference() error = %v, want wrapped geodesy.ErrInsufficientPoints", err)
			}
			if res != nil {
				t.Error("Rereference() returned a partial result")
			}
		})
	}
}

func TestRereference_MalformedSwath(t *testing.T) {
	s, err := burst.NewSwath([]burst.Metadata{metadata(0), metadata(0.18)})
	if err != nil {
		t.Fatalf("NewSwath() error: %v", err)
	}
	_, err = NewReferencer().Rereference(s, gridGCPs([]float64{10, 100, 200}))
	if !errors.Is(err, burst.ErrMalformedTiming) {
		t.Errorf("Rereference() error = %v, want ErrMalformedTiming", err)
	}
}

// TestRereference_AgreesWithAssembler checks that georeferencing and pixel
// assembly describe the same mosaic frame.
func TestRereference_AgreesWithAssembler(t *testing.T) {
	s := threeBursts(t)

	raw := raster.NewBlock(300, 300)
	store := raster.NewMemoryStore()
	store.Put("raw", raw)

	m, err := deburst.NewAssembler(store).Assemble(context.Background(), s, "raw")
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	res, err := NewReferencer().Rereference(s, gridGCPs([]float64{10, 150, 280}))
	if err != nil {
		t.Fatalf("Rereference() error: %v", err)
	}

	if res.Width != m.Width || res.Width != m.Pixels.Width {
		t.Errorf("width: referencer %d, assembler %d", res.Width, m.Width)
	}
	if res.XOffset != m.XOffset || res.YOffset != m.YOffset {
		t.Errorf("origin: referencer (%d, %d), assembler (%d, %d)", res.XOffset, res.YOffset, m.XOffset, m.YOffset)
	}
	for i := range m.Overlaps {
		lineShift := m.CumulativeOverlap(i)
		var want int
		for k := 0; k <= i; k++ {
			want += m.Overlaps[k]
		}
		if lineShift != want {
			t.Errorf("cumulative overlap at burst %d = %d, want %d", i, lineShift, want)
		}
	}
}

func TestBatchByLine(t *testing.T) {
	gcps := []raster.GCP{
		{Line: 0}, {Line: 99.5}, {Line: 100}, {Line: 250}, {Line: -3}, {Line: 1000}, {Line: math.NaN()},
	}
	batches := BatchByLine(gcps, 100, 3)

	want := [][]float64{{0, 99.5, -3}, {100}, {250, 1000}}
	if len(batches) != len(want) {
		t.Fatalf("len(BatchByLine()) = %d, want %d", len(batches), len(want))
	}
	for i := range want {
		lines := batches[i]
		if i == 0 {
			lines = lines[:len(lines)-1] // NaN lands in the first batch
		}
		if len(lines) != len(want[i]) {
			t.Errorf("batch %d has %d points, want %d", i, len(lines), len(want[i]))
			continue
		}
		for j, g := range lines {
			if g.Line != want[i][j] {
				t.Errorf("batch %d point %d line = %v, want %v", i, j, g.Line, want[i][j])
			}
		}
	}

	if got := BatchByLine(gcps, 100, 0); got != nil {
		t.Errorf("BatchByLine() with no bursts = %v, want nil", got)
	}
}

func TestBatchByLine_GridRows(t *testing.T) {
	const lpb, bursts = 1500, 9
	const step = lpb / 20

	// grid rows every 75 lines from 0 to bursts*lpb inclusive
	var gcps []raster.GCP
	for line := 0; line <= bursts*lpb; line += step {
		gcps = append(gcps, raster.GCP{Line: float64(line)})
	}
	batches := BatchByLine(gcps, lpb, bursts)

	if len(batches) != bursts {
		t.Fatalf("len(BatchByLine()) = %d, want %d", len(batches), bursts)
	}
	for i, batch := range batches {
		want := 20
		if i == bursts-1 {
			want = 21 // the row at bursts*lpb
		}
		if len(batch) != want {
			t.Errorf("burst %d has %d rows, want %d", i, len(batch), want)
			continue
		}
		if first := batch[0].Line; first != float64(i*lpb) {
			t.Errorf("burst %d first row line = %v, want %d", i, first, i*lpb)
		}
		if last := batch[len(batch)-1].Line; i < bursts-1 && last != float64((i+1)*lpb-step) {
			t.Errorf("burst %d last row line = %v, want %d", i, last, (i+1)*lpb-step)
		}
	}
	if last := batches[bursts-1]; last[len(last)-1].Line != bursts*lpb {
		t.Errorf("final row line = %v, want %d", last[len(last)-1].Line, bursts*lpb)
	}
}
