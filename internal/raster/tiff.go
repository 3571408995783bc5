package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/tiff"
)

// TIFFStore reads windows out of single-band TIFF rasters. Decoded images are
// kept in memory so that the bursts of one measurement decode it once.
// Samples are returned as complex values with a zero imaginary part.
type TIFFStore struct {
	mu     sync.Mutex
	images map[string]image.Image
	logger *slog.Logger
}

// NewTIFFStore creates a store with an empty decode cache.
func NewTIFFStore() *TIFFStore {
	return &TIFFStore{
		images: make(map[string]image.Image),
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for decode events.
func (s *TIFFStore) WithLogger(logger *slog.Logger) *TIFFStore {
	s.logger = logger
	return s
}

// ReadWindow reads a window of samples from the TIFF at path.
func (s *TIFFStore) ReadWindow(ctx context.Context, path string, x, y, width, height int) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := s.open(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if !checkWindow(bounds.Dx(), bounds.Dy(), x, y, width, height) {
		return nil, fmt.Errorf("%w: window x=%d y=%d w=%d h=%d in %dx%d raster %s",
			ErrWindowOutOfBounds, x, y, width, height, bounds.Dx(), bounds.Dy(), path)
	}

	dst := NewBlock(width, height)
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			dst.Set(i, j, sampleAt(img, bounds.Min.X+x+i, bounds.Min.Y+y+j))
		}
	}
	return dst, nil
}

// Forget drops the decoded image of path from the cache.
func (s *TIFFStore) Forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, path)
}

// Cached reports the number of decoded images held by the store.
func (s *TIFFStore) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

func (s *TIFFStore) open(path string) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img, ok := s.images[path]; ok {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, err)
	}

	s.logger.Debug("decoded tiff", "path", path, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	s.images[path] = img
	return img, nil
}

func sampleAt(img image.Image, x, y int) complex64 {
	switch m := img.(type) {
	case *image.Gray16:
		return complex(float32(m.Gray16At(x, y).Y), 0)
	case *image.Gray:
		return complex(float32(m.GrayAt(x, y).Y), 0)
	default:
		g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
		return complex(float32(g.Y), 0)
	}
}

// WGS84 is the ESRI well-known text of geographic WGS 84 coordinates.
const WGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],` +
	`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// ProjectionWKT returns the .prj text for srs. EPSG:4326 maps to WGS84; any
// other value is taken to be well-known text already.
func ProjectionWKT(srs string) string {
	if strings.EqualFold(srs, "EPSG:4326") {
		return WGS84
	}
	return srs
}

// TIFFWriter writes blocks as 16-bit amplitude TIFFs, each with an ESRI world
// file holding the geotransform and, when a spatial reference is given, a
// .prj file holding it.
type TIFFWriter struct {
	dir    string
	logger *slog.Logger
}

// NewTIFFWriter creates a writer storing files under dir.
func NewTIFFWriter(dir string) *TIFFWriter {
	return &TIFFWriter{dir: dir, logger: slog.Default()}
}

// WithLogger sets the logger used for write events.
func (w *TIFFWriter) WithLogger(logger *slog.Logger) *TIFFWriter {
	w.logger = logger
	return w
}

// TIFFPath returns the path the raster called name is written to.
func (w *TIFFWriter) TIFFPath(name string) string {
	return filepath.Join(w.dir, name+".tif")
}

// Write stores block as name.tif, name.tfw and optionally name.prj.
func (w *TIFFWriter) Write(ctx context.Context, name string, block *Block, geoTransform [6]float64, srs string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if block == nil || block.Width <= 0 || block.Height <= 0 {
		return fmt.Errorf("cannot write empty raster %q", name)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tifPath := w.TIFFPath(name)
	f, err := os.Create(tifPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tifPath, err)
	}

	img := amplitudeImage(block)
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", tifPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tifPath, err)
	}

	base := strings.TrimSuffix(tifPath, ".tif")
	if err := os.WriteFile(base+".tfw", []byte(WorldFile(geoTransform)), 0o644); err != nil {
		return fmt.Errorf("failed to write world file: %w", err)
	}
	if srs != "" {
		if err := os.WriteFile(base+".prj", []byte(ProjectionWKT(srs)), 0o644); err != nil {
			return fmt.Errorf("failed to write projection file: %w", err)
		}
	}

	w.logger.Info("wrote raster", "path", tifPath, "width", block.Width, "height", block.Height)
	return nil
}

// WorldFile formats a geotransform as the six lines of an ESRI world file.
// World files reference the centre of the top-left pixel.
func WorldFile(gt [6]float64) string {
	lines := []float64{
		gt[1],
		gt[4],
		gt[2],
		gt[5],
		gt[0] + gt[1]/2 + gt[2]/2,
		gt[3] + gt[4]/2 + gt[5]/2,
	}

	var sb strings.Builder
	for _, v := range lines {
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// amplitudeImage linearly stretches the dB amplitude of block over 16 bits.
func amplitudeImage(block *Block) *image.Gray16 {
	amp := block.Amplitude()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range amp {
		lo = math.Min(lo, float64(v))
		hi = math.Max(hi, float64(v))
	}
	scale := 0.0
	if hi > lo {
		scale = 65535 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, block.Width, block.Height))
	for y := 0; y < block.Height; y++ {
		for x := 0; x < block.Width; x++ {
			v := (float64(amp[y*block.Width+x]) - lo) * scale
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v))})
		}
	}
	return img
}
