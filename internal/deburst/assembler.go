package deburst

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// Mosaic is an assembled swath. It is not modified after Assemble returns.
type Mosaic struct {
	Layout
	Pixels *raster.Block
}

// Amplitude returns the 10*log10(|z|+1) view of the mosaic pixels.
func (m *Mosaic) Amplitude() []float32 { return m.Pixels.Amplitude() }

// Phase returns the phase view of the mosaic pixels in radians.
func (m *Mosaic) Phase() []float32 { return m.Pixels.Phase() }

// Assembler reads the bursts of a swath and composes them into a mosaic.
type Assembler struct {
	reader  raster.Reader
	workers int
	logger  *slog.Logger
}

// NewAssembler returns an assembler reading pixels from reader.
func NewAssembler(reader raster.Reader) *Assembler {
	return &Assembler{
		reader:  reader,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the assembler.
func (a *Assembler) WithLogger(logger *slog.Logger) *Assembler {
	a.logger = logger
	return a
}

// WithWorkers bounds the number of concurrent burst reads. Values below one
// read bursts one at a time.
func (a *Assembler) WithWorkers(n int) *Assembler {
	if n < 1 {
		n = 1
	}
	a.workers = n
	return a
}

// Assemble reads every burst's valid window from the raster at path and
// composes the mosaic. In overlap regions the later burst's lines replace the
// earlier burst's. On error no mosaic is returned.
func (a *Assembler) Assemble(ctx context.Context, s *burst.Swath, path string) (*Mosaic, error) {
	start := time.Now()

	layout, err := Plan(s)
	if err != nil {
		return nil, err
	}

	blocks, err := a.readBursts(ctx, s, path)
	if err != nil {
		return nil, err
	}

	pixels, err := compose(layout, blocks)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("assembled mosaic",
		slog.String("path", path),
		slog.Int("bursts", s.Len()),
		slog.Int("width", layout.Width),
		slog.Int("height", layout.Height),
		slog.Any("overlaps", layout.Overlaps),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Mosaic{Layout: *layout, Pixels: pixels}, nil
}

// readBursts reads the bursts concurrently. Each read fills only its own slot.
func (a *Assembler) readBursts(ctx context.Context, s *burst.Swath, path string) ([]*raster.Block, error) {
	blocks := make([]*raster.Block, s.Len())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, b := range s.Bursts() {
		i, b := i, b
		g.Go(func() error {
			w := b.Window()
			block, err := a.reader.ReadWindow(ctx, path, w.X, w.Y, w.Width, w.Height)
			if err != nil {
				return fmt.Errorf("failed to read burst %d: %w", b.Index(), err)
			}
			if block.Width < w.Width || block.Height != w.Height {
				return fmt.Errorf("%w: burst %d read returned %dx%d, want %dx%d",
					burst.ErrInconsistentMetadata, b.Index(), block.Width, block.Height, w.Width, w.Height)
			}
			blocks[i] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// compose writes the blocks in ascending burst order so the later burst
// always wins in the overlap region.
func compose(l *Layout, blocks []*raster.Block) (*raster.Block, error) {
	pixels := raster.NewBlock(l.Width, l.Height)

	written := 0
	for i, block := range blocks {
		off := l.Offsets[i]
		for r := 0; r < l.Heights[i]; r++ {
			copy(pixels.Row(off+r), block.Row(r)[:l.Width])
		}
		written = off + l.Heights[i]
	}

	if written != l.Height || pixels.Height != l.Height {
		return nil, fmt.Errorf("%w: composed %d rows, want %d", burst.ErrInconsistentMetadata, written, l.Height)
	}
	return pixels, nil
}
