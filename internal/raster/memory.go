package raster

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps rasters and control points in memory. It implements
// Reader and GCPSource and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	rasters map[string]*Block
	gcps    map[string][]GCP
	reads   int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rasters: make(map[string]*Block),
		gcps:    make(map[string][]GCP),
	}
}

// Put registers a raster under path.
func (s *MemoryStore) Put(path string, block *Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rasters[path] = block
}

// PutGCPs registers the control points of the raster at path.
func (s *MemoryStore) PutGCPs(path string, gcps []GCP) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcps[path] = append([]GCP(nil), gcps...)
}

// ReadWindow copies a window out of the raster at path.
func (s *MemoryStore) ReadWindow(ctx context.Context, path string, x, y, width, height int) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.reads++
	src, ok := s.rasters[path]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if !checkWindow(src.Width, src.Height, x, y, width, height) {
		return nil, fmt.Errorf("%w: window x=%d y=%d w=%d h=%d in %dx%d raster %s",
			ErrWindowOutOfBounds, x, y, width, height, src.Width, src.Height, path)
	}

	dst := NewBlock(width, height)
	for j := 0; j < height; j++ {
		copy(dst.Row(j), src.Data[(y+j)*src.Width+x:(y+j)*src.Width+x+width])
	}
	return dst, nil
}

// GroundControlPoints returns a copy of the control points registered for path.
func (s *MemoryStore) GroundControlPoints(ctx context.Context, path string) ([]GCP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	gcps, ok := s.gcps[path]
	if !ok {
		return nil, fmt.Errorf("%w: no control points for %s", ErrNotFound, path)
	}
	return append([]GCP(nil), gcps...), nil
}

// Reads returns the number of ReadWindow calls served.
func (s *MemoryStore) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}
