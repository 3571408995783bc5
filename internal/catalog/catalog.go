// Package catalog keeps recently produced mosaics in memory for the HTTP
// service.
package catalog

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robert-malhotra/s1-deburst/internal/process"
	"github.com/robert-malhotra/s1-deburst/internal/stac"
)

// Sentinel errors for catalog operations
var (
	ErrNotFound = errors.New("mosaic not found")
	ErrExpired  = errors.New("mosaic expired")
)

// Entry is a stored mosaic and its STAC description.
type Entry struct {
	Result    *process.Result
	Item      *stac.Item
	ExpiresAt time.Time
}

// Store defines the interface for storing and retrieving mosaics.
type Store interface {
	// Put saves a mosaic under its result ID, replacing any earlier entry
	Put(res *process.Result, item *stac.Item) error

	// Get returns the mosaic stored under id
	Get(id string) (*Entry, error)

	// List returns the live entries ordered by ID
	List() []*Entry

	// Delete removes a mosaic
	Delete(id string) error
}

// MemoryStore implements Store using in-memory storage with TTL.
// Mosaic pixel buffers are large; the TTL bounds how long they are held.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a new in-memory mosaic store.
// ttl specifies how long mosaics are kept before expiration.
// cleanupInterval specifies how often to run the cleanup routine.
func NewMemoryStore(ttl time.Duration, cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		entries:  make(map[string]*Entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cleanupInterval)

	return store
}

// Put saves a mosaic under its result ID.
func (s *MemoryStore) Put(res *process.Result, item *stac.Item) error {
	if res == nil || res.ID == "" {
		return errors.New("cannot store mosaic without ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[res.ID] = &Entry{
		Result:    res,
		Item:      item,
		ExpiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Get returns the mosaic stored under id.
func (s *MemoryStore) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, ErrNotFound
	}
	if s.now().After(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return entry, nil
}

// List returns the unexpired entries ordered by ID.
func (s *MemoryStore) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if !now.After(entry.ExpiresAt) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Result.ID < out[j].Result.ID })
	return out
}

// Delete removes a mosaic by its ID.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// Stop stops the background cleanup goroutine.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// cleanupLoop periodically removes expired mosaics.
func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes all expired mosaics.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, id)
		}
	}
}

// Stats returns the number of stored mosaics and the age of the oldest.
func (s *MemoryStore) Stats() (count int, oldestAge time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count = len(s.entries)
	if count == 0 {
		return 0, 0
	}

	var oldest time.Time
	for _, entry := range s.entries {
		created := entry.ExpiresAt.Add(-s.ttl)
		if oldest.IsZero() || created.Before(oldest) {
			oldest = created
		}
	}

	return count, s.now().Sub(oldest)
}
