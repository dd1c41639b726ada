package chartcache

import (
	"context"
	"sync"
	"time"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
)

type cachedChart struct {
	chart     astro.ChartResult
	expiresAt time.Time
}

// MemoryStore is an in-memory chart cache for tests and dev runs.
type MemoryStore struct {
	mu     sync.RWMutex
	charts map[string]cachedChart
}

// NewMemoryStore constructs a cache backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{charts: make(map[string]cachedChart)}
}

// Get implements astro.Cache.
func (s *MemoryStore) Get(_ context.Context, key string) (astro.ChartResult, bool, error) {
	s.mu.RLock()
	record, ok := s.charts[key]
	s.mu.RUnlock()
	if !ok {
		return astro.ChartResult{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.charts, key)
		s.mu.Unlock()
		return astro.ChartResult{}, false, nil
	}
	return record.chart, true, nil
}

// Save caches the chart with optional TTL.
func (s *MemoryStore) Save(_ context.Context, key string, chart astro.ChartResult, ttl time.Duration) error {
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charts[key] = cachedChart{chart: chart, expiresAt: exp}
	return nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ astro.Cache = (*MemoryStore)(nil)
