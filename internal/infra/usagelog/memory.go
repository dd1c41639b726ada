package usagelog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/astrowise/astrowise-api/internal/domain/fortune"
)

// MemoryRecorder keeps usage entries in memory for tests and dev runs.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []fortune.UsageEntry
}

// NewMemoryRecorder constructs an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends one entry.
func (r *MemoryRecorder) Record(_ context.Context, entry fortune.UsageEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *MemoryRecorder) Entries() []fortune.UsageEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fortune.UsageEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

var _ fortune.UsageRecorder = (*MemoryRecorder)(nil)
