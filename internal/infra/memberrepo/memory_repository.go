package memberrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/astrowise/astrowise-api/internal/domain/member"
)

// MemoryRepository keeps members in process memory for tests and dev runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	members map[string]member.Member
}

// NewMemoryRepository constructs an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{members: make(map[string]member.Member)}
}

// Create stores a new member row.
func (r *MemoryRepository) Create(_ context.Context, m member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[m.UserID]; exists {
		return errors.New("user_id already exists")
	}
	r.members[m.UserID] = m
	return nil
}

// FindByID fetches one member by user id.
func (r *MemoryRepository) FindByID(_ context.Context, userID string) (member.Member, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[userID]
	return m, ok, nil
}

// FindByPaymentIntent scans for the member holding a payment intent id.
func (r *MemoryRepository) FindByPaymentIntent(_ context.Context, paymentIntentID string) (member.Member, bool, error) {
	if paymentIntentID == "" {
		return member.Member{}, false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.PaymentIntentID == paymentIntentID {
			return m, true, nil
		}
	}
	return member.Member{}, false, nil
}

// Update applies a partial patch to one member.
func (r *MemoryRepository) Update(_ context.Context, userID string, patch member.Patch) (member.Member, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[userID]
	if !ok {
		return member.Member{}, false, nil
	}
	applyPatch(&m, patch)
	r.members[userID] = m
	return m, true, nil
}

// DeleteExpiredWithoutPackage removes stale registrations.
func (r *MemoryRepository) DeleteExpiredWithoutPackage(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, m := range r.members {
		if m.Package == "" && m.Expiry != nil && m.Expiry.Before(before) {
			delete(r.members, id)
			removed++
		}
	}
	return removed, nil
}

func applyPatch(m *member.Member, patch member.Patch) {
	if patch.Quota != nil {
		m.Quota = *patch.Quota
	}
	if patch.UsedCount != nil {
		m.UsedCount = *patch.UsedCount
	}
	if patch.Package != nil {
		m.Package = *patch.Package
	}
	if patch.Expiry != nil {
		m.Expiry = patch.Expiry
	}
	if patch.Email != nil {
		m.Email = *patch.Email
	}
	if patch.PaymentIntentID != nil {
		m.PaymentIntentID = *patch.PaymentIntentID
	}
	if patch.ReceiptURL != nil {
		m.ReceiptURL = *patch.ReceiptURL
	}
	if patch.PaidAt != nil {
		m.PaidAt = patch.PaidAt
	}
}

var _ member.Repository = (*MemoryRepository)(nil)
