package member

import (
	"context"
	"time"
)

// Repository abstracts member persistence so the backing store (Postgres,
// an in-memory table, or the spreadsheet the prototype used) is swappable.
type Repository interface {
	Create(ctx context.Context, m Member) error
	FindByID(ctx context.Context, userID string) (Member, bool, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (Member, bool, error)
	Update(ctx context.Context, userID string, patch Patch) (Member, bool, error)
	// DeleteExpiredWithoutPackage removes members whose expiry passed and who
	// never bought a package; returns how many rows went away.
	DeleteExpiredWithoutPackage(ctx context.Context, before time.Time) (int, error)
}
