package memberrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astrowise/astrowise-api/internal/domain/member"
)

// PostgresRepository persists members in Postgres.
//
// Schema:
//
//	CREATE TABLE members (
//	    user_id           TEXT PRIMARY KEY,
//	    token_hash        TEXT NOT NULL,
//	    quota             INT NOT NULL DEFAULT 0,
//	    used_count        INT NOT NULL DEFAULT 0,
//	    package           TEXT NOT NULL DEFAULT '',
//	    expiry            TIMESTAMPTZ,
//	    email             TEXT NOT NULL DEFAULT '',
//	    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    payment_intent_id TEXT NOT NULL DEFAULT '',
//	    receipt_url       TEXT NOT NULL DEFAULT '',
//	    paid_at           TIMESTAMPTZ
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const memberColumns = `user_id, token_hash, quota, used_count, package, expiry, email, created_at, payment_intent_id, receipt_url, paid_at`

// Create inserts a new member row.
func (r *PostgresRepository) Create(ctx context.Context, m member.Member) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO members (user_id, token_hash, quota, used_count, package, expiry, email, created_at, payment_intent_id, receipt_url, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, m.UserID, m.TokenHash, m.Quota, m.UsedCount, m.Package, m.Expiry, m.Email, m.CreatedAt, m.PaymentIntentID, m.ReceiptURL, m.PaidAt)
	return err
}

// FindByID fetches one member by user id.
func (r *PostgresRepository) FindByID(ctx context.Context, userID string) (member.Member, bool, error) {
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE user_id = $1 LIMIT 1`, userID)
}

// FindByPaymentIntent fetches the member attached to a payment intent.
func (r *PostgresRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (member.Member, bool, error) {
	if paymentIntentID == "" {
		return member.Member{}, false, nil
	}
	return r.findOne(ctx, `SELECT `+memberColumns+` FROM members WHERE payment_intent_id = $1 LIMIT 1`, paymentIntentID)
}

// Update applies a partial patch and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, userID string, patch member.Patch) (member.Member, bool, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Quota != nil {
		add("quota", *patch.Quota)
	}
	if patch.UsedCount != nil {
		add("used_count", *patch.UsedCount)
	}
	if patch.Package != nil {
		add("package", *patch.Package)
	}
	if patch.Expiry != nil {
		add("expiry", *patch.Expiry)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.PaymentIntentID != nil {
		add("payment_intent_id", *patch.PaymentIntentID)
	}
	if patch.ReceiptURL != nil {
		add("receipt_url", *patch.ReceiptURL)
	}
	if patch.PaidAt != nil {
		add("paid_at", *patch.PaidAt)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, userID)
	}

	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE members SET %s WHERE user_id = $%d RETURNING `+memberColumns,
		strings.Join(sets, ", "), len(args))

	return r.findOne(ctx, query, args...)
}

// DeleteExpiredWithoutPackage removes stale registrations.
func (r *PostgresRepository) DeleteExpiredWithoutPackage(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM members
		WHERE package = '' AND expiry IS NOT NULL AND expiry < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (member.Member, bool, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return member.Member{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return member.Member{}, false, rows.Err()
	}

	var m member.Member
	var created time.Time
	if err := rows.Scan(&m.UserID, &m.TokenHash, &m.Quota, &m.UsedCount, &m.Package, &m.Expiry,
		&m.Email, &created, &m.PaymentIntentID, &m.ReceiptURL, &m.PaidAt); err != nil {
		return member.Member{}, false, err
	}
	m.CreatedAt = created.UTC()
	return m, true, rows.Err()
}

var _ member.Repository = (*PostgresRepository)(nil)
