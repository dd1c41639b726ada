package usagelog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astrowise/astrowise-api/internal/domain/fortune"
)

// PostgresRecorder appends usage entries to Postgres.
//
// Schema:
//
//	CREATE TABLE usage_log (
//	    id        UUID PRIMARY KEY,
//	    ts        TIMESTAMPTZ NOT NULL,
//	    user_id   TEXT NOT NULL,
//	    question  TEXT NOT NULL,
//	    remaining INT NOT NULL,
//	    package   TEXT NOT NULL DEFAULT ''
//	);
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder creates a new recorder.
func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

// Record appends one entry.
func (r *PostgresRecorder) Record(ctx context.Context, entry fortune.UsageEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO usage_log (id, ts, user_id, question, remaining, package)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.Timestamp, entry.UserID, entry.Question, entry.Remaining, entry.Package)
	return err
}

var _ fortune.UsageRecorder = (*PostgresRecorder)(nil)
