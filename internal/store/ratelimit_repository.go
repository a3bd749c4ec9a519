package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// rateLimitRepository implements RateLimitRepository on PostgreSQL.
type rateLimitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRateLimitRepository creates a new rate-limit repository.
func NewRateLimitRepository(db *pgxpool.Pool, logger *zap.Logger) RateLimitRepository {
	return &rateLimitRepository{
		db:     db,
		logger: logger,
	}
}

// Consume runs the whole admit/reject decision inside one transaction, with
// all requests for the same subject and feature serialized on an advisory
// lock, so the window can never overshoot the maximum. A plain row lock is
// not enough here: when no record exists yet, SELECT ... FOR UPDATE locks
// nothing and two window openers could both write a fresh count of one.
// The transaction is committed before the caller does any slow work.
func (r *rateLimitRepository) Consume(ctx context.Context, subject, feature string, window time.Duration, max int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin rate-limit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		subject, feature,
	); err != nil {
		return false, fmt.Errorf("failed to take rate-limit lock: %w", err)
	}

	var count int
	var resetAt time.Time
	err = tx.QueryRow(ctx,
		`SELECT count, reset_at FROM rate_limits WHERE subject = $1 AND feature = $2`,
		subject, feature,
	).Scan(&count, &resetAt)

	now := time.Now()

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		count = 0
		resetAt = time.Time{}
	case err != nil:
		return false, fmt.Errorf("failed to read rate-limit record: %w", err)
	}

	admit, newCount, newResetAt := decideWindow(count, resetAt, now, window, max)
	if !admit {
		// Reject without writing; the deferred rollback releases the lock.
		r.logger.Warn("rate limit exceeded",
			zap.String("subject", subject),
			zap.String("feature", feature),
			zap.Int("count", count),
			zap.Time("reset_at", resetAt))
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO rate_limits (subject, feature, count, reset_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (subject, feature)
		 DO UPDATE SET count = $3, reset_at = $4, updated_at = $5`,
		subject, feature, newCount, newResetAt, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to write rate-limit record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit rate-limit transaction: %w", err)
	}

	return true, nil
}
