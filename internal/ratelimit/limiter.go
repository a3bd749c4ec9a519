package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parent-voice/internal/apperr"
	"parent-voice/internal/store"

	"go.uber.org/zap"
)

// FeatureParentVoiceSpeak is the quota bucket for the narration endpoint.
const FeatureParentVoiceSpeak = "parentVoiceSpeak"

// Limiter decides whether one more request from the subject is admitted
// right now. A nil return admits; an exhausted window returns the
// classified RateLimited error.
type Limiter interface {
	Allow(ctx context.Context, subject string) error
}

// PostgresLimiter enforces the fixed window through the store's atomic
// rate-limit transaction. This is the default backend.
type PostgresLimiter struct {
	repo    store.RateLimitRepository
	feature string
	window  time.Duration
	max     int
	logger  *zap.Logger
}

// NewPostgresLimiter creates the transactional limiter.
func NewPostgresLimiter(repo store.RateLimitRepository, feature string, window time.Duration, max int, logger *zap.Logger) *PostgresLimiter {
	return &PostgresLimiter{
		repo:    repo,
		feature: feature,
		window:  window,
		max:     max,
		logger:  logger,
	}
}

// Allow consumes one slot from the subject's window.
func (l *PostgresLimiter) Allow(ctx context.Context, subject string) error {
	admitted, err := l.repo.Consume(ctx, subject, l.feature, l.window, l.max)
	if err != nil {
		return fmt.Errorf("rate-limit consume failed: %w", err)
	}
	if !admitted {
		return apperr.RateLimited()
	}
	return nil
}

// MemoryLimiter is an in-process fallback for single-instance deployments
// and tests: the same window algorithm behind a mutex instead of a
// database transaction.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	window  time.Duration
	max     int
	now     func() time.Time
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates the in-process limiter.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Allow consumes one slot from the subject's window.
func (l *MemoryLimiter) Allow(ctx context.Context, subject string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[subject]
	if !ok || !e.resetAt.After(now) {
		l.entries[subject] = &memoryEntry{count: 1, resetAt: now.Add(l.window)}
		return nil
	}
	if e.count >= l.max {
		return apperr.RateLimited()
	}
	e.count++
	return nil
}
