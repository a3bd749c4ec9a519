package store

import (
	"context"
	"fmt"
	"time"

	"parent-voice/internal/config"
	"parent-voice/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the durable document store backing rate-limit counters and the
// voice cache. Both live under the subject's namespace.
type Store interface {
	RateLimit() RateLimitRepository
	VoiceCache() VoiceCacheRepository
	DB() *pgxpool.Pool
	Close() error
}

// store implements Store.
type store struct {
	db         *pgxpool.Pool
	logger     *zap.Logger
	rateLimit  RateLimitRepository
	voiceCache VoiceCacheRepository
}

// RateLimitRepository mutates per-subject window counters. Consume is the
// only operation and runs as a single atomic read-modify-write.
type RateLimitRepository interface {
	// Consume admits or rejects one request for subject×feature. It returns
	// true when the request is admitted and the counter was persisted.
	// When the window is exhausted it returns false and writes nothing.
	Consume(ctx context.Context, subject, feature string, window time.Duration, max int) (bool, error)
}

// VoiceCacheRepository reads and writes synthesized-narration metadata.
type VoiceCacheRepository interface {
	// Get returns the entry for subject×key, or nil when none exists.
	Get(ctx context.Context, subject, cacheKey string) (*models.VoiceCacheEntry, error)
	// Put upserts the entry (last write wins).
	Put(ctx context.Context, entry *models.VoiceCacheEntry) error
}

// NewStore opens the connection pool and wires the repositories.
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("connected to PostgreSQL")

	s := &store{
		db:     db,
		logger: logger,
	}

	s.rateLimit = NewRateLimitRepository(db, logger)
	s.voiceCache = NewVoiceCacheRepository(db, logger)

	return s, nil
}

// RateLimit returns the rate-limit repository.
func (s *store) RateLimit() RateLimitRepository {
	return s.rateLimit
}

// VoiceCache returns the voice-cache repository.
func (s *store) VoiceCache() VoiceCacheRepository {
	return s.voiceCache
}

// DB returns the underlying connection pool.
func (s *store) DB() *pgxpool.Pool {
	return s.db
}

// Close shuts down the connection pool.
func (s *store) Close() error {
	s.logger.Info("closing database connection")
	s.db.Close()
	return nil
}
