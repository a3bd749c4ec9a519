package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parent-voice/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// voiceCacheRepository implements VoiceCacheRepository on PostgreSQL.
type voiceCacheRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewVoiceCacheRepository creates a new voice-cache repository.
func NewVoiceCacheRepository(db *pgxpool.Pool, logger *zap.Logger) VoiceCacheRepository {
	return &voiceCacheRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the cache entry for subject×key, or nil when none exists.
func (r *voiceCacheRepository) Get(ctx context.Context, subject, cacheKey string) (*models.VoiceCacheEntry, error) {
	query := `
		SELECT subject, cache_key, story_id, page_index, lang, voice_id, audio_url, storage_path, bytes, created_at
		FROM voice_cache WHERE subject = $1 AND cache_key = $2`

	entry := &models.VoiceCacheEntry{}
	err := r.db.QueryRow(ctx, query, subject, cacheKey).Scan(
		&entry.Subject, &entry.CacheKey, &entry.StoryID, &entry.PageIndex, &entry.Lang,
		&entry.VoiceID, &entry.AudioURL, &entry.StoragePath, &entry.Bytes, &entry.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read voice-cache entry: %w", err)
	}

	return entry, nil
}

// Put upserts the cache entry. The write happens exactly once per miss,
// after the audio blob already exists, so last-write-wins is sufficient.
func (r *voiceCacheRepository) Put(ctx context.Context, entry *models.VoiceCacheEntry) error {
	query := `
		INSERT INTO voice_cache (subject, cache_key, story_id, page_index, lang, voice_id, audio_url, storage_path, bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (subject, cache_key)
		DO UPDATE SET story_id = $3, page_index = $4, lang = $5, voice_id = $6,
		              audio_url = $7, storage_path = $8, bytes = $9, created_at = $10`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query,
		entry.Subject, entry.CacheKey, entry.StoryID, entry.PageIndex, entry.Lang,
		entry.VoiceID, entry.AudioURL, entry.StoragePath, entry.Bytes, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write voice-cache entry: %w", err)
	}

	r.logger.Info("voice-cache entry written",
		zap.String("subject", entry.Subject),
		zap.String("cache_key", entry.CacheKey),
		zap.Int("bytes", entry.Bytes))

	return nil
}
