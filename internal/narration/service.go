package narration

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"parent-voice/internal/apperr"
	"parent-voice/internal/artifact"
	"parent-voice/internal/ratelimit"
	"parent-voice/internal/store"
	"parent-voice/internal/tts"
	"parent-voice/pkg/models"

	"go.uber.org/zap"
)

// Recorder receives pipeline observations. Implemented by metrics.Metrics.
type Recorder interface {
	RecordCacheLookup(result string)
	RecordRateLimited()
	RecordSynthesis(success bool, seconds float64, bytes int)
}

// Service runs the narration pipeline: rate limit, validate, cache lookup,
// synthesize, store, cache write. Everything is sequential within one
// request; the only cross-request state lives in the durable stores.
type Service struct {
	limiter   ratelimit.Limiter
	cache     store.VoiceCacheRepository
	synth     tts.Synthesizer
	artifacts artifact.Store
	recorder  Recorder
	logger    *zap.Logger

	providerKey string
	urlTTL      time.Duration
}

// NewService wires the pipeline.
func NewService(
	limiter ratelimit.Limiter,
	cache store.VoiceCacheRepository,
	synth tts.Synthesizer,
	artifacts artifact.Store,
	recorder Recorder,
	providerKey string,
	urlTTL time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		limiter:     limiter,
		cache:       cache,
		synth:       synth,
		artifacts:   artifacts,
		recorder:    recorder,
		logger:      logger,
		providerKey: providerKey,
		urlTTL:      urlTTL,
	}
}

// Speak produces the narration for an already-authenticated subject. Either
// the cached audio URL is returned, or the text is synthesized, persisted
// and cached. The operation is idempotent per cache key: two concurrent
// identical requests may both regenerate, but they write the same artifact.
func (s *Service) Speak(ctx context.Context, subject string, req *models.NarrationRequest) (*models.NarrationResult, error) {
	// The rate-limit transaction commits before any slow work starts, so a
	// slow provider call never blocks other requests' quota checks.
	if err := s.limiter.Allow(ctx, subject); err != nil {
		if apperr.FromError(err).Status == http.StatusTooManyRequests {
			s.recorder.RecordRateLimited()
		}
		return nil, err
	}

	in, err := Validate(req)
	if err != nil {
		return nil, err
	}

	if s.providerKey == "" {
		return nil, apperr.New(http.StatusInternalServerError, "Server not configured (missing ELEVENLABS_KEY)")
	}

	cacheKey := DeriveKey(in)

	entry, err := s.cache.Get(ctx, subject, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	if entry.Usable() {
		s.recorder.RecordCacheLookup("hit")
		s.logger.Info("cache hit",
			zap.String("subject", subject),
			zap.String("cache_key", cacheKey))
		return &models.NarrationResult{AudioURL: entry.AudioURL, Cached: true}, nil
	}
	// A malformed entry (present but without an audio URL) falls through and
	// regenerates instead of failing the request.
	s.recorder.RecordCacheLookup("miss")

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, in.Text, in.VoiceID)
	s.recorder.RecordSynthesis(err == nil, time.Since(start).Seconds(), len(audio))
	if err != nil {
		return nil, err
	}

	path := StoragePath(subject, in)
	if err := s.artifacts.Save(ctx, path, audio, "audio/mpeg"); err != nil {
		return nil, fmt.Errorf("failed to store audio artifact: %w", err)
	}

	audioURL, err := s.artifacts.SignedURL(path, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign audio URL: %w", err)
	}

	// Written exactly once per miss, after the blob exists; last write wins.
	if err := s.cache.Put(ctx, &models.VoiceCacheEntry{
		Subject:     subject,
		CacheKey:    cacheKey,
		StoryID:     in.StoryID,
		PageIndex:   in.PageIndex,
		Lang:        in.Lang,
		VoiceID:     in.VoiceID,
		AudioURL:    audioURL,
		StoragePath: path,
		Bytes:       len(audio),
		CreatedAt:   time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to write cache entry: %w", err)
	}

	s.logger.Info("narration generated",
		zap.String("subject", subject),
		zap.String("cache_key", cacheKey),
		zap.Int("bytes", len(audio)))

	return &models.NarrationResult{AudioURL: audioURL, Cached: false}, nil
}
