package narration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"parent-voice/internal/apperr"
	"parent-voice/internal/ratelimit"
	"parent-voice/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCache is an in-memory VoiceCacheRepository.
type fakeCache struct {
	entries map[string]*models.VoiceCacheEntry
	getErr  error
	putErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.VoiceCacheEntry)}
}

func (c *fakeCache) Get(ctx context.Context, subject, cacheKey string) (*models.VoiceCacheEntry, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[subject+"/"+cacheKey], nil
}

func (c *fakeCache) Put(ctx context.Context, entry *models.VoiceCacheEntry) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[entry.Subject+"/"+entry.CacheKey] = entry
	return nil
}

// fakeSynth counts provider calls.
type fakeSynth struct {
	audio []byte
	err   error
	calls int
}

func (s *fakeSynth) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

// fakeArtifacts records saves and mints predictable URLs.
type fakeArtifacts struct {
	saved   map[string][]byte
	saveErr error
	signErr error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{saved: make(map[string][]byte)}
}

func (a *fakeArtifacts) Save(ctx context.Context, path string, data []byte, contentType string) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved[path] = data
	return nil
}

func (a *fakeArtifacts) SignedURL(path string, ttl time.Duration) (string, error) {
	if a.signErr != nil {
		return "", a.signErr
	}
	return fmt.Sprintf("https://audio.test/%s?sig=abc", path), nil
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(string)           {}
func (nopRecorder) RecordRateLimited()                 {}
func (nopRecorder) RecordSynthesis(bool, float64, int) {}

type fixture struct {
	service   *Service
	cache     *fakeCache
	synth     *fakeSynth
	artifacts *fakeArtifacts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache := newFakeCache()
	synth := &fakeSynth{audio: bytes.Repeat([]byte{1}, 4096)}
	artifacts := newFakeArtifacts()
	service := NewService(
		ratelimit.NewMemoryLimiter(time.Minute, 10),
		cache, synth, artifacts, nopRecorder{},
		"test-provider-key", 30*24*time.Hour, zap.NewNop(),
	)
	return &fixture{service: service, cache: cache, synth: synth, artifacts: artifacts}
}

func TestSpeak_MissThenHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Speak(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.AudioURL)
	assert.Equal(t, 1, f.synth.calls)

	// stored under the subject-namespaced path
	assert.Contains(t, f.artifacts.saved, "users/u1/voice_cache/voice-abc/story-1/page_3_en.mp3")

	// identical request differing only in whitespace/case hits the cache
	req := validRequest()
	req.Lang = " EN "
	req.StoryID = " story-1 "
	second, err := f.service.Speak(ctx, "u1", req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.AudioURL, second.AudioURL)
	assert.Equal(t, 1, f.synth.calls, "no provider call on a cache hit")
}

func TestSpeak_SubjectsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Speak(ctx, "u1", validRequest())
	require.NoError(t, err)

	// a different subject does not see u1's cache
	res, err := f.service.Speak(ctx, "u2", validRequest())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, f.synth.calls)
}

func TestSpeak_MalformedCacheEntryRegenerates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, err := Validate(validRequest())
	require.NoError(t, err)
	key := DeriveKey(in)

	// a present row with an empty URL is treated as a miss, not an error
	f.cache.entries["u1/"+key] = &models.VoiceCacheEntry{Subject: "u1", CacheKey: key, AudioURL: ""}

	res, err := f.service.Speak(ctx, "u1", validRequest())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, f.synth.calls)
	assert.NotEmpty(t, f.cache.entries["u1/"+key].AudioURL, "entry repaired")
}

func TestSpeak_RateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := f.service.Speak(ctx, "u1", validRequest())
		require.NoError(t, err)
	}

	_, err := f.service.Speak(ctx, "u1", validRequest())
	assertStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, 1, f.synth.calls, "rejections never reach the provider")
}

func TestSpeak_InvalidInputBeforeProvider(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Lang = "fr"
	_, err := f.service.Speak(context.Background(), "u1", req)
	assertStatus(t, err, http.StatusBadRequest)
	assert.Zero(t, f.synth.calls)
}

func TestSpeak_MissingProviderKey(t *testing.T) {
	f := newFixture(t)
	f.service.providerKey = ""

	_, err := f.service.Speak(context.Background(), "u1", validRequest())
	assertStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, "Server not configured (missing ELEVENLABS_KEY)", apperr.FromError(err).Message)
	assert.Zero(t, f.synth.calls)
}

func TestSpeak_UpstreamFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.synth.err = apperr.Upstream("ElevenLabs TTS failed", "quota exceeded")

	_, err := f.service.Speak(context.Background(), "u1", validRequest())
	assertStatus(t, err, http.StatusBadGateway)
	assert.Equal(t, "quota exceeded", apperr.FromError(err).Detail)
	assert.Empty(t, f.artifacts.saved, "nothing stored on provider failure")
}

func TestSpeak_StorageFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.artifacts.saveErr = errors.New("disk full")

	_, err := f.service.Speak(context.Background(), "u1", validRequest())
	assertStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, "Server error", apperr.FromError(err).Message, "internal detail stays server-side")
}

func TestSpeak_CacheReadFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.cache.getErr = errors.New("connection refused")

	_, err := f.service.Speak(context.Background(), "u1", validRequest())
	assertStatus(t, err, http.StatusInternalServerError)
	assert.Zero(t, f.synth.calls)
}
