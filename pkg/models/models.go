package models

import (
	"time"
)

// RateLimitRecord is one subject's counter for a rate-limited feature.
// The record decays logically: once ResetAt has elapsed it counts as absent
// and the next admission starts a fresh window.
type RateLimitRecord struct {
	Subject   string    `json:"subject" db:"subject"`
	Feature   string    `json:"feature" db:"feature"`
	Count     int       `json:"count" db:"count"`
	ResetAt   time.Time `json:"reset_at" db:"reset_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the window has rolled over at the given instant.
func (r *RateLimitRecord) Expired(now time.Time) bool {
	return !r.ResetAt.After(now)
}

// VoiceCacheEntry records one synthesized narration per subject and cache key.
// AudioURL must be non-empty for the entry to be usable; a row with an empty
// URL is treated as corrupt and regenerated on the next request.
type VoiceCacheEntry struct {
	Subject     string    `json:"subject" db:"subject"`
	CacheKey    string    `json:"cache_key" db:"cache_key"`
	StoryID     string    `json:"story_id" db:"story_id"`
	PageIndex   int       `json:"page_index" db:"page_index"`
	Lang        string    `json:"lang" db:"lang"`
	VoiceID     string    `json:"voice_id" db:"voice_id"`
	AudioURL    string    `json:"audio_url" db:"audio_url"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	Bytes       int       `json:"bytes" db:"bytes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Usable reports whether the entry can be returned as a cache hit.
func (e *VoiceCacheEntry) Usable() bool {
	return e != nil && e.AudioURL != ""
}

// NarrationRequest is the POST body of the narration endpoint.
// PageIndex is decoded as a raw JSON value so the validator can reject
// fractional numbers and non-numeric strings instead of silently coercing.
type NarrationRequest struct {
	StoryID   string      `json:"storyId"`
	PageIndex interface{} `json:"pageIndex"`
	Lang      string      `json:"lang"`
	Text      string      `json:"text"`
	VoiceID   string      `json:"voiceId"`
}

// NarrationResult is the successful response of the narration endpoint.
type NarrationResult struct {
	AudioURL string `json:"audioUrl"`
	Cached   bool   `json:"cached"`
}
