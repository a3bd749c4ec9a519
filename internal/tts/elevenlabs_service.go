package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"parent-voice/internal/apperr"
	"parent-voice/internal/config"

	"go.uber.org/zap"
)

// minAudioBytes is the plausibility floor for a synthesis response. Anything
// shorter is an error page or silence, not narration audio.
const minAudioBytes = 200

// ElevenLabsService synthesizes speech through the ElevenLabs API.
type ElevenLabsService struct {
	cfg        config.ElevenLabsConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewElevenLabsService creates a new ElevenLabs TTS service.
func NewElevenLabsService(cfg config.ElevenLabsConfig, logger *zap.Logger) *ElevenLabsService {
	return &ElevenLabsService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// synthesizeRequest is the ElevenLabs request body.
type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize calls the ElevenLabs text-to-speech endpoint and classifies the
// outcome: a non-2xx response becomes an upstream failure carrying the raw
// provider body as detail, and an implausibly short success body is rejected
// the same way.
func (s *ElevenLabsService) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	request := synthesizeRequest{
		Text:    text,
		ModelID: s.cfg.Model,
		VoiceSettings: voiceSettings{
			Stability:       s.cfg.Stability,
			SimilarityBoost: s.cfg.SimilarityBoost,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.cfg.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	req.Header.Set("xi-api-key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	s.logger.Debug("sending synthesis request",
		zap.String("voice_id", voiceID),
		zap.Int("text_length", len(text)))

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("TTS provider request failed", err.Error())
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("TTS provider returned an error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(responseBody)))
		return nil, apperr.Upstream("ElevenLabs TTS failed", string(responseBody))
	}

	if len(responseBody) < minAudioBytes {
		s.logger.Error("TTS provider returned implausibly short audio",
			zap.Int("bytes", len(responseBody)))
		return nil, apperr.Upstream("Invalid audio returned from ElevenLabs", "")
	}

	s.logger.Info("audio synthesized",
		zap.String("voice_id", voiceID),
		zap.Int("bytes", len(responseBody)),
		zap.Duration("duration", time.Since(start)))

	return responseBody, nil
}
