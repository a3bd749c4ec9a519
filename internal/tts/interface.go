package tts

import "context"

// Synthesizer converts clean text into audio bytes using the given voice.
type Synthesizer interface {
	// Synthesize issues one synthesis call. No retries: provider calls are
	// billed and the caller already paid the rate-limit cost.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
