package narration

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"parent-voice/internal/apperr"
	"parent-voice/pkg/models"
)

const (
	maxPageIndex  = 500
	minVoiceIDLen = 3
	maxTextRunes  = 1000
)

// Input is a validated, normalized narration request. All fields are trimmed
// and Lang is lower-cased, so identical logical requests produce identical
// cache keys regardless of incidental whitespace or case.
type Input struct {
	StoryID   string
	PageIndex int
	Lang      string
	VoiceID   string
	Text      string
}

// Validate checks the five request fields in fixed order; the first failure
// wins. No I/O happens here, so garbage input is rejected before any
// external call is made.
func Validate(req *models.NarrationRequest) (*Input, error) {
	storyID := strings.TrimSpace(req.StoryID)
	if storyID == "" {
		return nil, apperr.InvalidInput("Invalid storyId")
	}

	pageIndex, ok := coercePageIndex(req.PageIndex)
	if !ok || pageIndex < 0 || pageIndex > maxPageIndex {
		return nil, apperr.InvalidInput("Invalid pageIndex")
	}

	lang, ok := normalizeLang(req.Lang)
	if !ok {
		return nil, apperr.InvalidInput("Invalid lang (must be 'en' or 'te')")
	}

	voiceID := strings.TrimSpace(req.VoiceID)
	if utf8.RuneCountInString(voiceID) < minVoiceIDLen {
		return nil, apperr.InvalidInput("Invalid voiceId")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperr.InvalidInput("Empty text")
	}
	if utf8.RuneCountInString(text) > maxTextRunes {
		// distinct code: an over-long text is a billing guardrail, not malformed input
		return nil, apperr.PayloadTooLarge("Text too long (max 1000 chars)")
	}

	return &Input{
		StoryID:   storyID,
		PageIndex: pageIndex,
		Lang:      lang,
		VoiceID:   voiceID,
		Text:      text,
	}, nil
}

// coercePageIndex accepts JSON numbers and numeric strings, rejecting
// fractional values instead of truncating them.
func coercePageIndex(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// normalizeLang trims and lower-cases the language tag and checks it against
// the two supported languages.
func normalizeLang(lang string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "en" || l == "te" {
		return l, true
	}
	return "", false
}
