package narration

import (
	"net/http"
	"strings"
	"testing"

	"parent-voice/internal/apperr"
	"parent-voice/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *models.NarrationRequest {
	return &models.NarrationRequest{
		StoryID:   "story-1",
		PageIndex: float64(3),
		Lang:      "en",
		Text:      "Once upon a time",
		VoiceID:   "voice-abc",
	}
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperr.FromError(err).Status)
}

func TestValidate_OK(t *testing.T) {
	in, err := Validate(validRequest())
	require.NoError(t, err)
	assert.Equal(t, "story-1", in.StoryID)
	assert.Equal(t, 3, in.PageIndex)
	assert.Equal(t, "en", in.Lang)
	assert.Equal(t, "voice-abc", in.VoiceID)
	assert.Equal(t, "Once upon a time", in.Text)
}

func TestValidate_StoryID(t *testing.T) {
	req := validRequest()
	req.StoryID = "   "
	_, err := Validate(req)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestValidate_PageIndex(t *testing.T) {
	rejected := []interface{}{float64(-1), float64(501), "abc", float64(3.5), nil, true}
	for _, v := range rejected {
		req := validRequest()
		req.PageIndex = v
		_, err := Validate(req)
		assertStatus(t, err, http.StatusBadRequest)
	}

	accepted := map[interface{}]int{
		float64(0):   0,
		float64(500): 500,
		"42":         42,
	}
	for v, want := range accepted {
		req := validRequest()
		req.PageIndex = v
		in, err := Validate(req)
		require.NoError(t, err, "pageIndex %v", v)
		assert.Equal(t, want, in.PageIndex)
	}
}

func TestValidate_Lang(t *testing.T) {
	for _, lang := range []string{"EN", " te ", "en", "Te"} {
		req := validRequest()
		req.Lang = lang
		in, err := Validate(req)
		require.NoError(t, err, "lang %q", lang)
		assert.Contains(t, []string{"en", "te"}, in.Lang)
	}

	for _, lang := range []string{"fr", "", "english", "123"} {
		req := validRequest()
		req.Lang = lang
		_, err := Validate(req)
		assertStatus(t, err, http.StatusBadRequest)
	}
}

func TestValidate_VoiceID(t *testing.T) {
	req := validRequest()
	req.VoiceID = " ab "
	_, err := Validate(req)
	assertStatus(t, err, http.StatusBadRequest)

	req.VoiceID = "abc"
	_, err = Validate(req)
	assert.NoError(t, err)
}

func TestValidate_Text(t *testing.T) {
	req := validRequest()
	req.Text = "   "
	_, err := Validate(req)
	assertStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Empty text", apperr.FromError(err).Message)

	req.Text = strings.Repeat("a", 1000)
	_, err = Validate(req)
	assert.NoError(t, err, "exactly 1000 characters is accepted")

	req.Text = strings.Repeat("a", 1001)
	_, err = Validate(req)
	assertStatus(t, err, http.StatusRequestEntityTooLarge)
}

func TestValidate_Order(t *testing.T) {
	// first failure wins: broken storyId masks the broken text
	req := validRequest()
	req.StoryID = ""
	req.Text = ""
	_, err := Validate(req)
	assert.Equal(t, "Invalid storyId", apperr.FromError(err).Message)
}

func TestDeriveKey(t *testing.T) {
	in1, err := Validate(validRequest())
	require.NoError(t, err)

	// incidental whitespace and case collapse to the same key
	req := validRequest()
	req.StoryID = "  story-1  "
	req.Lang = " EN "
	req.VoiceID = " voice-abc "
	in2, err := Validate(req)
	require.NoError(t, err)

	assert.Equal(t, DeriveKey(in1), DeriveKey(in2))
	assert.Equal(t, "voice-abc|story-1|3|en", DeriveKey(in1))

	// a different page is a different key
	req = validRequest()
	req.PageIndex = float64(4)
	in3, err := Validate(req)
	require.NoError(t, err)
	assert.NotEqual(t, DeriveKey(in1), DeriveKey(in3))
}

func TestStoragePath(t *testing.T) {
	in, err := Validate(validRequest())
	require.NoError(t, err)

	assert.Equal(t, "users/u1/voice_cache/voice-abc/story-1/page_3_en.mp3", StoragePath("u1", in))
}
