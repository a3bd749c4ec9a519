package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"parent-voice/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc123")
	assert.NoError(t, err)
	assert.Equal(t, "abc123", token)

	cases := []string{"", "Bearer", "Bearer ", "Basic abc123", "bearer abc123"}
	for _, header := range cases {
		_, err := ExtractBearer(header)
		require.Error(t, err, "header %q", header)

		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	}
}

func TestVerify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/verify", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uid":"user-42"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	uid, err := client.Verify(context.Background(), "good-token")

	assert.NoError(t, err)
	assert.Equal(t, "user-42", uid)
}

func TestVerify_AllFailuresMapTo401(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "rejected token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "expired", http.StatusUnauthorized)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "empty uid",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"uid":""}`))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, zap.NewNop())
			_, err := client.Verify(context.Background(), "some-token")

			require.Error(t, err)
			appErr := apperr.FromError(err)
			assert.Equal(t, http.StatusUnauthorized, appErr.Status)
			assert.Equal(t, "Invalid or missing token", appErr.Message)
		})
	}
}

func TestVerify_TransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", zap.NewNop())
	_, err := client.Verify(context.Background(), "some-token")

	require.Error(t, err)
	appErr := apperr.FromError(err)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}
