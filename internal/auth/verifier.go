package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parent-voice/internal/apperr"

	"go.uber.org/zap"
)

// Verifier checks a bearer credential with the identity service and returns
// the stable subject identifier of the caller.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ExtractBearer pulls the token out of an Authorization header value.
// Anything that is not exactly `Bearer <token>` fails with 401.
func ExtractBearer(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", apperr.Unauthenticated(fmt.Errorf("missing bearer token"))
	}
	token := header[len(prefix):]
	if token == "" {
		return "", apperr.Unauthenticated(fmt.Errorf("missing bearer token"))
	}
	return token, nil
}

// Client talks to the identity-verification service over HTTP.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new identity-service client.
func NewClient(apiURL string, logger *zap.Logger) *Client {
	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// verifyRequest is the body sent to the identity service.
type verifyRequest struct {
	Token string `json:"token"`
}

// verifyResponse is the identity service's answer for a valid token.
type verifyResponse struct {
	UID string `json:"uid"`
}

// Verify hands the token to the identity service. Every failure mode
// (transport error, non-200 status, empty uid) collapses into the same
// 401 so the caller cannot probe why verification failed. The real cause
// stays in the wrapped error for logging.
func (c *Client) Verify(ctx context.Context, token string) (string, error) {
	requestBody, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return "", apperr.Unauthenticated(fmt.Errorf("failed to marshal verify request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/v1/verify", bytes.NewReader(requestBody))
	if err != nil {
		return "", apperr.Unauthenticated(fmt.Errorf("failed to create verify request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Unauthenticated(fmt.Errorf("identity service unreachable: %w", err))
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Unauthenticated(fmt.Errorf("failed to read verify response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("token verification rejected",
			zap.Int("status_code", resp.StatusCode))
		return "", apperr.Unauthenticated(fmt.Errorf("identity service returned status %d", resp.StatusCode))
	}

	var verifyResp verifyResponse
	if err := json.Unmarshal(responseBody, &verifyResp); err != nil {
		return "", apperr.Unauthenticated(fmt.Errorf("failed to parse verify response: %w", err))
	}
	if verifyResp.UID == "" {
		return "", apperr.Unauthenticated(fmt.Errorf("identity service returned empty uid"))
	}

	return verifyResp.UID, nil
}
