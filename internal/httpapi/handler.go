package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"parent-voice/internal/apperr"
	"parent-voice/internal/auth"
	"parent-voice/internal/metrics"
	"parent-voice/internal/narration"
	"parent-voice/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NarrateHandler serves the narration endpoint: CORS preflight, bearer
// authentication and the pipeline itself. Each request is independent; all
// cross-request coordination lives in the durable stores.
type NarrateHandler struct {
	service  *narration.Service
	verifier auth.Verifier
	metrics  *metrics.Metrics
	timeout  time.Duration
	logger   *zap.Logger
}

// NewNarrateHandler creates the handler for POST /v1/narrate.
func NewNarrateHandler(service *narration.Service, verifier auth.Verifier, m *metrics.Metrics, timeout time.Duration, logger *zap.Logger) *NarrateHandler {
	return &NarrateHandler{
		service:  service,
		verifier: verifier,
		metrics:  m,
		timeout:  timeout,
		logger:   logger,
	}
}

// maxBodyBytes caps the request body. The narration text tops out at 1000
// characters, so a well-formed request fits with room to spare.
const maxBodyBytes = 64 << 10

// errorBody is the JSON error envelope.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ServeHTTP handles OPTIONS preflight and POST narration requests.
func (h *NarrateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	reqID := requestID()

	if r.Method != http.MethodPost {
		h.writeError(w, reqID, apperr.New(http.StatusMethodNotAllowed, "Method not allowed"))
		return
	}

	logger := h.logger.With(zap.String("request_id", reqID))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err != nil {
		h.writeError(w, reqID, err)
		return
	}

	subject, err := h.verifier.Verify(ctx, token)
	if err != nil {
		logger.Warn("authentication failed", zap.Error(err))
		h.writeError(w, reqID, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req models.NarrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, reqID, apperr.InvalidInput("Invalid request body"))
		return
	}

	result, err := h.service.Speak(ctx, subject, &req)
	if err != nil {
		appErr := apperr.FromError(err)
		// 5xx detail is logged here and never reaches the caller
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("narration request failed",
				zap.String("subject", subject),
				zap.Int("status", appErr.Status),
				zap.Error(err))
		} else {
			logger.Info("narration request rejected",
				zap.String("subject", subject),
				zap.Int("status", appErr.Status))
		}
		h.writeError(w, reqID, appErr)
		return
	}

	h.metrics.RecordRequest(strconv.Itoa(http.StatusOK))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", reqID)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError converts a classified failure into the JSON error envelope.
func (h *NarrateHandler) writeError(w http.ResponseWriter, reqID string, err error) {
	appErr := apperr.FromError(err)
	h.metrics.RecordRequest(strconv.Itoa(appErr.Status))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", reqID)
	w.WriteHeader(appErr.Status)

	body := errorBody{Error: appErr.Message, Detail: appErr.Detail}
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		h.logger.Error("failed to encode error response", zap.Error(encodeErr))
	}
}

func requestID() string {
	return uuid.NewString()
}
