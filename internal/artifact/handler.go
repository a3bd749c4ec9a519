package artifact

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FetchHandler serves signed audio URLs minted by the DiskStore. The URL
// itself is the credential: no further authentication is required to fetch
// the bytes, exactly like a cloud signed URL.
type FetchHandler struct {
	store  *DiskStore
	logger *zap.Logger
}

// NewFetchHandler creates the handler for GET /v1/audio/.
func NewFetchHandler(store *DiskStore, logger *zap.Logger) *FetchHandler {
	return &FetchHandler{
		store:  store,
		logger: logger,
	}
}

// ServeHTTP validates expiry and signature, then streams the blob.
func (h *FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/audio/")
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	sig := r.URL.Query().Get("sig")

	if !h.store.verify(path, exp, sig, time.Now()) {
		h.logger.Warn("rejected audio fetch",
			zap.String("path", path),
			zap.Int64("exp", exp))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	fullPath, err := h.store.open(path)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, fullPath)
}
