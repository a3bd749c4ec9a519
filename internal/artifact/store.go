package artifact

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parent-voice/internal/config"

	"go.uber.org/zap"
)

// Store persists audio blobs and mints time-bounded retrieval URLs.
type Store interface {
	// Save durably writes the blob at the given path, overwriting any
	// prior content.
	Save(ctx context.Context, path string, data []byte, contentType string) error
	// SignedURL mints a read-only URL for the blob that stays valid for ttl.
	SignedURL(path string, ttl time.Duration) (string, error)
}

// DiskStore keeps blobs on the local filesystem and signs retrieval URLs
// with HMAC-SHA256, served back by FetchHandler in the same process.
type DiskStore struct {
	root    string
	baseURL string
	secret  []byte
	logger  *zap.Logger
}

// NewDiskStore creates the store and its root directory.
func NewDiskStore(cfg config.ArtifactConfig, baseURL string, logger *zap.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}

	return &DiskStore{
		root:    cfg.Root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(cfg.SigningSecret),
		logger:  logger,
	}, nil
}

// Save writes the blob, creating parent directories as needed.
func (s *DiskStore) Save(ctx context.Context, path string, data []byte, contentType string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Info("artifact saved",
		zap.String("path", path),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))

	return nil
}

// SignedURL returns a fetch URL carrying an expiry and an HMAC over
// path and expiry, so neither can be altered without the secret.
func (s *DiskStore) SignedURL(path string, ttl time.Duration) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	exp := time.Now().Add(ttl).UnixMilli()
	sig := s.sign(path, exp)

	return fmt.Sprintf("%s/v1/audio/%s?exp=%d&sig=%s", s.baseURL, path, exp, sig), nil
}

// open resolves a stored blob for serving.
func (s *DiskStore) open(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

func (s *DiskStore) sign(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", path, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

// verify checks the signature and expiry of a fetch request.
func (s *DiskStore) verify(path string, exp int64, sig string, now time.Time) bool {
	if exp <= now.UnixMilli() {
		return false
	}
	expected := s.sign(path, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return fmt.Errorf("invalid artifact path: %q", path)
	}
	return nil
}
