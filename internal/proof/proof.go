// Package proof validates and stores payment proof artifacts. Payers attach
// a screenshot or receipt when they submit a transaction; the core validates
// the artifact locally (size and type) before any store call, then hands the
// bytes to a Store implementation that returns an opaque reference plus a
// public retrieval address.
package proof

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
)

// MaxSize is the largest artifact accepted, in bytes.
const MaxSize = 2 << 20 // 2 MiB

// allowedTypes is the set of content types an artifact may carry: common
// image formats and PDF receipts.
var allowedTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/gif":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// Artifact is the stored result: an opaque locator the transaction record
// keeps, plus a public address the owner can open to review the proof.
type Artifact struct {
	Ref string `json:"ref"`
	URL string `json:"url"`
}

// Metadata describes an artifact being uploaded.
type Metadata struct {
	Filename    string
	ContentType string
}

// Store persists proof artifacts. Implementations may be backed by local
// disk, object storage, or anything reachable by URL.
type Store interface {
	Upload(ctx context.Context, data []byte, meta Metadata) (Artifact, error)
}

// Validate checks an artifact against the size and type limits. It runs
// before any network or store call and returns a Validation taxonomy error
// on rejection. The declared content type is cross-checked against the
// sniffed one so a mislabeled binary cannot slip through.
func Validate(data []byte, meta Metadata) error {
	if len(data) == 0 {
		return apperr.Validation("proof artifact is empty")
	}
	if len(data) > MaxSize {
		return apperr.Validation(fmt.Sprintf("proof artifact exceeds %d bytes", MaxSize))
	}
	ct := normalizeType(meta.ContentType)
	if ct == "" {
		ct = normalizeType(http.DetectContentType(data))
	}
	if _, ok := allowedTypes[ct]; !ok {
		return apperr.Validation("proof artifact must be an image or PDF")
	}
	sniffed := normalizeType(http.DetectContentType(data))
	if _, ok := allowedTypes[sniffed]; !ok && sniffed != "application/octet-stream" {
		return apperr.Validation("proof artifact content does not match its declared type")
	}
	return nil
}

// normalizeType lowercases a content type and drops any parameters.
func normalizeType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// MemoryStore keeps artifacts in process memory and serves them from a
// configurable base URL. It is the default store for development and tests;
// production deployments swap in an object-storage implementation behind
// the same interface.
type MemoryStore struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore constructs an empty in-memory artifact store whose public
// URLs are rooted at baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   make(map[string][]byte),
	}
}

// Upload validates the artifact and stores a copy under a fresh reference.
func (s *MemoryStore) Upload(_ context.Context, data []byte, meta Metadata) (Artifact, error) {
	if err := Validate(data, meta); err != nil {
		return Artifact{}, err
	}
	ref := uuid.NewString() + extFor(meta)
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.blobs[ref] = cp
	s.mu.Unlock()

	return Artifact{Ref: ref, URL: s.baseURL + "/proofs/" + ref}, nil
}

// Get returns the stored bytes for ref, if present.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	return b, ok
}

// extFor derives a file extension from the upload metadata so stored
// references stay recognizable in owner-facing URLs.
func extFor(meta Metadata) string {
	if ext := path.Ext(meta.Filename); ext != "" && len(ext) <= 5 {
		return strings.ToLower(ext)
	}
	switch normalizeType(meta.ContentType) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
