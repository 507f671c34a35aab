package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/user-directory/internal/domain"
)

// ErrNotConfigured is returned when no backend is wired.
var ErrNotConfigured = errors.New("attachment storage not configured")

const profilePrefix = "profiles/"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Bucket() string
}

// StoredObject references an uploaded attachment.
type StoredObject struct {
	Key string
	URL string
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend       ObjectStorage
	publicBaseURL string
}

// NewStorage constructs a Storage wrapper for the provided backend.
// A nil backend produces a Storage that rejects uploads.
func NewStorage(backend ObjectStorage, publicBaseURL string) *Storage {
	return &Storage{backend: backend, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Enabled reports whether a backend is wired.
func (s *Storage) Enabled() bool {
	return s != nil && s.backend != nil
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	return s.backend.EnsureBucket(ctx)
}

// Upload stores a profile image under a fresh key and returns its reference.
func (s *Storage) Upload(ctx context.Context, att *domain.Attachment) (StoredObject, error) {
	if !s.Enabled() {
		return StoredObject{}, ErrNotConfigured
	}
	key := ObjectKey(att)
	if err := s.backend.Put(ctx, key, att.Data, att.ContentType); err != nil {
		return StoredObject{}, err
	}
	return StoredObject{Key: key, URL: s.URL(key)}, nil
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	return s.backend.Delete(ctx, key)
}

// URL returns the public reference for key.
func (s *Storage) URL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	if !s.Enabled() {
		return key
	}
	return s.backend.URL(key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	if !s.Enabled() {
		return ""
	}
	return s.backend.Bucket()
}

// ObjectKey returns profiles/<blake2b-256 of content>-<uuid>[.ext].
// Each upload owns its object, so deleting it never affects another record.
func ObjectKey(att *domain.Attachment) string {
	return profilePrefix + Fingerprint(att.Data) + "-" + uuid.NewString() + extension(att.FileName)
}

// Fingerprint returns the hex blake2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func extension(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\ ") {
		return ""
	}
	return ext
}

// Close releases backend resources when the backend holds any.
func (s *Storage) Close() error {
	if !s.Enabled() {
		return nil
	}
	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
