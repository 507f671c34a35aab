package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-directory/internal/domain"
)

type memoryBackend struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}}
}

func (m *memoryBackend) EnsureBucket(context.Context) error { return nil }

func (m *memoryBackend) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) URL(key string) string { return "mem://bucket/" + key }

func (m *memoryBackend) Bucket() string { return "bucket" }

func TestUploadStoresContentAddressedObject(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStorage(backend, "")
	att := &domain.Attachment{FileName: "Me.PNG", ContentType: "image/png", Data: []byte("pixels")}

	obj, err := store.Upload(context.Background(), att)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "profiles/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, "mem://bucket/"+obj.Key, obj.URL)
	assert.Equal(t, []byte("pixels"), backend.objects[obj.Key])

	again, err := store.Upload(context.Background(), &domain.Attachment{FileName: "copy.png", Data: []byte("pixels")})
	require.NoError(t, err)
	assert.NotEqual(t, obj.Key, again.Key)
	assert.Contains(t, again.Key, Fingerprint([]byte("pixels")))

	require.NoError(t, store.Delete(context.Background(), obj.Key))
	assert.Len(t, backend.objects, 1)
}

func TestPublicBaseURLOverridesBackend(t *testing.T) {
	store := NewStorage(newMemoryBackend(), "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/profiles/a.png", store.URL("profiles/a.png"))
}

func TestUploadPropagatesBackendError(t *testing.T) {
	backend := newMemoryBackend()
	backend.putErr = errors.New("boom")
	store := NewStorage(backend, "")

	_, err := store.Upload(context.Background(), &domain.Attachment{FileName: "a.png", Data: []byte("x")})
	require.Error(t, err)
}

func TestDisabledStorage(t *testing.T) {
	store := NewStorage(nil, "")
	assert.False(t, store.Enabled())

	_, err := store.Upload(context.Background(), &domain.Attachment{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, store.Delete(context.Background(), "k"), ErrNotConfigured)
	assert.NoError(t, store.Close())
}

func TestObjectKeyDropsSuspiciousExtensions(t *testing.T) {
	key := ObjectKey(&domain.Attachment{FileName: "evil.png/../x", Data: []byte("x")})
	assert.NotContains(t, key, "..")
	assert.Len(t, strings.TrimPrefix(key, "profiles/"), 64+1+36)
}
