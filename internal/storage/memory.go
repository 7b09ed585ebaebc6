package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"bloodlink-backend/internal/apperror"
)

// MemoryStore keeps documents in process memory; for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
	now     func() time.Time
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		baseURL: baseURL,
		now:     time.Now,
	}
}

var _ DocumentStore = (*MemoryStore)(nil)

func (m *MemoryStore) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (Object, error) {
	if err := CheckContentType(contentType); err != nil {
		return Object{}, err
	}
	key, err := objectPath(fileName, m.now())
	if err != nil {
		return Object{}, err
	}
	data, err := readLimited(body)
	if err != nil {
		return Object{}, err
	}

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	link, err := m.SignedURL(ctx, key, 15*time.Minute)
	if err != nil {
		return Object{}, err
	}
	return Object{Path: key, URL: link}, nil
}

func (m *MemoryStore) SignedURL(_ context.Context, objectPath string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[objectPath]
	m.mu.RUnlock()
	if !ok {
		return "", apperror.NotFound("document", objectPath)
	}
	expires := m.now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, url.PathEscape(objectPath), expires), nil
}

// Get returns the stored bytes for objectPath.
func (m *MemoryStore) Get(objectPath string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectPath]
	return data, ok
}
