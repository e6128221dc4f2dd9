package filehost

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// MockBackend accepts uploads without storing them. It serves local
// development when no bucket is configured.
type MockBackend struct {
	baseURL string

	mu   sync.Mutex
	keys []string
}

var _ Backend = (*MockBackend)(nil)

// NewMockBackend creates a MockBackend whose URLs start with baseURL
func NewMockBackend(baseURL string) *MockBackend {
	if baseURL == "" {
		baseURL = "https://files.healthclaims.local"
	}
	return &MockBackend{baseURL: strings.TrimRight(baseURL, "/")}
}

// Put drains body and remembers key
func (m *MockBackend) Put(ctx context.Context, key, _ string, body io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	m.mu.Lock()
	m.keys = append(m.keys, key)
	m.mu.Unlock()
	return nil
}

// PresignPut returns a fake signed URL
func (m *MockBackend) PresignPut(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s/%s?X-Mock-Expires=%d", m.baseURL, escapeKey(key), int(ttl.Seconds())), nil
}

// URL is the public address of key
func (m *MockBackend) URL(key string) string {
	return m.baseURL + "/" + escapeKey(key)
}

// Keys returns the keys stored so far
func (m *MockBackend) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}
