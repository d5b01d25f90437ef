package store

import (
	"context"
	"sync"

	"saral/pkg/domain"
)

// MemoryStore keeps everything in-process.
type MemoryStore struct {
	mu       sync.RWMutex
	uploads  []domain.UploadHistoryRecord // oldest first
	queries  []domain.QueryHistoryRecord  // oldest first
	settings map[string]domain.NotificationPrefs
	chunks   map[string][]domain.Chunk
	sources  []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings: make(map[string]domain.NotificationPrefs),
		chunks:   make(map[string][]domain.Chunk),
	}
}

func (m *MemoryStore) AddUpload(_ context.Context, rec domain.UploadHistoryRecord) error {
	m.mu.Lock()
	m.uploads = append(m.uploads, rec)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListUploads(_ context.Context) ([]domain.UploadHistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.UploadHistoryRecord, 0, len(m.uploads))
	for i := len(m.uploads) - 1; i >= 0; i-- {
		out = append(out, m.uploads[i])
	}
	return out, nil
}

func (m *MemoryStore) AddQuery(_ context.Context, rec domain.QueryHistoryRecord) error {
	m.mu.Lock()
	m.queries = append(m.queries, rec)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListQueries(_ context.Context) ([]domain.QueryHistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.QueryHistoryRecord, 0, len(m.queries))
	for i := len(m.queries) - 1; i >= 0; i-- {
		out = append(out, m.queries[i])
	}
	return out, nil
}

func (m *MemoryStore) GetNotifications(_ context.Context, email string) (domain.NotificationPrefs, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefs, ok := m.settings[email]
	return prefs, ok, nil
}

func (m *MemoryStore) SaveNotifications(_ context.Context, email string, prefs domain.NotificationPrefs) error {
	m.mu.Lock()
	m.settings[email] = prefs
	m.mu.Unlock()
	return nil
}

// ReplaceChunks swaps all chunks of sourceID.
func (m *MemoryStore) ReplaceChunks(_ context.Context, sourceID string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.chunks[sourceID]; !exists {
		m.sources = append(m.sources, sourceID)
	}
	cp := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.SourceID = sourceID
		cp[i] = c
	}
	m.chunks[sourceID] = cp
	return nil
}

// SearchChunks ranks every stored chunk by query term overlap.
func (m *MemoryStore) SearchChunks(_ context.Context, query string, limit int) ([]domain.Chunk, error) {
	m.mu.RLock()
	all := make([]domain.Chunk, 0)
	for _, src := range m.sources {
		all = append(all, m.chunks[src]...)
	}
	m.mu.RUnlock()
	return rankChunks(searchTerms(query), all, limit), nil
}

func (m *MemoryStore) CountChunks(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, cs := range m.chunks {
		n += len(cs)
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
