package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

// MemoryStore keeps documents in process memory. Contents are lost on
// restart, so it serves tests and throwaway runs.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]*model.StoredFile
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string]*model.StoredFile),
	}
}

// Put inserts or replaces a file.
func (m *MemoryStore) Put(_ context.Context, file *model.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := *file
	rec.Data = append([]byte(nil), file.Data...)
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	rec.Size = int64(len(rec.Data))
	m.files[rec.Key] = &rec
	return nil
}

// Get returns a copy of the stored file.
func (m *MemoryStore) Get(_ context.Context, key string) (*model.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	out.Data = append([]byte(nil), rec.Data...)
	return &out, nil
}

// Stat returns the metadata of a stored file.
func (m *MemoryStore) Stat(_ context.Context, key string) (*model.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	out.Data = nil
	return &out, nil
}

// Delete removes a stored file.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; !ok {
		return ErrNotFound
	}
	delete(m.files, key)
	return nil
}
