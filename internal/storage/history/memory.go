// internal/storage/history/memory.go
package history

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory history store keeping the newest maxSize
// records.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
	counter int64
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		records: make([]Record, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a record to the store.
func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	rec.ID = m.counter

	m.records = append(m.records, *rec)

	// Trim if over capacity (remove oldest)
	if m.maxSize > 0 && len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}

	return nil
}

// List returns records matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Record{}
	for i := len(m.records) - 1; i >= 0; i-- {
		if !filter.matches(m.records[i]) {
			continue
		}
		result = append(result, m.records[i])
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) Close() error { return nil }
