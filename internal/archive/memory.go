package archive

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mutex   sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Save stores a copy of record.
func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records[record.ID] = *record
	return nil
}

// Get returns a copy of the record with id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// List returns stored records, newest first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Record, error) {
	s.mutex.RLock()
	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		copied := record
		records = append(records, &copied)
	}
	s.mutex.RUnlock()

	return newestFirst(records, limit), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
