package snapshot

import (
	"sync"

	"buscom.dev/transit/model"
)

// In-memory Store. Single writer (the poll/refresh tasks), many
// readers (the query resolvers).
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	feeds    model.RealtimeFeeds
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Latest() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return s.snapshot, nil
}

func (s *MemoryStore) Replace(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	return nil
}

func (s *MemoryStore) Feeds() (model.RealtimeFeeds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeds, nil
}

func (s *MemoryStore) SetVehiclePositions(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds.VehiclePositions = b
	return nil
}

func (s *MemoryStore) SetTripUpdates(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds.TripUpdates = b
	return nil
}
