package congestion

import (
	"sync"
	"time"
)

// In-memory Store. Used in tests and for single-node deployments
// where history may be lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]*memoryRecord

	TimeNow func() time.Time
}

type memoryRecord struct {
	sum         int64
	count       int64
	lastUpdated time.Time
	expiresAt   time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[Key]*memoryRecord{},
		TimeNow: time.Now,
	}
}

func (s *MemoryStore) Record(key Key, occupancy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.TimeNow()
	rec, ok := s.records[key]
	if !ok || now.After(rec.expiresAt) {
		rec = &memoryRecord{}
		s.records[key] = rec
	}

	rec.sum += int64(occupancy)
	rec.count++
	rec.lastUpdated = now
	rec.expiresAt = now.Add(RecordTTL)

	return nil
}

func (s *MemoryStore) AverageFor(key Key) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.count == 0 || s.TimeNow().After(rec.expiresAt) {
		return 0, false, nil
	}
	return round2(rec.sum, rec.count), true, nil
}

func (s *MemoryStore) BatchAverages(keys []Key) (map[Key]float64, error) {
	averages := map[Key]float64{}
	for _, key := range keys {
		avg, ok, err := s.AverageFor(key)
		if err != nil {
			return nil, err
		}
		if ok {
			averages[key] = avg
		}
	}
	return averages, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
