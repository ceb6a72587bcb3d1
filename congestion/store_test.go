package congestion

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAverages(t *testing.T) {
	s := NewMemoryStore()
	key := Key{TripID: "t1", StopSequence: 3}

	_, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, occupancy := range []int{1, 3, 5} {
		require.NoError(t, s.Record(key, occupancy))
	}

	avg, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, avg)
}

func TestMemoryStoreRounding(t *testing.T) {
	s := NewMemoryStore()
	key := Key{TripID: "t1", StopSequence: 1}

	require.NoError(t, s.Record(key, 1))
	require.NoError(t, s.Record(key, 2))
	require.NoError(t, s.Record(key, 2))

	avg, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.67, avg)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	key := Key{TripID: "t1", StopSequence: 1}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.TimeNow = func() time.Time { return now }

	require.NoError(t, s.Record(key, 4))

	// Just before the TTL the record is still readable.
	now = now.Add(RecordTTL - time.Minute)
	avg, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4.0, avg)

	// Past the TTL it reads as absent.
	now = now.Add(2 * time.Minute)
	_, ok, err = s.AverageFor(key)
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh observation restarts the accumulator from scratch.
	require.NoError(t, s.Record(key, 6))
	avg, ok, err = s.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 6.0, avg)
}

func TestMemoryStoreBatchMatchesPointwise(t *testing.T) {
	s := NewMemoryStore()

	keys := []Key{
		{TripID: "t1", StopSequence: 1},
		{TripID: "t1", StopSequence: 2},
		{TripID: "t2", StopSequence: 1},
	}
	require.NoError(t, s.Record(keys[0], 2))
	require.NoError(t, s.Record(keys[0], 4))
	require.NoError(t, s.Record(keys[1], 5))

	batch, err := s.BatchAverages(append(keys, Key{TripID: "ghost", StopSequence: 9}))
	require.NoError(t, err)

	require.Len(t, batch, 2)
	assert.Equal(t, 3.0, batch[keys[0]])
	assert.Equal(t, 5.0, batch[keys[1]])
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	defer s.Close()

	key := Key{TripID: "t1", StopSequence: 3}
	for _, occupancy := range []int{1, 3, 5} {
		require.NoError(t, s.Record(key, occupancy))
	}

	avg, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, avg)

	_, ok, err = s.AverageFor(Key{TripID: "ghost", StopSequence: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreExpiry(t *testing.T) {
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	defer s.Close()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.TimeNow = func() time.Time { return now }

	key := Key{TripID: "t1", StopSequence: 1}
	require.NoError(t, s.Record(key, 4))

	now = now.Add(RecordTTL + time.Minute)
	_, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Record(key, 6))
	avg, ok, err := s.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 6.0, avg)
}

func TestSQLiteStoreBatchAveragesChunks(t *testing.T) {
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	defer s.Close()

	// More keys than one chunk holds.
	keys := make([]Key, batchChunkSize+20)
	for i := range keys {
		keys[i] = Key{TripID: "t1", StopSequence: uint32(i + 1)}
		require.NoError(t, s.Record(keys[i], i%5))
	}

	batch, err := s.BatchAverages(keys)
	require.NoError(t, err)
	assert.Len(t, batch, len(keys))
	assert.Equal(t, 1.0, batch[keys[1]])
}

func TestChunkKeys(t *testing.T) {
	keys := make([]Key, 2*batchChunkSize+5)
	for i := range keys {
		keys[i] = Key{TripID: "t", StopSequence: uint32(i)}
	}

	chunks := chunkKeys(keys)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], batchChunkSize)
	assert.Len(t, chunks[1], batchChunkSize)
	assert.Len(t, chunks[2], 5)

	assert.Empty(t, chunkKeys(nil))
}

func TestDedupeSet(t *testing.T) {
	d := NewDedupeSet()
	key := Key{TripID: "t1", StopSequence: 1}

	assert.True(t, d.Mark(key))
	assert.False(t, d.Mark(key))
	assert.Equal(t, 1, d.Len())

	assert.True(t, d.Mark(Key{TripID: "t1", StopSequence: 2}))
	assert.Equal(t, 2, d.Len())

	d.Reset()
	assert.Equal(t, 0, d.Len())
	assert.True(t, d.Mark(key))
}

type failingStore struct {
	*MemoryStore
	failures int
}

func (s *failingStore) Record(key Key, occupancy int) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Record(key, occupancy)
}

func TestRecorderRetriesAfterStoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), failures: 1}
	r := &Recorder{Store: store, Dedupe: NewDedupeSet()}
	key := Key{TripID: "t1", StopSequence: 1}

	require.Error(t, r.Record(key, 3))

	// The failed write must not count against the dedupe set, so
	// the next poll tick can still record the key.
	require.NoError(t, r.Record(key, 3))

	avg, ok, err := store.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, avg)

	// Once recorded, the key dedupes as usual.
	require.NoError(t, r.Record(key, 5))
	avg, _, err = store.AverageFor(key)
	require.NoError(t, err)
	assert.Equal(t, 3.0, avg)
}

func TestRecorderRecordsOncePerKey(t *testing.T) {
	store := NewMemoryStore()
	r := &Recorder{Store: store, Dedupe: NewDedupeSet()}
	key := Key{TripID: "t1", StopSequence: 1}

	require.NoError(t, r.Record(key, 3))
	require.NoError(t, r.Record(key, 5))

	// Second observation was dropped by the dedupe set.
	avg, ok, err := store.AverageFor(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, avg)

	// After a reset (new service day) the key records again.
	r.Dedupe.Reset()
	require.NoError(t, r.Record(key, 5))

	avg, _, err = store.AverageFor(key)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
}
