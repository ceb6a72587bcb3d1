// Package congestion keeps a running crowding average per (trip,
// stop-sequence). Each observation adds the vehicle's occupancy
// ordinal to a running sum; the average is sum/count. Records expire
// after 30 days and expired records read as absent.
package congestion

import (
	"math"
	"sync"
	"time"
)

const (
	// RecordTTL is how long an accumulated record stays readable.
	RecordTTL = 30 * 24 * time.Hour

	// batchChunkSize caps one backend round trip in BatchAverages,
	// matching the 100-key ceiling of managed key/value tables.
	batchChunkSize = 100
)

// Key identifies one accumulator.
type Key struct {
	TripID       string
	StopSequence uint32
}

// Store is the accumulator contract. Record is a read-modify-write
// that is NOT atomic against concurrent writers of the same key in
// other processes; within one process only the poll task writes.
type Store interface {
	// Record folds one occupancy observation into the key's
	// running sum and count, and pushes the expiry ~30 days out.
	Record(key Key, occupancy int) error

	// AverageFor returns sum/count rounded to 2 decimals. The
	// second return is false when the key is absent, expired, or
	// has a zero count.
	AverageFor(key Key) (float64, bool, error)

	// BatchAverages is AverageFor over many keys; missing keys are
	// simply left out of the result map.
	BatchAverages(keys []Key) (map[Key]float64, error)

	Close() error
}

func round2(sum int64, count int64) float64 {
	return math.Round(float64(sum)/float64(count)*100) / 100
}

// chunkKeys splits keys into backend-sized batches.
func chunkKeys(keys []Key) [][]Key {
	chunks := [][]Key{}
	for len(keys) > batchChunkSize {
		chunks = append(chunks, keys[:batchChunkSize])
		keys = keys[batchChunkSize:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}

// DedupeSet tracks which keys have already been recorded in the
// current service day. It is process-local: it guards against the
// same vehicle snapshot being folded in twice across poll ticks, not
// against other processes. The daily init task calls Reset.
type DedupeSet struct {
	mu   sync.Mutex
	seen map[Key]bool
}

func NewDedupeSet() *DedupeSet {
	return &DedupeSet{seen: map[Key]bool{}}
}

// Mark records the key, returning false if it was already present.
func (d *DedupeSet) Mark(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

// Seen reports whether the key has been marked.
func (d *DedupeSet) Seen(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[key]
}

func (d *DedupeSet) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = map[Key]bool{}
}

func (d *DedupeSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Recorder pairs a Store with a DedupeSet to give Record the
// at-most-once-per-service-day semantics.
type Recorder struct {
	Store  Store
	Dedupe *DedupeSet
}

// Record folds in one observation unless the key was already recorded
// in the current dedupe lifetime, in which case it is a no-op. The key
// is marked only after the store write succeeds, so a transient store
// failure leaves it eligible for the next poll tick.
func (r *Recorder) Record(key Key, occupancy int) error {
	if r.Dedupe.Seen(key) {
		return nil
	}
	if err := r.Store.Record(key, occupancy); err != nil {
		return err
	}
	r.Dedupe.Mark(key)
	return nil
}
