package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"buscom.dev/transit/model"
)

// FilesystemStore persists each replaced snapshot to disk so a
// restarted node can serve queries before its first daily init
// completes. Realtime feed blobs are short-lived and stay in memory
// only.
type FilesystemStore struct {
	path     string
	mu       sync.RWMutex
	snapshot *Snapshot
	feeds    model.RealtimeFeeds
}

// NewFilesystemStore opens (or creates) a store rooted at dir and
// loads the persisted snapshot if one exists. A corrupt or
// unreadable file is treated as no snapshot, not as a fatal error.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	s := &FilesystemStore{path: filepath.Join(dir, "snapshot.gob")}

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap := &Snapshot{}
	if err := gob.NewDecoder(f).Decode(snap); err == nil {
		s.snapshot = snap
	}

	return s, nil
}

func (s *FilesystemStore) Latest() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return s.snapshot, nil
}

// Replace swaps the in-memory snapshot and writes it to disk. The
// write goes through a temp file so a crash mid-write can't corrupt
// the previous snapshot.
func (s *FilesystemStore) Replace(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "snapshot-*.gob")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.snapshot = snap
	return nil
}

func (s *FilesystemStore) Feeds() (model.RealtimeFeeds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeds, nil
}

func (s *FilesystemStore) SetVehiclePositions(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds.VehiclePositions = b
	return nil
}

func (s *FilesystemStore) SetTripUpdates(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds.TripUpdates = b
	return nil
}
