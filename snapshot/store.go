// Package snapshot holds the per-operator state that queries read:
// the built schedule index, the typed static tables behind it, trip
// end times, and the raw bytes of the two most recent realtime
// feeds. Everything is replaced wholesale by the refresh/poll tasks
// and never mutated in place, so readers always see a
// self-consistent (possibly stale) view.
package snapshot

import (
	"errors"
	"time"

	"buscom.dev/transit/model"
)

// ErrNoSnapshot is returned before the first successful daily init.
var ErrNoSnapshot = errors.New("no schedule snapshot available")

// Snapshot is one day's processed static data. Exclusively owned by
// the refresh task that built it; readers must treat it as immutable.
type Snapshot struct {
	Static       *model.StaticData
	Index        *model.ScheduleIndex
	TripEndTimes map[string]int
	BuiltAt      time.Time
}

type Store interface {
	// Latest returns the current snapshot, or ErrNoSnapshot.
	Latest() (*Snapshot, error)

	// Replace swaps in a freshly built snapshot.
	Replace(*Snapshot) error

	// Feeds returns the most recent raw realtime blobs. Either
	// side may be empty before the first poll.
	Feeds() (model.RealtimeFeeds, error)

	SetVehiclePositions([]byte) error
	SetTripUpdates([]byte) error
}
