package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscom.dev/transit/model"
)

func TestMemoryStoreReplace(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	first := &Snapshot{BuiltAt: time.Date(2026, 8, 28, 4, 30, 0, 0, time.UTC)}
	require.NoError(t, s.Replace(first))

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Same(t, first, got)

	second := &Snapshot{BuiltAt: first.BuiltAt.AddDate(0, 0, 1)}
	require.NoError(t, s.Replace(second))

	got, err = s.Latest()
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestMemoryStoreFeeds(t *testing.T) {
	s := NewMemoryStore()

	feeds, err := s.Feeds()
	require.NoError(t, err)
	assert.Equal(t, model.RealtimeFeeds{}, feeds)

	require.NoError(t, s.SetVehiclePositions([]byte("vp1")))

	feeds, err = s.Feeds()
	require.NoError(t, err)
	assert.Equal(t, []byte("vp1"), feeds.VehiclePositions)
	assert.Nil(t, feeds.TripUpdates)

	// Each side swaps independently.
	require.NoError(t, s.SetTripUpdates([]byte("tu1")))
	require.NoError(t, s.SetVehiclePositions([]byte("vp2")))

	feeds, err = s.Feeds()
	require.NoError(t, err)
	assert.Equal(t, []byte("vp2"), feeds.VehiclePositions)
	assert.Equal(t, []byte("tu1"), feeds.TripUpdates)
}
