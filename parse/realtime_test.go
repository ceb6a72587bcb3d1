package parse

import (
	"errors"
	"testing"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	proto "google.golang.org/protobuf/proto"

	"buscom.dev/transit/model"
)

func strPtr(s string) *string { return &s }
func u32Ptr(v uint32) *uint32 { return &v }
func i64Ptr(v int64) *int64   { return &v }

func vehicleEntity(id, tripID string, seq uint32, occupancy *gtfsproto.VehiclePosition_OccupancyStatus, status *gtfsproto.VehiclePosition_VehicleStopStatus) *gtfsproto.FeedEntity {
	return &gtfsproto.FeedEntity{
		Id: strPtr(id),
		Vehicle: &gtfsproto.VehiclePosition{
			Trip:                &gtfsproto.TripDescriptor{TripId: strPtr(tripID)},
			CurrentStopSequence: u32Ptr(seq),
			OccupancyStatus:     occupancy,
			CurrentStatus:       status,
		},
	}
}

func marshalFeed(t *testing.T, entities ...*gtfsproto.FeedEntity) []byte {
	feed := &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: strPtr("2.0"),
		},
		Entity: entities,
	}
	buf, err := proto.Marshal(feed)
	require.NoError(t, err)
	return buf
}

func TestParseVehiclePositions(t *testing.T) {
	occ := gtfsproto.VehiclePosition_FEW_SEATS_AVAILABLE
	stopped := gtfsproto.VehiclePosition_STOPPED_AT

	buf := marshalFeed(t,
		vehicleEntity("1", "t1", 3, &occ, nil),
		vehicleEntity("2", "t2", 5, nil, &stopped),
		vehicleEntity("3", "", 2, &occ, nil),   // no trip id
		vehicleEntity("4", "t4", 0, &occ, nil), // no sequence
	)

	positions, err := ParseVehiclePositions(buf)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "t1", positions[0].TripID)
	assert.Equal(t, uint32(3), positions[0].StopSequence)
	assert.Equal(t, int(gtfsproto.VehiclePosition_FEW_SEATS_AVAILABLE), positions[0].Occupancy)
	assert.True(t, positions[0].OccupancySet)
	assert.False(t, positions[0].StoppedAt)

	assert.Equal(t, "t2", positions[1].TripID)
	assert.False(t, positions[1].OccupancySet)
	assert.True(t, positions[1].StoppedAt)
}

func TestParseVehiclePositionsGarbage(t *testing.T) {
	_, err := ParseVehiclePositions([]byte("not a protobuf, not even close"))
	require.Error(t, err)

	var fpe *FeedParseError
	require.True(t, errors.As(err, &fpe))
	assert.Equal(t, FeedVehiclePositions, fpe.Feed)
}

func TestParseTripUpdates(t *testing.T) {
	buf := marshalFeed(t,
		&gtfsproto.FeedEntity{
			Id: strPtr("1"),
			TripUpdate: &gtfsproto.TripUpdate{
				Trip: &gtfsproto.TripDescriptor{TripId: strPtr("t1")},
				StopTimeUpdate: []*gtfsproto.TripUpdate_StopTimeUpdate{
					{
						StopId: strPtr("s1"),
						Departure: &gtfsproto.TripUpdate_StopTimeEvent{
							Time: i64Ptr(1700000000),
						},
					},
					{
						// No departure prediction, dropped.
						StopId: strPtr("s2"),
					},
				},
			},
		},
		&gtfsproto.FeedEntity{
			Id:         strPtr("2"),
			TripUpdate: &gtfsproto.TripUpdate{},
		},
	)

	updates, err := ParseTripUpdates(buf)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "t1", updates[0].TripID)
	require.Len(t, updates[0].Departures, 1)
	assert.Equal(t, "s1", updates[0].Departures[0].StopID)
	assert.Equal(t, int64(1700000000), updates[0].Departures[0].DepartureUnix)
}

func TestParseTripUpdatesGarbage(t *testing.T) {
	_, err := ParseTripUpdates([]byte("feed full of nonsense bytes here"))
	require.Error(t, err)

	var fpe *FeedParseError
	require.True(t, errors.As(err, &fpe))
	assert.Equal(t, FeedTripUpdates, fpe.Feed)
}

func TestParseRealtime(t *testing.T) {
	occ := gtfsproto.VehiclePosition_EMPTY
	feeds := model.RealtimeFeeds{
		VehiclePositions: marshalFeed(t, vehicleEntity("1", "t1", 1, &occ, nil)),
	}

	snap, err := ParseRealtime(feeds)
	require.NoError(t, err)
	assert.Len(t, snap.Positions, 1)
	assert.Empty(t, snap.Updates)
}
