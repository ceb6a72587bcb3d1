package parse

import (
	"fmt"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"

	"buscom.dev/transit/model"
)

const (
	FeedVehiclePositions = "vehicle_positions"
	FeedTripUpdates      = "trip_updates"
)

// FeedParseError reports which of the two realtime feeds failed to
// decode. Callers treat it as fatal for that poll only; the previous
// snapshot stays in place.
type FeedParseError struct {
	Feed string
	Err  error
}

func (e *FeedParseError) Error() string {
	return fmt.Sprintf("parsing %s feed: %v", e.Feed, e.Err)
}

func (e *FeedParseError) Unwrap() error {
	return e.Err
}

// VehiclePosition is one vehicle entity from a positions feed,
// trimmed to what the fusion engine and congestion recording need.
type VehiclePosition struct {
	TripID       string
	StopSequence uint32
	Occupancy    int
	OccupancySet bool
	StoppedAt    bool
}

// StopDeparture is a single per-stop departure prediction.
type StopDeparture struct {
	StopID        string
	DepartureUnix int64
}

// TripUpdate carries the per-stop predictions of one trip-update
// entity.
type TripUpdate struct {
	TripID     string
	Departures []StopDeparture
}

// ParseVehiclePositions decodes a vehicle-positions feed. Entities
// lacking a trip id or a current stop_sequence are dropped: without
// both there is no (trip, stop) key to work with.
func ParseVehiclePositions(feed []byte) ([]VehiclePosition, error) {
	f := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(feed, f); err != nil {
		return nil, &FeedParseError{Feed: FeedVehiclePositions, Err: err}
	}

	positions := []VehiclePosition{}
	for _, entity := range f.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil {
			continue
		}

		tripID := vehicle.GetTrip().GetTripId()
		seq := vehicle.GetCurrentStopSequence()
		if tripID == "" || seq == 0 {
			continue
		}

		positions = append(positions, VehiclePosition{
			TripID:       tripID,
			StopSequence: seq,
			Occupancy:    int(vehicle.GetOccupancyStatus()),
			OccupancySet: vehicle.OccupancyStatus != nil,
			StoppedAt:    vehicle.GetCurrentStatus() == gtfsproto.VehiclePosition_STOPPED_AT,
		})
	}

	return positions, nil
}

// ParseTripUpdates decodes a trip-updates feed into per-trip
// departure predictions. Stop time updates without a departure time
// are dropped.
func ParseTripUpdates(feed []byte) ([]TripUpdate, error) {
	f := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(feed, f); err != nil {
		return nil, &FeedParseError{Feed: FeedTripUpdates, Err: err}
	}

	updates := []TripUpdate{}
	for _, entity := range f.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}

		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		update := TripUpdate{TripID: tripID}
		for _, stu := range tu.GetStopTimeUpdate() {
			departure := stu.GetDeparture().GetTime()
			if stu.GetStopId() == "" || departure == 0 {
				continue
			}
			update.Departures = append(update.Departures, StopDeparture{
				StopID:        stu.GetStopId(),
				DepartureUnix: departure,
			})
		}

		updates = append(updates, update)
	}

	return updates, nil
}

// Snapshot of a full realtime poll, decoded.
type RealtimeSnapshot struct {
	Positions []VehiclePosition
	Updates   []TripUpdate
}

// ParseRealtime decodes both feeds of a model.RealtimeFeeds blob
// pair. A nil/empty blob yields an empty slice for that side.
func ParseRealtime(feeds model.RealtimeFeeds) (*RealtimeSnapshot, error) {
	snap := &RealtimeSnapshot{}

	if len(feeds.VehiclePositions) > 0 {
		positions, err := ParseVehiclePositions(feeds.VehiclePositions)
		if err != nil {
			return nil, err
		}
		snap.Positions = positions
	}

	if len(feeds.TripUpdates) > 0 {
		updates, err := ParseTripUpdates(feeds.TripUpdates)
		if err != nil {
			return nil, err
		}
		snap.Updates = updates
	}

	return snap, nil
}
