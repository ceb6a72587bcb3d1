package transit

import (
	"time"

	"buscom.dev/transit/model"
	"buscom.dev/transit/parse"
)

// TripStatus is the fused live view of one trip: where the vehicle
// is, how crowded it reports itself, and (when the trip-update feed
// has one) the predicted departure from the queried stop.
//
// Occupancy is the feed's instantaneous ordinal, not the historical
// average kept by the congestion store.
type TripStatus struct {
	Position     uint32 `json:"position"`
	PositionName string `json:"position_name"`
	Occupancy    int    `json:"congestion"`
	// HH:MM local wall clock; empty when the feed has no
	// prediction for the queried stop.
	EstimatedDeparture string `json:"departure,omitempty"`
}

// Fuse merges the latest vehicle-position and trip-update feeds into
// a per-trip status map, for the requested trips, as seen from the
// queried stop. Trips with no matching vehicle entity are simply
// absent from the result. Malformed feed bytes fail the whole call
// with a parse.FeedParseError naming the offending feed.
func Fuse(
	tripIDs []string,
	stopID string,
	feeds model.RealtimeFeeds,
	idx *model.ScheduleIndex,
	loc *time.Location,
) (map[string]TripStatus, error) {

	requested := map[string]bool{}
	for _, id := range tripIDs {
		requested[id] = true
	}

	snap, err := parse.ParseRealtime(feeds)
	if err != nil {
		return nil, err
	}

	result := map[string]TripStatus{}
	for _, pos := range snap.Positions {
		if !requested[pos.TripID] {
			continue
		}
		result[pos.TripID] = TripStatus{
			Position:     pos.StopSequence,
			PositionName: idx.StopName(pos.TripID, pos.StopSequence),
			Occupancy:    pos.Occupancy,
		}
	}

	// Departure predictions only attach to trips a vehicle was
	// seen for.
	for _, tu := range snap.Updates {
		status, ok := result[tu.TripID]
		if !ok || !requested[tu.TripID] {
			continue
		}
		for _, dep := range tu.Departures {
			if dep.StopID != stopID {
				continue
			}
			status.EstimatedDeparture = time.Unix(dep.DepartureUnix, 0).In(loc).Format("15:04")
			result[tu.TripID] = status
			break
		}
	}

	return result, nil
}
