package transit

import (
	"sort"
	"time"

	"buscom.dev/transit/model"
)

// A single upcoming departure on a stop's board.
type Departure struct {
	TripID       string
	StopSequence uint32
	Departure    string // HH:MM, hours may exceed 23
	RouteName    string
	Destination  string
}

// Departures computes the ordered departure board for a stop on a
// date. The board excludes trips not running that day, rows marked
// no-pickup, and each trip's terminal arrival. An unknown stop yields
// an empty board, not an error.
func Departures(data *model.StaticData, stopID string, day time.Time) []Departure {
	services := ActiveServices(data.Calendars, data.CalendarDates, day)

	tripsToday := map[string]model.Trip{}
	for _, trip := range data.Trips {
		if services[trip.ServiceID] {
			tripsToday[trip.ID] = trip
		}
	}

	routeNames := map[string]string{}
	for _, route := range data.Routes {
		routeNames[route.ID] = route.DisplayName()
	}

	type candidate struct {
		departure Departure
		raw       string // zero-padded HH:MM:SS, used for ordering
	}

	// One pass over stop_times collects candidates at the stop and
	// each trip's terminal sequence.
	terminalSeq := map[string]uint32{}
	candidates := []candidate{}

	for _, st := range data.StopTimes {
		// The terminal is usually a no-pickup row, so track it
		// before filtering on pickup_type.
		if st.StopSequence > terminalSeq[st.TripID] {
			terminalSeq[st.TripID] = st.StopSequence
		}

		if st.PickupType != 0 {
			continue
		}

		if st.StopID != stopID {
			continue
		}
		trip, ok := tripsToday[st.TripID]
		if !ok {
			continue
		}

		destination := st.Headsign
		if destination == "" {
			destination = trip.Headsign
		}

		candidates = append(candidates, candidate{
			departure: Departure{
				TripID:       st.TripID,
				StopSequence: st.StopSequence,
				Departure:    st.Departure[:5],
				RouteName:    routeNames[trip.RouteID],
				Destination:  destination,
			},
			raw: st.Departure,
		})
	}

	// A rider can't board at a trip's final stop.
	kept := candidates[:0]
	for _, c := range candidates {
		if c.departure.StopSequence == terminalSeq[c.departure.TripID] {
			continue
		}
		kept = append(kept, c)
	}

	// Zero-padded HH:MM:SS sorts chronologically, including the
	// past-midnight 24+ hours.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].raw < kept[j].raw
	})

	board := make([]Departure, 0, len(kept))
	for _, c := range kept {
		board = append(board, c.departure)
	}

	return board
}
