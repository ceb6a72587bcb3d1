package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"buscom.dev/transit/model"
)

type TripCSV struct {
	ID        string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	Headsign  string `csv:"trip_headsign"`
}

func ParseTrips(data io.Reader) ([]model.Trip, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	seen := map[string]bool{}
	trips := make([]model.Trip, 0, len(tripCsv))
	for _, t := range tripCsv {
		if t.ID == "" || t.RouteID == "" {
			continue
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("repeated trip_id '%s'", t.ID)
		}
		seen[t.ID] = true

		trips = append(trips, model.Trip{
			ID:        t.ID,
			RouteID:   t.RouteID,
			ServiceID: t.ServiceID,
			Headsign:  t.Headsign,
		})
	}

	return trips, nil
}
