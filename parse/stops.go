package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"buscom.dev/transit/model"
)

type StopCSV struct {
	ID   string  `csv:"stop_id"`
	Name string  `csv:"stop_name"`
	Lat  float64 `csv:"stop_lat"`
	Lon  float64 `csv:"stop_lon"`
}

func ParseStops(data io.Reader) ([]model.Stop, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	seen := map[string]bool{}
	stops := make([]model.Stop, 0, len(stopCsv))
	for _, st := range stopCsv {
		// Rows without an id or name can't be indexed. Skip
		// them rather than fail the whole dump.
		if st.ID == "" || st.Name == "" {
			continue
		}
		if seen[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		seen[st.ID] = true

		stops = append(stops, model.Stop{
			ID:   st.ID,
			Name: st.Name,
			Lat:  st.Lat,
			Lon:  st.Lon,
		})
	}

	return stops, nil
}
