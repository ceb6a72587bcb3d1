package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"buscom.dev/transit/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
}

func ParseRoutes(data io.Reader) ([]model.Route, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes csv: %w", err)
	}

	seen := map[string]bool{}
	routes := make([]model.Route, 0, len(routeCsv))
	for _, r := range routeCsv {
		if r.ID == "" {
			continue
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("repeated route_id '%s'", r.ID)
		}
		seen[r.ID] = true

		routes = append(routes, model.Route{
			ID:        r.ID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
		})
	}

	return routes, nil
}
