package transit

import (
	"sort"
	"strings"

	"buscom.dev/transit/model"
	"buscom.dev/transit/normalize"
)

// A route name / destination pair served from a stop.
type RouteHeadsign struct {
	RouteName string
	Headsign  string
}

// One stop matching a search query.
type StopResult struct {
	StopID string
	Name   string
	Lat    float64
	Lon    float64
	Routes []RouteHeadsign
}

// Search finds stops whose normalized name contains the normalized
// query, checking the orthographic map as-is and the phonetic map
// with the query folded to katakana. Stops served by no boardable
// trip (terminal-only stops) are omitted.
func Search(idx *model.ScheduleIndex, query string) []StopResult {
	norm := normalize.Text(query)
	if norm == "" {
		return []StopResult{}
	}

	matched := map[string]bool{}
	for name, ids := range idx.StopsByName {
		if strings.Contains(name, norm) {
			for id := range ids {
				matched[id] = true
			}
		}
	}

	kana := normalize.HiraToKata(norm)
	for name, ids := range idx.StopsByKanaName {
		if strings.Contains(name, kana) {
			for id := range ids {
				matched[id] = true
			}
		}
	}

	results := []StopResult{}
	for stopID := range matched {
		routes := map[RouteHeadsign]bool{}
		for tripID := range idx.TripsByStop[stopID] {
			info := idx.TripInfo[tripID]
			name, ok := idx.RouteNames[info.RouteID]
			if !ok {
				name = info.RouteID
			}
			routes[RouteHeadsign{RouteName: name, Headsign: info.Headsign}] = true
		}
		if len(routes) == 0 {
			continue
		}

		rhs := make([]RouteHeadsign, 0, len(routes))
		for rh := range routes {
			rhs = append(rhs, rh)
		}
		sort.Slice(rhs, func(i, j int) bool {
			if rhs[i].RouteName != rhs[j].RouteName {
				return rhs[i].RouteName < rhs[j].RouteName
			}
			return rhs[i].Headsign < rhs[j].Headsign
		})

		loc := idx.StopLocations[stopID]
		results = append(results, StopResult{
			StopID: stopID,
			Name:   idx.StopNames[stopID],
			Lat:    loc.Lat,
			Lon:    loc.Lon,
			Routes: rhs,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StopID < results[j].StopID
	})

	return results
}
