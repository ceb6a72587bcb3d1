package transit

import (
	"sort"

	"buscom.dev/transit/model"
	"buscom.dev/transit/normalize"
)

// PhoneticLanguage is the translations.txt language tag that marks a
// row as a kana reading of a stop name.
const PhoneticLanguage = "ja-Hrkt"

// BuildIndex derives a ScheduleIndex from one operator's parsed
// static data. It is a pure function: identical inputs produce an
// identical index, and nothing is fetched or persisted here.
//
// phoneticLang selects which translation rows feed the phonetic name
// map; pass PhoneticLanguage unless the operator says otherwise.
func BuildIndex(data *model.StaticData, phoneticLang string) *model.ScheduleIndex {
	idx := &model.ScheduleIndex{
		StopsByName:        map[string]map[string]bool{},
		StopsByKanaName:    map[string]map[string]bool{},
		StopNames:          map[string]string{},
		StopLocations:      map[string]model.Location{},
		TripsByStop:        map[string]map[string]bool{},
		TripInfo:           map[string]model.TripInfo{},
		RouteNames:         map[string]string{},
		StopNameBySequence: map[string]map[uint32]string{},
	}

	// Phonetic readings, keyed by the source text they translate.
	kanaByName := map[string][]string{}
	for _, tr := range data.Translations {
		if tr.Language != phoneticLang {
			continue
		}
		kanaByName[tr.FieldValue] = append(kanaByName[tr.FieldValue], tr.Translation)
	}

	for _, stop := range data.Stops {
		norm := normalize.Text(stop.Name)
		if idx.StopsByName[norm] == nil {
			idx.StopsByName[norm] = map[string]bool{}
		}
		idx.StopsByName[norm][stop.ID] = true

		idx.StopNames[stop.ID] = stop.Name
		idx.StopLocations[stop.ID] = model.Location{Lat: stop.Lat, Lon: stop.Lon}

		for _, kana := range kanaByName[stop.Name] {
			norm := normalize.Text(kana)
			if idx.StopsByKanaName[norm] == nil {
				idx.StopsByKanaName[norm] = map[string]bool{}
			}
			idx.StopsByKanaName[norm][stop.ID] = true
		}
	}

	// Group stop_times by trip and order by stop_sequence. The
	// last entry is the trip's terminal stop.
	type seqStop struct {
		seq    uint32
		stopID string
	}
	tripStops := map[string][]seqStop{}
	for _, st := range data.StopTimes {
		tripStops[st.TripID] = append(tripStops[st.TripID], seqStop{st.StopSequence, st.StopID})
	}

	terminalStop := map[string]string{}
	for tripID, stops := range tripStops {
		sort.Slice(stops, func(i, j int) bool { return stops[i].seq < stops[j].seq })

		terminalStop[tripID] = stops[len(stops)-1].stopID

		names := map[uint32]string{}
		for _, s := range stops {
			names[s.seq] = idx.StopNames[s.stopID]

			if idx.TripsByStop[s.stopID] == nil {
				idx.TripsByStop[s.stopID] = map[string]bool{}
			}
			idx.TripsByStop[s.stopID][tripID] = true
		}
		idx.StopNameBySequence[tripID] = names
	}

	// A terminal arrival is not a departure; it must not be
	// searchable from that stop.
	for stopID, trips := range idx.TripsByStop {
		for tripID := range trips {
			if terminalStop[tripID] == stopID {
				delete(trips, tripID)
			}
		}
	}

	for _, trip := range data.Trips {
		idx.TripInfo[trip.ID] = model.TripInfo{RouteID: trip.RouteID, Headsign: trip.Headsign}
	}

	for _, route := range data.Routes {
		idx.RouteNames[route.ID] = route.DisplayName()
	}

	return idx
}

// BuildTripEndTimes computes each trip's latest departure in seconds
// since the service day's midnight. Past-midnight times (24:xx and
// up) are kept as-is so a 24:10 trip still counts as operating at
// 00:05 the next calendar day.
func BuildTripEndTimes(stopTimes []model.StopTime) map[string]int {
	endTimes := map[string]int{}
	for _, st := range stopTimes {
		sec := st.DepartureSeconds()
		if sec > endTimes[st.TripID] {
			endTimes[st.TripID] = sec
		}
	}
	return endTimes
}
