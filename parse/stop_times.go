package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"buscom.dev/transit/model"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	DepartureTime string `csv:"departure_time"`
	PickupType    string `csv:"pickup_type"`
	Headsign      string `csv:"stop_headsign"`
}

// normalizeStopTimeTime validates HH:MM:SS and zero-pads each
// component. Hours up to 99 are allowed per the past-midnight
// extension; zero-padding keeps lexicographic order chronological.
func normalizeStopTimeTime(s string) (string, error) {
	split := strings.Split(s, ":")
	if len(split) != 3 {
		return "", fmt.Errorf("found %d parts in '%s'", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return "", fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return "", fmt.Errorf("invalid hour in '%s'", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return "", fmt.Errorf("invalid minute in '%s'", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return "", fmt.Errorf("invalid second in '%s'", s)
	}

	return fmt.Sprintf("%02d:%02d:%02d", hms[0], hms[1], hms[2]), nil
}

// ParseStopTimes parses stop_times.txt. Rows with a malformed
// departure time or a missing id are skipped individually; a
// structurally broken file fails as a whole.
func ParseStopTimes(data io.Reader) ([]model.StopTime, error) {
	stopTimes := []model.StopTime{}

	i := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		i++
		if st.TripID == "" || st.StopID == "" {
			return nil
		}

		departure, err := normalizeStopTimeTime(st.DepartureTime)
		if err != nil {
			return nil
		}

		pickupType := int8(0)
		if strings.TrimSpace(st.PickupType) != "" {
			pt, err := strconv.Atoi(strings.TrimSpace(st.PickupType))
			if err != nil || pt < 0 || pt > 3 {
				return nil
			}
			pickupType = int8(pt)
		}

		stopTimes = append(stopTimes, model.StopTime{
			TripID:       st.TripID,
			StopID:       st.StopID,
			StopSequence: st.StopSequence,
			Departure:    departure,
			PickupType:   pickupType,
			Headsign:     st.Headsign,
		})

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshaling stop_times csv (row %d)", i)
	}

	return stopTimes, nil
}
