package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"buscom.dev/transit/model"
)

// ParseStatic parses a zipped static schedule file set into typed
// rows. The standard file set (stops, stop_times, trips, routes,
// calendar) is required; calendar_dates.txt and translations.txt are
// optional. No storage or network side effects happen here.
func ParseStatic(buf []byte) (*model.StaticData, error) {
	file := map[string]io.ReadCloser{
		"stops.txt":          nil,
		"stop_times.txt":     nil,
		"trips.txt":          nil,
		"routes.txt":         nil,
		"calendar.txt":       nil,
		"calendar_dates.txt": nil,
		"translations.txt":   nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// Some agencies ship the files inside a subdirectory.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	for _, required := range []string{"stops.txt", "stop_times.txt", "trips.txt", "routes.txt", "calendar.txt"} {
		if file[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	data := &model.StaticData{}

	data.Stops, err = ParseStops(file["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}

	data.Routes, err = ParseRoutes(file["routes.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}

	data.Trips, err = ParseTrips(file["trips.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}

	data.StopTimes, err = ParseStopTimes(file["stop_times.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}

	data.Calendars, err = ParseCalendar(file["calendar.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing calendar.txt: %w", err)
	}

	if file["calendar_dates.txt"] != nil {
		data.CalendarDates, err = ParseCalendarDates(file["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
	}

	if file["translations.txt"] != nil {
		data.Translations, err = ParseTranslations(file["translations.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing translations.txt: %w", err)
		}
	}

	return data, nil
}
