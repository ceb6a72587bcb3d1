package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"buscom.dev/transit/model"
)

type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

// ParseCalendar parses calendar.txt into weekly-pattern rows. Rows
// with unparseable dates or a blank service_id are skipped; they must
// not take down service resolution for the rest of the feed.
func ParseCalendar(data io.Reader) ([]model.Calendar, error) {
	calendarCsv := []*CalendarCSV{}
	if err := gocsv.Unmarshal(data, &calendarCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar csv: %w", err)
	}

	calendars := make([]model.Calendar, 0, len(calendarCsv))
	for _, c := range calendarCsv {
		if c.ServiceID == "" {
			continue
		}
		if _, err := time.ParseInLocation("20060102", c.StartDate, time.UTC); err != nil {
			continue
		}
		if _, err := time.ParseInLocation("20060102", c.EndDate, time.UTC); err != nil {
			continue
		}

		var weekday int8
		for i, flag := range []int8{c.Sunday, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday} {
			if flag == 1 {
				weekday |= 1 << i
			}
		}

		calendars = append(calendars, model.Calendar{
			ServiceID: c.ServiceID,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Weekday:   weekday,
		})
	}

	return calendars, nil
}
