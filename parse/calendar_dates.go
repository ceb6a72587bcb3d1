package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"buscom.dev/transit/model"
)

type CalendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

// ParseCalendarDates parses the optional calendar_dates.txt. Rows
// with a bad date or exception type are skipped individually.
func ParseCalendarDates(data io.Reader) ([]model.CalendarDate, error) {
	calendarDateCsv := []*CalendarDateCSV{}
	if err := gocsv.Unmarshal(data, &calendarDateCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar_dates csv: %w", err)
	}

	dates := make([]model.CalendarDate, 0, len(calendarDateCsv))
	for _, cd := range calendarDateCsv {
		if cd.ServiceID == "" {
			continue
		}
		if cd.ExceptionType < 1 || cd.ExceptionType > 2 {
			continue
		}
		if _, err := time.ParseInLocation("20060102", cd.Date, time.UTC); err != nil {
			continue
		}

		dates = append(dates, model.CalendarDate{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: model.ExceptionType(cd.ExceptionType),
		})
	}

	return dates, nil
}
