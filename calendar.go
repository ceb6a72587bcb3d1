package transit

import (
	"time"

	"buscom.dev/transit/model"
)

// ActiveServices resolves the set of service ids running on the given
// date. Weekly-pattern rows seed the set; date-specific exceptions
// then add or remove ids. Exception rows are optional, and malformed
// rows have already been dropped at parse time, so resolution never
// fails.
func ActiveServices(calendars []model.Calendar, exceptions []model.CalendarDate, day time.Time) map[string]bool {
	date := day.Format("20060102")

	services := map[string]bool{}
	for _, cal := range calendars {
		if cal.Weekday&(1<<day.Weekday()) == 0 {
			continue
		}
		if cal.StartDate > date || cal.EndDate < date {
			continue
		}
		services[cal.ServiceID] = true
	}

	for _, cd := range exceptions {
		if cd.Date != date {
			continue
		}
		switch cd.ExceptionType {
		case model.ServiceAdded:
			services[cd.ServiceID] = true
		case model.ServiceRemoved:
			delete(services, cd.ServiceID)
		}
	}

	return services
}
