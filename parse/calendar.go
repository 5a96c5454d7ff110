package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/gezmi/plan-hikes/model"
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

// Returns the set of all service IDs seen.
func parseCalendar(feed *Feed, data io.Reader) (map[string]bool, error) {
	calendarCsv := []*CalendarCSV{}
	if err := gocsv.Unmarshal(data, &calendarCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	knownServices := map[string]bool{}

	for _, c := range calendarCsv {
		if knownServices[c.ServiceID] {
			return nil, fmt.Errorf("repeated service_id '%s'", c.ServiceID)
		}
		knownServices[c.ServiceID] = true

		if c.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}

		var weekday int8
		for _, day := range []struct {
			name  string
			value int8
			bit   time.Weekday
		}{
			{"monday", c.Monday, time.Monday},
			{"tuesday", c.Tuesday, time.Tuesday},
			{"wednesday", c.Wednesday, time.Wednesday},
			{"thursday", c.Thursday, time.Thursday},
			{"friday", c.Friday, time.Friday},
			{"saturday", c.Saturday, time.Saturday},
			{"sunday", c.Sunday, time.Sunday},
		} {
			if day.value == 1 {
				weekday |= 1 << day.bit
			} else if day.value != 0 {
				return nil, fmt.Errorf("invalid %s value '%d'", day.name, day.value)
			}
		}

		_, err := time.ParseInLocation("20060102", c.StartDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}

		_, err = time.ParseInLocation("20060102", c.EndDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing end_date: %w", err)
		}

		feed.Calendars = append(feed.Calendars, model.Calendar{
			ServiceID: c.ServiceID,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Weekday:   weekday,
		})
	}

	return knownServices, nil
}
