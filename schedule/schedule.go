// Package schedule provides a date-specific view of a GTFS feed. A
// store is built for a single travel date and holds only trips whose
// service runs on that date, indexed for the two access patterns the
// router needs: departures by stop and stop visits by trip.
package schedule

import (
	"sort"
	"time"

	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/parse"
)

// A departure of some trip from a stop.
type Departure struct {
	DepSecs int
	TripID  string
	Seq     int
}

// One visit of a trip, ordered by stop_sequence.
type TripStop struct {
	StopID  string
	ArrSecs int
	DepSecs int
	Seq     int
}

// Display metadata for a route.
type RouteInfo struct {
	ShortName  string
	AgencyName string
}

// Store is a read-only date-specific schedule. Departures are sorted
// by departure time, trip stops by stop_sequence. StopsWithin returns
// stops ordered nearest first.
type Store interface {
	Departures(stopID string) ([]Departure, error)
	TripStops(tripID string) ([]TripStop, error)
	StopName(stopID string) (string, bool)
	TripRoute(tripID string) (string, bool)
	RouteInfo(routeID string) (RouteInfo, bool)
	StopsWithin(lat, lon, radiusM float64) ([]model.Stop, error)
	Stops() []model.Stop
	Close() error
}

// ActiveServices returns the service IDs running on the given date.
// The calendar's date range and weekday mask decide first, then
// calendar_dates exceptions add (1) or remove (2) services.
func ActiveServices(feed *parse.Feed, date time.Time) map[string]bool {
	dateStr := date.Format("20060102")
	weekdayBit := int8(1) << date.Weekday()

	active := map[string]bool{}
	for _, c := range feed.Calendars {
		if c.StartDate <= dateStr && dateStr <= c.EndDate && c.Weekday&weekdayBit != 0 {
			active[c.ServiceID] = true
		}
	}

	for _, cd := range feed.CalendarDates {
		if cd.Date != dateStr {
			continue
		}
		switch cd.ExceptionType {
		case 1:
			active[cd.ServiceID] = true
		case 2:
			delete(active, cd.ServiceID)
		}
	}

	return active
}

// activeStopTimes filters the feed's stop_times down to trips whose
// service runs on the date, returning also the set of active trips.
func activeStopTimes(feed *parse.Feed, date time.Time) ([]model.StopTime, map[string]bool) {
	services := ActiveServices(feed, date)

	activeTrips := map[string]bool{}
	for _, t := range feed.Trips {
		if services[t.ServiceID] {
			activeTrips[t.ID] = true
		}
	}

	sts := make([]model.StopTime, 0, len(feed.StopTimes))
	for _, st := range feed.StopTimes {
		if activeTrips[st.TripID] {
			sts = append(sts, st)
		}
	}

	return sts, activeTrips
}

func sortDepartures(deps []Departure) {
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].DepSecs != deps[j].DepSecs {
			return deps[i].DepSecs < deps[j].DepSecs
		}
		return deps[i].TripID < deps[j].TripID
	})
}

func sortTripStops(ts []TripStop) {
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].Seq < ts[j].Seq
	})
}
