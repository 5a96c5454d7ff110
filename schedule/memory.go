package schedule

import (
	"sort"
	"time"

	"github.com/gezmi/plan-hikes/geo"
	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/parse"
)

// MemoryStore keeps the full date-specific schedule in maps. Suited
// for tests and one-shot CLI runs where build cost is paid anyway.
type MemoryStore struct {
	departures map[string][]Departure
	tripStops  map[string][]TripStop
	stops      map[string]model.Stop
	stopList   []model.Stop
	tripRoute  map[string]string
	routes     map[string]RouteInfo
}

func NewMemoryStore(feed *parse.Feed, date time.Time) *MemoryStore {
	sts, _ := activeStopTimes(feed, date)

	s := &MemoryStore{
		departures: map[string][]Departure{},
		tripStops:  map[string][]TripStop{},
		stops:      map[string]model.Stop{},
		tripRoute:  map[string]string{},
		routes:     map[string]RouteInfo{},
	}

	for _, st := range sts {
		s.departures[st.StopID] = append(s.departures[st.StopID], Departure{
			DepSecs: st.DepartureSecs,
			TripID:  st.TripID,
			Seq:     st.StopSequence,
		})
		s.tripStops[st.TripID] = append(s.tripStops[st.TripID], TripStop{
			StopID:  st.StopID,
			ArrSecs: st.ArrivalSecs,
			DepSecs: st.DepartureSecs,
			Seq:     st.StopSequence,
		})
	}

	for _, deps := range s.departures {
		sortDepartures(deps)
	}
	for _, ts := range s.tripStops {
		sortTripStops(ts)
	}

	for _, stop := range feed.Stops {
		s.stops[stop.ID] = stop
		s.stopList = append(s.stopList, stop)
	}
	for _, t := range feed.Trips {
		s.tripRoute[t.ID] = t.RouteID
	}
	for _, r := range feed.Routes {
		s.routes[r.ID] = RouteInfo{ShortName: r.ShortName, AgencyName: r.AgencyName}
	}

	return s
}

func (s *MemoryStore) Departures(stopID string) ([]Departure, error) {
	return s.departures[stopID], nil
}

func (s *MemoryStore) TripStops(tripID string) ([]TripStop, error) {
	return s.tripStops[tripID], nil
}

func (s *MemoryStore) StopName(stopID string) (string, bool) {
	stop, found := s.stops[stopID]
	return stop.Name, found
}

func (s *MemoryStore) TripRoute(tripID string) (string, bool) {
	routeID, found := s.tripRoute[tripID]
	return routeID, found
}

func (s *MemoryStore) RouteInfo(routeID string) (RouteInfo, bool) {
	info, found := s.routes[routeID]
	return info, found
}

func (s *MemoryStore) StopsWithin(lat, lon, radiusM float64) ([]model.Stop, error) {
	box := geo.BoxAround(lat, lon, radiusM)

	type hit struct {
		stop  model.Stop
		distM float64
	}
	var hits []hit
	for _, stop := range s.stopList {
		if !box.Contains(stop.Lat, stop.Lon) {
			continue
		}
		d := geo.HaversineM(lat, lon, stop.Lat, stop.Lon)
		if d <= radiusM {
			hits = append(hits, hit{stop, d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].distM < hits[j].distM
	})

	stops := make([]model.Stop, len(hits))
	for i, h := range hits {
		stops[i] = h.stop
	}
	return stops, nil
}

func (s *MemoryStore) Stops() []model.Stop {
	return s.stopList
}

func (s *MemoryStore) Close() error {
	return nil
}
