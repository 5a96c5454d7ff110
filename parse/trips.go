package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/gezmi/plan-hikes/model"
)

type TripCSV struct {
	ID        string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
}

func parseTrips(
	feed *Feed,
	data io.Reader,
	routes map[string]bool,
	services map[string]bool,
) (map[string]bool, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	trips := map[string]bool{}
	for _, t := range tripCsv {
		if trips[t.ID] {
			return nil, fmt.Errorf("repeated trip_id '%s'", t.ID)
		}
		trips[t.ID] = true

		if t.ID == "" {
			return nil, fmt.Errorf("empty trip_id")
		}
		if t.RouteID == "" {
			return nil, fmt.Errorf("empty route_id")
		}

		if !routes[t.RouteID] {
			return nil, fmt.Errorf("unknown route_id '%s'", t.RouteID)
		}
		if !services[t.ServiceID] {
			return nil, fmt.Errorf("unknown service_id '%s'", t.ServiceID)
		}

		feed.Trips = append(feed.Trips, model.Trip{
			ID:        t.ID,
			RouteID:   t.RouteID,
			ServiceID: t.ServiceID,
		})
	}

	return trips, nil
}
