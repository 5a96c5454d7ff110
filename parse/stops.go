package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/gezmi/plan-hikes/model"
)

type StopCSV struct {
	ID           string  `csv:"stop_id"`
	Name         string  `csv:"stop_name"`
	Lat          float64 `csv:"stop_lat"`
	Lon          float64 `csv:"stop_lon"`
	LocationType int8    `csv:"location_type"`
}

func parseStops(feed *Feed, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stopIDs := map[string]bool{}
	for _, st := range stopCsv {
		if stopIDs[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}

		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		stopIDs[st.ID] = true

		// Stations, entrances and generic nodes carry no departures.
		// The planner only ever routes between boardable stops.
		if st.LocationType != 0 {
			continue
		}

		if st.Name == "" {
			return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
		}
		if st.Lat == 0 || st.Lon == 0 {
			return nil, fmt.Errorf("empty stop_lat or stop_lon for stop_id '%s'", st.ID)
		}

		feed.Stops = append(feed.Stops, model.Stop{
			ID:   st.ID,
			Name: st.Name,
			Lat:  st.Lat,
			Lon:  st.Lon,
		})
	}

	return stopIDs, nil
}
