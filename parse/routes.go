package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/gezmi/plan-hikes/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
}

func parseRoutes(feed *Feed, data io.Reader, agency map[string]string) (map[string]bool, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes: %w", err)
	}

	routes := map[string]bool{}

	for _, r := range routeCsv {
		if routes[r.ID] {
			return nil, fmt.Errorf("repeated route_id: '%s'", r.ID)
		}
		routes[r.ID] = true

		if r.ID == "" {
			return nil, fmt.Errorf("route has no route_id")
		}

		// If multiple agencies, agency_id is required
		if len(agency) > 1 {
			if r.AgencyID == "" {
				return nil, fmt.Errorf("route_id '%s' has no agency_id", r.ID)
			}
		}

		agencyName, found := agency[r.AgencyID]
		if r.AgencyID != "" && !found {
			return nil, fmt.Errorf("unknown agency_id: '%s'", r.AgencyID)
		}
		if r.AgencyID == "" {
			// Single-agency feeds may omit agency_id on routes.
			for _, name := range agency {
				agencyName = name
			}
		}

		if r.ShortName == "" && r.LongName == "" {
			return nil, fmt.Errorf("route_id '%s' has no short_name or long_name", r.ID)
		}

		shortName := r.ShortName
		if shortName == "" {
			shortName = r.LongName
		}

		feed.Routes = append(feed.Routes, model.Route{
			ID:         r.ID,
			ShortName:  shortName,
			AgencyName: agencyName,
		})
	}

	return routes, nil
}
