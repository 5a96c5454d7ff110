package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/gezmi/plan-hikes/model"
)

type AgencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
}

// Returns agency_id -> agency_name, plus the feed timezone.
func parseAgency(feed *Feed, data io.Reader) (map[string]string, string, error) {
	agencyCsv := []*AgencyCSV{}
	if err := gocsv.Unmarshal(data, &agencyCsv); err != nil {
		return nil, "", fmt.Errorf("unmarshaling agency csv: %w", err)
	}

	if len(agencyCsv) == 0 {
		return nil, "", fmt.Errorf("no agency record found")
	}

	// "If multiple agencies are specified in the dataset, each
	// must have the same agency_timezone."
	agencyTz := map[string]bool{}
	for _, a := range agencyCsv {
		agencyTz[a.Timezone] = true
	}
	if len(agencyTz) != 1 {
		return nil, "", fmt.Errorf("multiple agency_timezone")
	}

	tz := agencyCsv[0].Timezone
	if tz == "" {
		return nil, "", fmt.Errorf("missing agency_timezone")
	}
	_, err := time.LoadLocation(tz)
	if err != nil {
		return nil, "", fmt.Errorf("agency_timezone '%s' is invalid: %w", tz, err)
	}

	agency := map[string]string{}
	for _, a := range agencyCsv {
		if _, found := agency[a.ID]; found {
			return nil, "", fmt.Errorf("duplicated agency_id: '%s'", a.ID)
		}

		if a.Name == "" {
			return nil, "", fmt.Errorf("missing agency_name")
		}

		agency[a.ID] = a.Name

		feed.Agencies = append(feed.Agencies, model.Agency{
			ID:       a.ID,
			Name:     a.Name,
			Timezone: tz,
		})
	}

	return agency, tz, nil
}
