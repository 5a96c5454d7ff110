package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hikeplan "github.com/gezmi/plan-hikes"
	"github.com/gezmi/plan-hikes/httpapi"
	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/schedule"
	"github.com/gezmi/plan-hikes/testutil"
)

type stubProvider struct {
	planner *hikeplan.Planner
	err     error
}

func (s stubProvider) PlannerFor(ctx context.Context, query model.HikeQuery) (*hikeplan.Planner, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.planner, nil
}

// fixturePlanner builds a planner over a single trail with one bus out
// and one bus back on Sunday 2026-03-01.
func fixturePlanner(t *testing.T) *hikeplan.Planner {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	feed := testutil.BuildFeed(t, map[string][]string{
		"agency.txt": {
			"agency_id,agency_name,agency_url,agency_timezone",
			"EGD,Egged,http://egged.co.il,Asia/Jerusalem",
		},
		"routes.txt": {
			"route_id,agency_id,route_short_name",
			"r1,EGD,11",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"all,1,1,1,1,1,1,1,20260101,20261231",
		},
		"trips.txt": {
			"route_id,service_id,trip_id",
			"r1,all,tOut",
			"r1,all,tRet",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"o1,Rehovot Central,31.8928,34.8113",
			"t1,Trailhead,31.9505,34.9000",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"tOut,07:00:00,07:00:00,o1,1",
			"tOut,08:00:00,08:00:00,t1,2",
			"tRet,15:00:00,15:00:00,t1,1",
			"tRet,16:00:00,16:00:00,o1,2",
		},
	})

	trail := &model.Trail{
		ID:     "osm:1",
		Name:   "Nahal Test",
		Source: "osm",
		Geometry: []model.LatLon{
			{Lat: 31.95, Lon: 34.90},
			{Lat: 31.95, Lon: 34.94},
		},
		DistanceKm: 3.78,
		Colors:     []string{"red"},
	}

	store := schedule.NewMemoryStore(feed, date)
	query := model.HikeQuery{Origin: "rehovot", Date: date}

	planner, err := hikeplan.New(store, []*model.Trail{trail}, deadline, query)
	require.NoError(t, err)
	return planner
}

func postPlan(t *testing.T, server *httpapi.Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestPlanEndpoint(t *testing.T) {
	server := httpapi.NewServer(stubProvider{planner: fixturePlanner(t)})

	w := postPlan(t, server, `{"origin": "rehovot", "date": "2026-03-01"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Origin   string `json:"origin"`
		Date     string `json:"date"`
		Deadline string `json:"deadline"`
		NPlans   int    `json:"n_plans"`
		Plans    []struct {
			TrailName    string  `json:"trail_name"`
			HikingRatio  float64 `json:"hiking_ratio"`
			Departure    string  `json:"departure_from_origin"`
			Arrival      string  `json:"arrival_at_origin"`
			OutboundLegs []struct {
				Line        string `json:"line"`
				DurationMin int    `json:"duration_minutes"`
			} `json:"outbound_legs"`
		} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "rehovot", resp.Origin)
	assert.Equal(t, "2026-03-01", resp.Date)
	assert.Equal(t, "18:00", resp.Deadline)
	require.Equal(t, 1, resp.NPlans)

	plan := resp.Plans[0]
	assert.Equal(t, "Nahal Test", plan.TrailName)
	assert.Equal(t, "07:00", plan.Departure)
	assert.Equal(t, "16:00", plan.Arrival)
	assert.Greater(t, plan.HikingRatio, 0.0)
	require.Len(t, plan.OutboundLegs, 1)
	assert.Equal(t, "11", plan.OutboundLegs[0].Line)
	assert.Equal(t, 60, plan.OutboundLegs[0].DurationMin)
}

func TestPlanEndpointBadRequests(t *testing.T) {
	server := httpapi.NewServer(stubProvider{planner: fixturePlanner(t)})

	for _, tc := range []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing origin", `{"date": "2026-03-01"}`},
		{"bad date", `{"origin": "rehovot", "date": "soon"}`},
		{"bad earliest", `{"origin": "rehovot", "date": "2026-03-01", "earliest_departure": "dawn"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := postPlan(t, server, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPlanEndpointSaturday(t *testing.T) {
	server := httpapi.NewServer(stubProvider{err: model.ErrSaturdayNotSupported})

	w := postPlan(t, server, `{"origin": "rehovot", "date": "2026-03-07"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "saturday")
}

func TestPlanEndpointFeedUnavailable(t *testing.T) {
	server := httpapi.NewServer(stubProvider{err: model.ErrFeedUnavailable})

	w := postPlan(t, server, `{"origin": "rehovot", "date": "2026-03-01"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCitiesEndpoint(t *testing.T) {
	server := httpapi.NewServer(stubProvider{})

	req := httptest.NewRequest("GET", "/api/cities", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cities []string `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Cities, "rehovot")
	assert.Contains(t, resp.Cities, "jerusalem")
}

func TestHealthEndpoint(t *testing.T) {
	server := httpapi.NewServer(stubProvider{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
