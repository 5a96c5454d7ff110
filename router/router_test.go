package router_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gezmi/plan-hikes/router"
	"github.com/gezmi/plan-hikes/schedule"
	"github.com/gezmi/plan-hikes/testutil"
)

// A Sunday.
var testDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func buildRouter(t *testing.T, stopTimes []string) *router.Router {
	files := map[string][]string{
		"agency.txt": {
			"agency_id,agency_name,agency_url,agency_timezone",
			"EGD,Egged,http://egged.co.il,Asia/Jerusalem",
		},
		"routes.txt": {
			"route_id,agency_id,route_short_name",
			"r1,EGD,11",
			"r2,EGD,22",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"all,1,1,1,1,1,1,1,20260101,20261231",
		},
		"trips.txt": {
			"route_id,service_id,trip_id",
			"r1,all,tA",
			"r1,all,tB",
			"r1,all,tC",
			"r2,all,tD",
			"r2,all,tE",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"o1,Origin,31.8900,34.8100",
			"m1,Junction,31.9000,34.8200",
			"d1,Trailhead,31.9100,34.8300",
			"x1,Elsewhere,31.9200,34.8400",
		},
		"stop_times.txt": append(
			[]string{"trip_id,arrival_time,departure_time,stop_id,stop_sequence"},
			stopTimes...,
		),
	}

	feed := testutil.BuildFeed(t, files)
	return router.New(schedule.NewMemoryStore(feed, testDate), testDate)
}

func TestFindOutboundDirect(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,08:00:00,08:00:00,o1,1",
		"tA,09:00:00,09:00:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)

	assert.Equal(t, "11", legs[0].Line)
	assert.Equal(t, "Egged", legs[0].Operator)
	assert.Equal(t, "Origin", legs[0].FromStopName)
	assert.Equal(t, "Trailhead", legs[0].ToStopName)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), legs[0].Departure)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), legs[0].Arrival)
}

func TestFindOutboundPicksEarliestArrival(t *testing.T) {
	// tB departs later but arrives earlier. It must win.
	r := buildRouter(t, []string{
		"tA,08:00:00,08:00:00,o1,1",
		"tA,09:00:00,09:00:00,d1,2",
		"tB,08:10:00,08:10:00,o1,1",
		"tB,08:50:00,08:50:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 50, 0, 0, time.UTC), legs[0].Arrival)
}

func TestFindOutboundRespectsEarliestDeparture(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,05:00:00,05:00:00,o1,1",
		"tA,05:40:00,05:40:00,d1,2",
		"tB,08:10:00,08:10:00,o1,1",
		"tB,08:50:00,08:50:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 10, 0, 0, time.UTC), legs[0].Departure)
}

func TestFindOutboundTransfer(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,08:00:00,08:00:00,o1,1",
		"tA,08:20:00,08:20:00,m1,2",
		"tA,08:40:00,08:40:00,x1,3",
		"tD,08:25:00,08:25:00,m1,1",
		"tD,09:10:00,09:10:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	assert.Equal(t, "o1", legs[0].FromStopID)
	assert.Equal(t, "m1", legs[0].ToStopID)
	assert.Equal(t, "m1", legs[1].FromStopID)
	assert.Equal(t, "d1", legs[1].ToStopID)
	assert.Equal(t, "22", legs[1].Line)
}

func TestFindOutboundMinTransferTime(t *testing.T) {
	// The connection leaves 30 seconds after arrival. Below the one
	// minute floor, so no route.
	r := buildRouter(t, []string{
		"tA,08:00:00,08:00:00,o1,1",
		"tA,08:20:00,08:20:00,m1,2",
		"tD,08:20:30,08:20:30,m1,1",
		"tD,09:10:00,09:10:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	assert.Nil(t, legs)
}

func TestFindOutboundNoReboarding(t *testing.T) {
	// The only "connection" at m1 is the same trip. It must not be
	// reboarded, so no route to d1 exists below.
	r := buildRouter(t, []string{
		"tA,08:00:00,08:00:00,o1,1",
		"tA,08:20:00,08:21:30,m1,2",
		"tA,08:40:00,08:40:00,x1,3",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	assert.Nil(t, legs)
}

func TestFindOutboundDirectBeatsTransfer(t *testing.T) {
	r := buildRouter(t, []string{
		// Direct, arrives 09:00.
		"tA,08:00:00,08:00:00,o1,1",
		"tA,09:00:00,09:00:00,d1,2",
		// Transfer chain arriving 09:30. Must lose.
		"tB,08:05:00,08:05:00,o1,1",
		"tB,08:15:00,08:15:00,m1,2",
		"tD,08:30:00,08:30:00,m1,1",
		"tD,09:30:00,09:30:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), legs[0].Arrival)
}

func TestFindOutboundPastMidnight(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,24:30:00,24:30:00,o1,1",
		"tA,25:00:00,25:00:00,d1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)

	// Times roll into March 2nd.
	assert.Equal(t, time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC), legs[0].Departure)
	assert.Equal(t, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC), legs[0].Arrival)
}

func TestFindOutboundNoRoute(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,08:00:00,08:00:00,o1,1",
		"tA,08:40:00,08:40:00,x1,2",
	})

	legs, err := r.FindOutbound([]string{"o1"}, map[string]bool{"d1": true}, 6*3600)
	require.NoError(t, err)
	assert.Nil(t, legs)
}

func TestFindReturnDirect(t *testing.T) {
	// Three candidate returns. The 16:00 one still arrives before the
	// deadline and is the latest.
	r := buildRouter(t, []string{
		"tA,14:00:00,14:00:00,d1,1",
		"tA,15:00:00,15:00:00,o1,2",
		"tB,16:00:00,16:00:00,d1,1",
		"tB,17:00:00,17:00:00,o1,2",
		"tC,17:30:00,17:30:00,d1,1",
		"tC,18:30:00,18:30:00,o1,2",
	})

	legs, err := r.FindReturn([]string{"d1"}, map[string]bool{"o1": true}, 18*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC), legs[0].Departure)
	assert.Equal(t, time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC), legs[0].Arrival)
}

func TestFindReturnDeadlineIsInclusive(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,17:00:00,17:00:00,d1,1",
		"tA,18:00:00,18:00:00,o1,2",
	})

	legs, err := r.FindReturn([]string{"d1"}, map[string]bool{"o1": true}, 18*3600)
	require.NoError(t, err)
	require.Len(t, legs, 1)

	legs, err = r.FindReturn([]string{"d1"}, map[string]bool{"o1": true}, 18*3600-1)
	require.NoError(t, err)
	assert.Nil(t, legs)
}

func TestFindReturnTransfer(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,16:00:00,16:00:00,d1,1",
		"tA,16:20:00,16:20:00,m1,2",
		"tA,16:50:00,16:50:00,x1,3",
		"tD,16:30:00,16:30:00,m1,1",
		"tD,17:10:00,17:10:00,o1,2",
	})

	legs, err := r.FindReturn([]string{"d1"}, map[string]bool{"o1": true}, 18*3600)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, "d1", legs[0].FromStopID)
	assert.Equal(t, "m1", legs[1].FromStopID)
	assert.Equal(t, "o1", legs[1].ToStopID)
}

func TestFindReturnPrefersLatestDeparture(t *testing.T) {
	// A direct ride at 15:00 and a later transfer chain at 16:00.
	// The later trail departure wins even though it involves a
	// transfer.
	r := buildRouter(t, []string{
		"tA,15:00:00,15:00:00,d1,1",
		"tA,16:00:00,16:00:00,o1,2",
		"tB,16:00:00,16:00:00,d1,1",
		"tB,16:20:00,16:20:00,m1,2",
		"tD,16:30:00,16:30:00,m1,1",
		"tD,17:30:00,17:30:00,o1,2",
	})

	legs, err := r.FindReturn([]string{"d1"}, map[string]bool{"o1": true}, 18*3600)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC), legs[0].Departure)
}

func TestFindReturnNoRoute(t *testing.T) {
	r := buildRouter(t, []string{
		"tA,19:00:00,19:00:00,d1,1",
		"tA,20:00:00,20:00:00,o1,2",
	})

	legs, err := r.FindReturn([]string{"d1"}, map[string]bool{"o1": true}, 18*3600)
	require.NoError(t, err)
	assert.Nil(t, legs)
}
