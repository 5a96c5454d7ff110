package hikeplan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hikeplan "github.com/gezmi/plan-hikes"
	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/schedule"
	"github.com/gezmi/plan-hikes/testutil"
)

// A Sunday.
var testDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

var testDeadline = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// Out-and-back service: a morning bus from Rehovot to the western
// trailhead, an afternoon bus back.
var outAndBackTimes = []string{
	"tOut,07:00:00,07:00:00,o1,1",
	"tOut,08:00:00,08:00:00,t1,2",
	"tRet,15:00:00,15:00:00,t1,1",
	"tRet,16:00:00,16:00:00,o1,2",
}

// Adds an afternoon bus home from the eastern trailhead, opening up a
// through-hike.
var throughTimes = append(append([]string{}, outAndBackTimes...),
	"tRet2,15:30:00,15:30:00,t2,1",
	"tRet2,16:45:00,16:45:00,o1,2",
)

func buildStore(t *testing.T, stopTimes []string) *schedule.MemoryStore {
	files := map[string][]string{
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
			"r1,all,tRet2",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"o1,Rehovot Central,31.8928,34.8113",
			"t1,Trailhead West,31.9505,34.9000",
			"t2,Trailhead East,31.9505,34.9400",
		},
		"stop_times.txt": append(
			[]string{"trip_id,arrival_time,departure_time,stop_id,stop_sequence"},
			stopTimes...,
		),
	}

	return schedule.NewMemoryStore(testutil.BuildFeed(t, files), testDate)
}

// testTrail returns a fresh linear east-west trail passing both
// trailhead stops. About 3.78 km.
func testTrail() *model.Trail {
	return &model.Trail{
		ID:     "osm:1",
		Name:   "Nahal Test",
		Source: "osm",
		Geometry: []model.LatLon{
			{Lat: 31.95, Lon: 34.90},
			{Lat: 31.95, Lon: 34.92},
			{Lat: 31.95, Lon: 34.94},
		},
		DistanceKm: 3.78,
		Colors:     []string{"red"},
	}
}

func testQuery() model.HikeQuery {
	return model.HikeQuery{Origin: "rehovot", Date: testDate}
}

func newPlanner(t *testing.T, stopTimes []string, trail *model.Trail, query model.HikeQuery) *hikeplan.Planner {
	p, err := hikeplan.New(buildStore(t, stopTimes), []*model.Trail{trail}, testDeadline, query)
	require.NoError(t, err)
	return p
}

func TestPlanOutAndBack(t *testing.T) {
	p := newPlanner(t, outAndBackTimes, testTrail(), testQuery())

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	require.Len(t, plans, 1)

	plan := plans[0]
	assert.Equal(t, "Nahal Test", plan.Trail.Name)
	assert.False(t, plan.HikeSegment.IsThroughHike)
	assert.Nil(t, plan.ExitAccessPoint)

	require.Len(t, plan.OutboundLegs, 1)
	assert.Equal(t, "11", plan.OutboundLegs[0].Line)
	assert.Equal(t, time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC), plan.DepartureFromOrigin)
	require.Len(t, plan.ReturnLegs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC), plan.ArrivalAtOrigin)
	assert.Equal(t, 9.0, plan.TotalHours)

	// The whole trail fits the window twice over, so the hiker covers
	// it out and back: 2 x 3.78 km at 4 km/h.
	assert.InDelta(t, 7.56, plan.HikeSegment.EstimatedDistanceKm, 0.01)
	assert.InDelta(t, 1.89, plan.HikeSegment.HikingHours, 0.01)
	assert.InDelta(t, 0.21, plan.HikingRatio, 0.005)

	// Hike starts after the bus arrival plus the stop-to-trail walk.
	assert.True(t, plan.HikeSegment.HikeStart.After(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
	assert.True(t, plan.HikeSegment.HikeStart.Before(time.Date(2026, 3, 1, 8, 2, 0, 0, time.UTC)))

	assert.Equal(t, testDeadline, plan.Deadline)
	assert.Equal(t, "Trailhead West", plan.HikeSegment.EntryStopName)
	assert.Equal(t, "Trailhead West", plan.HikeSegment.ExitStopName)
}

func TestPlanThroughHike(t *testing.T) {
	// The 3.78 km segment takes under an hour at Naismith speed, so
	// lower the hiking floor to let the through-hike through.
	query := testQuery()
	query.MinHikingHours = 0.5
	p := newPlanner(t, throughTimes, testTrail(), query)

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	require.Len(t, plans, 2)

	// The out-and-back has the better hiking ratio and sorts first.
	assert.False(t, plans[0].HikeSegment.IsThroughHike)

	through := plans[1]
	assert.True(t, through.HikeSegment.IsThroughHike)
	require.NotNil(t, through.ExitAccessPoint)
	assert.Equal(t, "t1", through.AccessPoint.StopID)
	assert.Equal(t, "t2", through.ExitAccessPoint.StopID)
	assert.Equal(t, "Trailhead West", through.HikeSegment.EntryStopName)
	assert.Equal(t, "Trailhead East", through.HikeSegment.ExitStopName)
	assert.InDelta(t, 3.78, through.HikeSegment.EstimatedDistanceKm, 0.01)
	assert.Equal(t, time.Date(2026, 3, 1, 16, 45, 0, 0, time.UTC), through.ArrivalAtOrigin)
}

func TestPlanMaxResults(t *testing.T) {
	query := testQuery()
	query.MinHikingHours = 0.5
	query.MaxResults = 1
	p := newPlanner(t, throughTimes, testTrail(), query)

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.False(t, plans[0].HikeSegment.IsThroughHike)
}

func TestPlanLoopTrail(t *testing.T) {
	trail := testTrail()
	trail.IsLoop = true
	trail.ElevationGainM = 300
	trail.ElevationLossM = 300
	p := newPlanner(t, outAndBackTimes, trail, testQuery())

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	require.Len(t, plans, 1)

	// Loops are hiked in full: 3.78 km plus half an hour for the climb.
	plan := plans[0]
	assert.True(t, plan.HikeSegment.IsLoop)
	assert.InDelta(t, 3.78, plan.HikeSegment.EstimatedDistanceKm, 0.01)
	assert.InDelta(t, 1.45, plan.HikeSegment.HikingHours, 0.01)
}

func TestPlanLoopTooLongForWindow(t *testing.T) {
	trail := testTrail()
	trail.IsLoop = true
	trail.ElevationGainM = 6000 // ten extra hours of climbing
	p := newPlanner(t, outAndBackTimes, trail, testQuery())

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanMinHikingHours(t *testing.T) {
	query := testQuery()
	query.MinHikingHours = 3.0
	p := newPlanner(t, outAndBackTimes, testTrail(), query)

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanRespectsEarliestDeparture(t *testing.T) {
	query := testQuery()
	query.EarliestDepSecs = 9 * 3600
	p := newPlanner(t, outAndBackTimes, testTrail(), query)

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanNoStopsNearOrigin(t *testing.T) {
	p := newPlanner(t, outAndBackTimes, testTrail(), testQuery())

	plans, err := p.PlanHikesForOrigin("haifa")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanUnknownOrigin(t *testing.T) {
	p := newPlanner(t, outAndBackTimes, testTrail(), testQuery())

	_, err := p.PlanHikesForOrigin("gotham")
	assert.ErrorIs(t, err, model.ErrUnknownOrigin)
}

func TestPlanConflictingFilters(t *testing.T) {
	query := testQuery()
	query.LoopOnly = true
	query.LinearOnly = true

	_, err := hikeplan.New(buildStore(t, outAndBackTimes), []*model.Trail{testTrail()}, testDeadline, query)
	assert.ErrorIs(t, err, model.ErrConflictingFilters)
}

func TestPlanDropsMultiDayTrails(t *testing.T) {
	trail := testTrail()
	trail.DistanceKm = 45.0
	p := newPlanner(t, outAndBackTimes, trail, testQuery())

	assert.Empty(t, p.Trails())
}

func TestPlanSeasonWarnings(t *testing.T) {
	trail := testTrail()
	trail.SeasonWarnings = []string{"Flash flood danger"}
	p := newPlanner(t, outAndBackTimes, trail, testQuery())

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"Flash flood danger"}, plans[0].Warnings)

	// Same trail in June: dry season, no warning.
	juneDate := time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC)
	juneDeadline := time.Date(2026, 6, 7, 18, 0, 0, 0, time.UTC)
	query := model.HikeQuery{Origin: "rehovot", Date: juneDate}

	trail = testTrail()
	trail.SeasonWarnings = []string{"Flash flood danger"}
	store := buildStore(t, outAndBackTimes)
	p2, err := hikeplan.New(store, []*model.Trail{trail}, juneDeadline, query)
	require.NoError(t, err)

	plans, err = p2.PlanHikes()
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Empty(t, plans[0].Warnings)
}

func TestPlanNoReturnAfterDeadline(t *testing.T) {
	// The only bus home arrives at 16:00; a 15:00 deadline kills it.
	early := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	p, err := hikeplan.New(buildStore(t, outAndBackTimes), []*model.Trail{testTrail()}, early, testQuery())
	require.NoError(t, err)

	plans, err := p.PlanHikes()
	require.NoError(t, err)
	assert.Empty(t, plans)
}
