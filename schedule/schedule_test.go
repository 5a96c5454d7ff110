package schedule_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gezmi/plan-hikes/schedule"
	"github.com/gezmi/plan-hikes/testutil"
)

// A Sunday inside the calendar range below.
var testDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func feedFiles() map[string][]string {
	return map[string][]string{
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
			"sun,0,0,0,0,0,0,1,20260101,20261231",
			"fri,0,0,0,0,1,0,0,20260101,20261231",
		},
		"trips.txt": {
			"route_id,service_id,trip_id",
			"r1,sun,t1",
			"r1,sun,t2",
			"r2,fri,t3",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"s1,Center,31.8900,34.8100",
			"s2,Midway,31.9000,34.8200",
			"s3,Trailhead,31.9100,34.8300",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"t1,08:30:00,08:30:00,s2,2",
			"t1,08:00:00,08:01:00,s1,1",
			"t1,09:00:00,09:00:00,s3,3",
			"t2,10:00:00,10:01:00,s1,1",
			"t2,10:30:00,10:30:00,s2,2",
			"t3,11:00:00,11:00:00,s1,1",
			"t3,11:30:00,11:30:00,s3,2",
		},
	}
}

func TestActiveServices(t *testing.T) {
	feed := testutil.BuildFeed(t, feedFiles())

	// 2026-03-01 is a Sunday.
	active := schedule.ActiveServices(feed, testDate)
	assert.Equal(t, map[string]bool{"sun": true}, active)

	// 2026-03-06 is a Friday.
	active = schedule.ActiveServices(feed, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, map[string]bool{"fri": true}, active)

	// Outside the calendar range nothing runs.
	active = schedule.ActiveServices(feed, time.Date(2027, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.Empty(t, active)
}

func TestActiveServicesExceptions(t *testing.T) {
	files := feedFiles()
	files["calendar_dates.txt"] = []string{
		"service_id,date,exception_type",
		"sun,20260301,2",
		"fri,20260301,1",
	}
	feed := testutil.BuildFeed(t, files)

	// The exceptions flip the regular calendar on 2026-03-01.
	active := schedule.ActiveServices(feed, testDate)
	assert.Equal(t, map[string]bool{"fri": true}, active)
}

func TestMemoryStoreIndexes(t *testing.T) {
	feed := testutil.BuildFeed(t, feedFiles())
	s := schedule.NewMemoryStore(feed, testDate)

	// Only sunday trips are present; departures sorted by time.
	deps, err := s.Departures("s1")
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "t1", deps[0].TripID)
	assert.Equal(t, 8*3600+60, deps[0].DepSecs)
	assert.Equal(t, "t2", deps[1].TripID)

	// Trip stops come back in stop_sequence order even though the
	// CSV rows were shuffled.
	ts, err := s.TripStops("t1")
	require.NoError(t, err)
	require.Len(t, ts, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{ts[0].StopID, ts[1].StopID, ts[2].StopID})
	assert.Equal(t, 9*3600, ts[2].ArrSecs)

	// The friday trip is filtered out.
	ts, err = s.TripStops("t3")
	require.NoError(t, err)
	assert.Empty(t, ts)

	name, found := s.StopName("s2")
	assert.True(t, found)
	assert.Equal(t, "Midway", name)

	routeID, found := s.TripRoute("t1")
	assert.True(t, found)
	info, found2 := s.RouteInfo(routeID)
	assert.True(t, found2)
	assert.Equal(t, "11", info.ShortName)
	assert.Equal(t, "Egged", info.AgencyName)
}

func TestStopsWithin(t *testing.T) {
	feed := testutil.BuildFeed(t, feedFiles())
	s := schedule.NewMemoryStore(feed, testDate)

	// From a point near s2, s2 should come first.
	stops, err := s.StopsWithin(31.9005, 34.8205, 5000)
	require.NoError(t, err)
	require.NotEmpty(t, stops)
	assert.Equal(t, "s2", stops[0].ID)

	// Tight radius excludes everything.
	stops, err = s.StopsWithin(31.5, 34.5, 100)
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestSQLiteMatchesMemory(t *testing.T) {
	feed := testutil.BuildFeed(t, feedFiles())
	mem := schedule.NewMemoryStore(feed, testDate)

	path := filepath.Join(t.TempDir(), "transit.db")
	require.NoError(t, schedule.BuildSQLite(path, feed, testDate))

	db, err := schedule.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	for _, stopID := range []string{"s1", "s2", "s3"} {
		memDeps, err := mem.Departures(stopID)
		require.NoError(t, err)
		dbDeps, err := db.Departures(stopID)
		require.NoError(t, err)
		assert.Equal(t, memDeps, dbDeps, "departures at %s", stopID)

		// Second call hits the cache and must agree.
		again, err := db.Departures(stopID)
		require.NoError(t, err)
		assert.Equal(t, dbDeps, again)
	}

	for _, tripID := range []string{"t1", "t2"} {
		memTs, err := mem.TripStops(tripID)
		require.NoError(t, err)
		dbTs, err := db.TripStops(tripID)
		require.NoError(t, err)
		assert.Equal(t, memTs, dbTs, "stops of %s", tripID)
	}

	// The friday trip must not be in the database at all.
	ts, err := db.TripStops("t3")
	require.NoError(t, err)
	assert.Empty(t, ts)

	name, found := db.StopName("s3")
	assert.True(t, found)
	assert.Equal(t, "Trailhead", name)

	memStops, err := mem.StopsWithin(31.9005, 34.8205, 5000)
	require.NoError(t, err)
	dbStops, err := db.StopsWithin(31.9005, 34.8205, 5000)
	require.NoError(t, err)
	assert.Equal(t, memStops, dbStops)
}

func TestOpenSQLiteMissing(t *testing.T) {
	_, err := schedule.OpenSQLite(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}

func TestBuildSQLiteReplacesExisting(t *testing.T) {
	feed := testutil.BuildFeed(t, feedFiles())
	path := filepath.Join(t.TempDir(), "transit.db")

	require.NoError(t, schedule.BuildSQLite(path, feed, testDate))
	require.NoError(t, schedule.BuildSQLite(path, feed, testDate))

	db, err := schedule.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	deps, err := db.Departures("s1")
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}

func TestPostgresMatchesMemory(t *testing.T) {
	if os.Getenv("HIKEPLAN_TEST_POSTGRES") == "" {
		t.Skip("set HIKEPLAN_TEST_POSTGRES to run postgres tests")
	}

	feed := testutil.BuildFeed(t, feedFiles())
	mem := schedule.NewMemoryStore(feed, testDate)

	require.NoError(t, schedule.BuildPostgres(testutil.PostgresConnStr, feed, testDate))

	db, err := schedule.OpenPostgres(testutil.PostgresConnStr)
	require.NoError(t, err)
	defer db.Close()

	memDeps, err := mem.Departures("s1")
	require.NoError(t, err)
	dbDeps, err := db.Departures("s1")
	require.NoError(t, err)
	assert.Equal(t, memDeps, dbDeps)
}
