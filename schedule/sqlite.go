package schedule

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gezmi/plan-hikes/geo"
	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/parse"
)

// Result caches are evicted wholesale once they hold this many
// entries. Keeps repeated router probes cheap without letting a long
// run grow without bound.
const maxCacheEntries = 20000

var sqliteTables = map[string]string{
	"meta": `
CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`,

	"stops": `
CREATE TABLE stops (
    stop_id TEXT PRIMARY KEY,
    stop_name TEXT NOT NULL,
    stop_lat REAL NOT NULL,
    stop_lon REAL NOT NULL
);`,

	"routes": `
CREATE TABLE routes (
    route_id TEXT PRIMARY KEY,
    short_name TEXT NOT NULL,
    agency_name TEXT NOT NULL
);`,

	"trips": `
CREATE TABLE trips (
    trip_id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL
);`,

	"stop_times": `
CREATE TABLE stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival_secs INTEGER NOT NULL,
    departure_secs INTEGER NOT NULL
);`,
}

var sqliteIndexes = []string{
	`CREATE INDEX idx_st_stop_dep ON stop_times (stop_id, departure_secs);`,
	`CREATE INDEX idx_st_trip_seq ON stop_times (trip_id, stop_sequence);`,
}

// BuildSQLite writes a date-specific schedule database to path. The
// database is assembled in a temp file and renamed into place, so a
// crash mid-build never leaves a truncated database behind.
func BuildSQLite(path string, feed *parse.Feed, date time.Time) error {
	tmp := path + ".tmp"
	os.Remove(tmp)

	db, err := sql.Open("sqlite3", tmp)
	if err != nil {
		return fmt.Errorf("opening %s: %w", tmp, err)
	}

	err = buildSQL(db, feed, date)
	db.Close()
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming into place: %w", err)
	}

	return nil
}

func buildSQL(db *sql.DB, feed *parse.Feed, date time.Time) error {
	for name, stmt := range sqliteTables {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating table %s: %w", name, err)
		}
	}

	sts, activeTrips := activeStopTimes(feed, date)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('date', ?), ('generated_at', ?)`,
		date.Format("20060102"),
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("writing meta: %w", err)
	}

	for _, stop := range feed.Stops {
		_, err := tx.Exec(
			`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES (?, ?, ?, ?)`,
			stop.ID, stop.Name, stop.Lat, stop.Lon,
		)
		if err != nil {
			return fmt.Errorf("inserting stop %s: %w", stop.ID, err)
		}
	}

	for _, r := range feed.Routes {
		_, err := tx.Exec(
			`INSERT INTO routes (route_id, short_name, agency_name) VALUES (?, ?, ?)`,
			r.ID, r.ShortName, r.AgencyName,
		)
		if err != nil {
			return fmt.Errorf("inserting route %s: %w", r.ID, err)
		}
	}

	for _, t := range feed.Trips {
		if !activeTrips[t.ID] {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO trips (trip_id, route_id) VALUES (?, ?)`,
			t.ID, t.RouteID,
		)
		if err != nil {
			return fmt.Errorf("inserting trip %s: %w", t.ID, err)
		}
	}

	// stop_times dominates feed size. One prepared statement inside
	// the transaction keeps the bulk insert fast.
	stmt, err := tx.Prepare(
		`INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_secs, departure_secs)
         VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing stop_times insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range sts {
		_, err := stmt.Exec(st.TripID, st.StopID, st.StopSequence, st.ArrivalSecs, st.DepartureSecs)
		if err != nil {
			return fmt.Errorf("inserting stop_time: %w", err)
		}
	}

	for _, idx := range sqliteIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return tx.Commit()
}

// SQLiteStore serves schedule queries from a pre-built database. The
// small lookup tables load fully at open; the two stop_times indexes
// are queried on demand behind bounded caches.
type SQLiteStore struct {
	db   *sql.DB
	date string

	stops     map[string]model.Stop
	stopList  []model.Stop
	tripRoute map[string]string
	routes    map[string]RouteInfo

	mu       sync.Mutex
	depCache map[string][]Departure
	tsCache  map[string][]TripStop
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrMissingIndex, path)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	s := &SQLiteStore{
		db:        db,
		stops:     map[string]model.Stop{},
		tripRoute: map[string]string{},
		routes:    map[string]RouteInfo{},
		depCache:  map[string][]Departure{},
		tsCache:   map[string][]TripStop{},
	}

	if err := s.loadLookups(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Date returns the service date the index was built for, as YYYYMMDD.
func (s *SQLiteStore) Date() string {
	return s.date
}

func (s *SQLiteStore) loadLookups() error {
	if err := s.db.QueryRow(
		`SELECT value FROM meta WHERE key = 'date'`).Scan(&s.date); err != nil {
		return fmt.Errorf("reading meta date: %w", err)
	}

	rows, err := s.db.Query(`SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops`)
	if err != nil {
		return fmt.Errorf("loading stops: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stop model.Stop
		if err := rows.Scan(&stop.ID, &stop.Name, &stop.Lat, &stop.Lon); err != nil {
			return fmt.Errorf("scanning stop: %w", err)
		}
		s.stops[stop.ID] = stop
		s.stopList = append(s.stopList, stop)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rRows, err := s.db.Query(`SELECT route_id, short_name, agency_name FROM routes`)
	if err != nil {
		return fmt.Errorf("loading routes: %w", err)
	}
	defer rRows.Close()
	for rRows.Next() {
		var id string
		var info RouteInfo
		if err := rRows.Scan(&id, &info.ShortName, &info.AgencyName); err != nil {
			return fmt.Errorf("scanning route: %w", err)
		}
		s.routes[id] = info
	}
	if err := rRows.Err(); err != nil {
		return err
	}

	tRows, err := s.db.Query(`SELECT trip_id, route_id FROM trips`)
	if err != nil {
		return fmt.Errorf("loading trips: %w", err)
	}
	defer tRows.Close()
	for tRows.Next() {
		var tripID, routeID string
		if err := tRows.Scan(&tripID, &routeID); err != nil {
			return fmt.Errorf("scanning trip: %w", err)
		}
		s.tripRoute[tripID] = routeID
	}
	return tRows.Err()
}

func (s *SQLiteStore) Departures(stopID string) ([]Departure, error) {
	s.mu.Lock()
	if deps, found := s.depCache[stopID]; found {
		s.mu.Unlock()
		return deps, nil
	}
	s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT departure_secs, trip_id, stop_sequence
         FROM stop_times WHERE stop_id = ?
         ORDER BY departure_secs, trip_id`, stopID)
	if err != nil {
		return nil, fmt.Errorf("querying departures: %w", err)
	}
	defer rows.Close()

	var deps []Departure
	for rows.Next() {
		var d Departure
		if err := rows.Scan(&d.DepSecs, &d.TripID, &d.Seq); err != nil {
			return nil, fmt.Errorf("scanning departure: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.depCache) >= maxCacheEntries {
		s.depCache = map[string][]Departure{}
	}
	s.depCache[stopID] = deps
	s.mu.Unlock()

	return deps, nil
}

func (s *SQLiteStore) TripStops(tripID string) ([]TripStop, error) {
	s.mu.Lock()
	if ts, found := s.tsCache[tripID]; found {
		s.mu.Unlock()
		return ts, nil
	}
	s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT stop_id, arrival_secs, departure_secs, stop_sequence
         FROM stop_times WHERE trip_id = ?
         ORDER BY stop_sequence`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying trip stops: %w", err)
	}
	defer rows.Close()

	var ts []TripStop
	for rows.Next() {
		var t TripStop
		if err := rows.Scan(&t.StopID, &t.ArrSecs, &t.DepSecs, &t.Seq); err != nil {
			return nil, fmt.Errorf("scanning trip stop: %w", err)
		}
		ts = append(ts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.tsCache) >= maxCacheEntries {
		s.tsCache = map[string][]TripStop{}
	}
	s.tsCache[tripID] = ts
	s.mu.Unlock()

	return ts, nil
}

func (s *SQLiteStore) StopName(stopID string) (string, bool) {
	stop, found := s.stops[stopID]
	return stop.Name, found
}

func (s *SQLiteStore) TripRoute(tripID string) (string, bool) {
	routeID, found := s.tripRoute[tripID]
	return routeID, found
}

func (s *SQLiteStore) RouteInfo(routeID string) (RouteInfo, bool) {
	info, found := s.routes[routeID]
	return info, found
}

func (s *SQLiteStore) StopsWithin(lat, lon, radiusM float64) ([]model.Stop, error) {
	box := geo.BoxAround(lat, lon, radiusM)

	rows, err := s.db.Query(
		`SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops
         WHERE stop_lat BETWEEN ? AND ? AND stop_lon BETWEEN ? AND ?`,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	type hit struct {
		stop  model.Stop
		distM float64
	}
	var hits []hit
	for rows.Next() {
		var stop model.Stop
		if err := rows.Scan(&stop.ID, &stop.Name, &stop.Lat, &stop.Lon); err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		d := geo.HaversineM(lat, lon, stop.Lat, stop.Lon)
		if d <= radiusM {
			hits = append(hits, hit{stop, d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
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

func (s *SQLiteStore) Stops() []model.Stop {
	return s.stopList
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
