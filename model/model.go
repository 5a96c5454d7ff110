package model

import (
	"errors"
	"time"
)

// Holds the data records shared by all packages.

type Agency struct {
	ID       string
	Name     string
	Timezone string
}

type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int8
}

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// AgencyName is denormalised at ingestion so that building a bus leg
// needs no second lookup.
type Route struct {
	ID         string
	ShortName  string
	AgencyName string
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
}

// One visit of a trip to a stop. Times are seconds since the service
// day's local midnight; values past 86400 belong to trips running past
// midnight and are preserved as-is.
type StopTime struct {
	TripID        string
	StopID        string
	StopSequence  int
	ArrivalSecs   int
	DepartureSecs int
}

// A bus stop close to a trail, paired with its projection onto the
// trail polyline.
type TrailAccessPoint struct {
	StopID           string  `json:"stop_id"`
	StopName         string  `json:"stop_name"`
	WalkDistanceM    float64 `json:"walk_distance_m"`
	TrailEntryLat    float64 `json:"trail_entry_lat"`
	TrailEntryLon    float64 `json:"trail_entry_lon"`
	TrailKmFromStart float64 `json:"trail_km_from_start"`
}

// A WGS-84 polyline vertex.
type LatLon struct {
	Lat float64
	Lon float64
}

// A hiking trail. Geometry has at least two vertices. Access points
// are attached by the spatial join; elevation fields are filled when
// tiles are available and stay zero otherwise.
type Trail struct {
	ID                 string
	Name               string
	Source             string
	Geometry           []LatLon
	DistanceKm         float64
	ElevationGainM     float64
	ElevationLossM     float64
	MaxElevationM      float64
	MinElevationM      float64
	ElevationProfile   []float64
	Difficulty         string
	Colors             []string
	IsLoop             bool
	RecommendedSeasons []string
	SeasonWarnings     []string
	AccessPoints       []TrailAccessPoint
}

// One leg of a transit journey. Departure and Arrival are wall-clock
// datetimes on the travel date, rolling into the next day for trips
// running past midnight.
type BusLeg struct {
	Line         string
	Operator     string
	FromStopID   string
	FromStopName string
	ToStopID     string
	ToStopName   string
	Departure    time.Time
	Arrival      time.Time
}

func (l BusLeg) Duration() time.Duration {
	return l.Arrival.Sub(l.Departure)
}

// The hiking portion of a plan.
type HikeSegment struct {
	TrailName           string
	EntryStopName       string
	ExitStopName        string
	WalkToTrailM        float64
	WalkFromTrailM      float64
	HikeStart           time.Time
	HikeEnd             time.Time
	HikingHours         float64
	EstimatedDistanceKm float64
	IsLoop              bool
	IsThroughHike       bool
	Colors              []string
	ElevationGainM      float64
	ElevationLossM      float64
}

// A complete day plan: transit out, hike, transit back. ExitAccessPoint
// is nil unless the plan is a through-hike.
type HikePlan struct {
	Trail               *Trail
	AccessPoint         TrailAccessPoint
	ExitAccessPoint     *TrailAccessPoint
	OutboundLegs        []BusLeg
	HikeSegment         HikeSegment
	ReturnLegs          []BusLeg
	DepartureFromOrigin time.Time
	ArrivalAtOrigin     time.Time
	TotalHours          float64
	HikingRatio         float64
	Deadline            time.Time
	Warnings            []string
}

// User query parameters. Zero values of the optional filters mean no
// filter. LoopOnly and LinearOnly are mutually exclusive.
type HikeQuery struct {
	Origin            string
	Date              time.Time
	SafetyMarginHours float64
	MaxWalkToTrailM   float64
	MinHikingHours    float64
	MaxResults        int
	EarliestDepSecs   int

	Colors            []string
	MinDistanceKm     float64
	MaxDistanceKm     float64
	LoopOnly          bool
	LinearOnly        bool
	MaxElevationGainM float64
	Difficulty        string
}

var (
	// The query named an origin city missing from the coordinate table.
	ErrUnknownOrigin = errors.New("unknown origin city")

	// LoopOnly and LinearOnly were both set.
	ErrConflictingFilters = errors.New("loop-only and linear-only are mutually exclusive")

	// The travel date is a Saturday. No buses run.
	ErrSaturdayNotSupported = errors.New("saturday hiking not supported")

	// The schedule feed could not be obtained.
	ErrFeedUnavailable = errors.New("schedule feed unavailable")

	// A required pre-built index is missing from disk.
	ErrMissingIndex = errors.New("index not built")
)
