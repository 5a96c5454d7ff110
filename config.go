package hikeplan

import (
	"sort"
	"strings"
	"time"
)

const (
	// Israel's national GTFS feed, republished by the ministry of
	// transport roughly weekly.
	GTFSFeedURL  = "https://gtfs.mot.gov.il/gtfsfiles/israel-public-transportation.zip"
	gtfsCacheTTL = 7 * 24 * time.Hour
	gtfsTimeout  = 5 * time.Minute
	gtfsMaxSize  = 500 * 1024 * 1024

	overpassCacheTTL = 30 * 24 * time.Hour
	overpassTimeout  = 360 * time.Second

	// Trails longer than this are multi-day routes, not day hikes.
	MaxTrailDistanceKm = 30.0

	// Radius around the origin city's center searched for boarding
	// stops.
	StopSearchRadiusM = 500.0

	// Hiking speed on flat ground plus Naismith's climb correction:
	// one extra hour per 600 m of ascent.
	NaismithSpeedKmh   = 4.0
	ClimbMetersPerHour = 600.0

	// Road walking between a bus stop and the trailhead.
	WalkSpeedKmh = 4.5

	// Through-hike segments outside this range are either not worth
	// the two bus trips or not finishable in a day.
	minThroughSegmentKm = 3.0
	maxThroughSegmentKm = 20.0

	DefaultMinHikingHours  = 1.0
	DefaultMaxResults      = 10
	DefaultEarliestDepSecs = 6 * 3600
)

// A supported origin city with its center coordinate.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

var cities = map[string]City{
	"rehovot":       {"Rehovot", 31.8928, 34.8113},
	"jerusalem":     {"Jerusalem", 31.7892, 35.2033},
	"tel aviv":      {"Tel Aviv", 32.0564, 34.7796},
	"haifa":         {"Haifa", 32.7940, 34.9896},
	"beer sheva":    {"Beer Sheva", 31.2430, 34.7932},
	"netanya":       {"Netanya", 32.3215, 34.8532},
	"herzliya":      {"Herzliya", 32.1629, 34.8447},
	"petah tikva":   {"Petah Tikva", 32.0868, 34.8867},
	"rishon lezion": {"Rishon LeZion", 31.9642, 34.8048},
	"ashdod":        {"Ashdod", 31.8014, 34.6435},
}

// ResolveCity looks up an origin city, case-insensitively.
func ResolveCity(name string) (City, bool) {
	city, found := cities[strings.ToLower(strings.TrimSpace(name))]
	return city, found
}

// CityNames returns the supported origin cities in sorted order.
func CityNames() []string {
	names := make([]string, 0, len(cities))
	for key := range cities {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Months in which flash-flood warnings attach to desert trails.
var rainyMonths = map[time.Month]bool{
	time.November: true,
	time.December: true,
	time.January:  true,
	time.February: true,
	time.March:    true,
}
