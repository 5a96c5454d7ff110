// Package spatial attaches bus stops to trails. An R-tree over stop
// locations answers the coarse "stops near this trail" query, then
// haversine filtering and polyline projection produce exact access
// points.
package spatial

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/gezmi/plan-hikes/geo"
	"github.com/gezmi/plan-hikes/model"
)

const (
	// Maximum walk from a bus stop to the trail.
	DefaultMaxWalkM = 1000.0

	// Access points closer than this along the trail collapse into
	// one, keeping the shorter walk.
	dedupTrailDistanceM = 200.0
)

// StopIndex is a bulk-loaded 2-D index over stop locations in
// (lon, lat) order.
type StopIndex struct {
	tree rtree.RTree
}

func NewStopIndex(stops []model.Stop) *StopIndex {
	idx := &StopIndex{}
	for _, stop := range stops {
		pt := [2]float64{stop.Lon, stop.Lat}
		idx.tree.Insert(pt, pt, stop)
	}
	return idx
}

// Within returns all stops inside the box.
func (idx *StopIndex) Within(box geo.BoundingBox) []model.Stop {
	var stops []model.Stop
	idx.tree.Search(
		[2]float64{box.MinLon, box.MinLat},
		[2]float64{box.MaxLon, box.MaxLat},
		func(min, max [2]float64, value interface{}) bool {
			stops = append(stops, value.(model.Stop))
			return true
		},
	)
	return stops
}

// JoinTrails finds bus stops within maxWalkM metres of each trail and
// populates its access points, sorted by position along the trail.
// Only trails with at least one access point are returned.
func JoinTrails(trails []*model.Trail, stops []model.Stop, maxWalkM float64) []*model.Trail {
	if len(stops) == 0 {
		return nil
	}

	idx := NewStopIndex(stops)

	// 1 degree is about 111 km at the equator. The longitudinal
	// degree is shorter at Israeli latitudes, so this buffer is
	// wider than needed; the haversine filter below keeps results
	// exact.
	bufferDeg := maxWalkM / geo.MetersPerDegree

	var withAccess []*model.Trail
	for _, trail := range trails {
		if len(trail.Geometry) < 2 {
			continue
		}

		line := geo.NewPolyline(trail.Geometry)
		candidates := idx.Within(line.Bounds().Expand(bufferDeg))

		var accessPoints []model.TrailAccessPoint
		for _, stop := range candidates {
			entry, fraction := line.NearestPoint(stop.Lat, stop.Lon)

			walkM := geo.HaversineM(stop.Lat, stop.Lon, entry.Lat, entry.Lon)
			if walkM > maxWalkM {
				continue
			}

			accessPoints = append(accessPoints, model.TrailAccessPoint{
				StopID:           stop.ID,
				StopName:         stop.Name,
				WalkDistanceM:    round1(walkM),
				TrailEntryLat:    entry.Lat,
				TrailEntryLon:    entry.Lon,
				TrailKmFromStart: round2(fraction * trail.DistanceKm),
			})
		}

		accessPoints = dedupAccessPoints(accessPoints, dedupTrailDistanceM)

		sort.Slice(accessPoints, func(i, j int) bool {
			return accessPoints[i].TrailKmFromStart < accessPoints[j].TrailKmFromStart
		})

		if len(accessPoints) > 0 {
			trail.AccessPoints = accessPoints
			withAccess = append(withAccess, trail)
		}
	}

	return withAccess
}

// dedupAccessPoints collapses points closer than minTrailDistanceM
// along the trail, keeping the one with the shorter walk.
func dedupAccessPoints(aps []model.TrailAccessPoint, minTrailDistanceM float64) []model.TrailAccessPoint {
	if len(aps) <= 1 {
		return aps
	}

	sorted := make([]model.TrailAccessPoint, len(aps))
	copy(sorted, aps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TrailKmFromStart < sorted[j].TrailKmFromStart
	})

	kept := []model.TrailAccessPoint{sorted[0]}
	for _, ap := range sorted[1:] {
		last := &kept[len(kept)-1]
		separationM := math.Abs(ap.TrailKmFromStart-last.TrailKmFromStart) * 1000

		if separationM < minTrailDistanceM {
			if ap.WalkDistanceM < last.WalkDistanceM {
				*last = ap
			}
		} else {
			kept = append(kept, ap)
		}
	}

	return kept
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
