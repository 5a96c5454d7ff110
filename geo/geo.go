// Package geo holds the small amount of geodesy the planner needs:
// great-circle distance, bounding boxes for coarse prefiltering, and
// polyline projection in degree space.
package geo

import "math"

const (
	// Mean Earth radius in metres.
	earthRadiusM = 6371000.0

	// Metres per degree of latitude, used for degree buffers. The
	// equatorial figure is used for longitude too, which over-buffers
	// at Israeli latitudes; the precise haversine filter that follows
	// keeps results correct.
	MetersPerDegree = 111000.0
)

// HaversineM returns the great-circle distance between two WGS-84
// points in metres.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// A latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Expand grows the box by the given number of degrees on every side.
func (b BoundingBox) Expand(deg float64) BoundingBox {
	return BoundingBox{
		MinLat: b.MinLat - deg,
		MinLon: b.MinLon - deg,
		MaxLat: b.MaxLat + deg,
		MaxLon: b.MaxLon + deg,
	}
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoxAround returns the bounding box of a circle of radiusM metres
// around a point, using the equatorial degree conversion with a 1.5
// margin so the subsequent exact filter never misses a candidate.
func BoxAround(lat, lon, radiusM float64) BoundingBox {
	deg := radiusM / MetersPerDegree * 1.5
	return BoundingBox{
		MinLat: lat - deg,
		MinLon: lon - deg,
		MaxLat: lat + deg,
		MaxLon: lon + deg,
	}
}
