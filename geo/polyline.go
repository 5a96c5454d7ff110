package geo

import (
	"math"
	"sort"

	"github.com/gezmi/plan-hikes/model"
)

// Polyline wraps a trail geometry with precomputed cumulative segment
// lengths in degree space. Projection works on raw (lon, lat)
// coordinates; callers convert the resulting fraction to metric
// distance using the trail's haversine length.
type Polyline struct {
	points []model.LatLon
	cumDeg []float64 // cumulative degree-space length up to vertex i
}

func NewPolyline(points []model.LatLon) *Polyline {
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		dx := points[i].Lon - points[i-1].Lon
		dy := points[i].Lat - points[i-1].Lat
		cum[i] = cum[i-1] + math.Hypot(dx, dy)
	}
	return &Polyline{points: points, cumDeg: cum}
}

func (p *Polyline) Points() []model.LatLon {
	return p.points
}

// LengthKm returns the metric length of the polyline in kilometres,
// summed with haversine over consecutive vertices.
func (p *Polyline) LengthKm() float64 {
	total := 0.0
	for i := 1; i < len(p.points); i++ {
		total += HaversineM(p.points[i-1].Lat, p.points[i-1].Lon, p.points[i].Lat, p.points[i].Lon)
	}
	return total / 1000.0
}

// Bounds returns the geometry's bounding box.
func (p *Polyline) Bounds() BoundingBox {
	b := BoundingBox{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	for _, pt := range p.points {
		b.MinLat = math.Min(b.MinLat, pt.Lat)
		b.MaxLat = math.Max(b.MaxLat, pt.Lat)
		b.MinLon = math.Min(b.MinLon, pt.Lon)
		b.MaxLon = math.Max(b.MaxLon, pt.Lon)
	}
	return b
}

// IsLoop reports whether first and last vertex are within 100 m of
// each other.
func (p *Polyline) IsLoop() bool {
	if len(p.points) < 2 {
		return false
	}
	first, last := p.points[0], p.points[len(p.points)-1]
	return HaversineM(first.Lat, first.Lon, last.Lat, last.Lon) < 100
}

// Interpolate returns the point at the given fraction of the
// polyline's degree-space length. Fractions are clamped to [0, 1].
func (p *Polyline) Interpolate(fraction float64) model.LatLon {
	if len(p.points) == 0 {
		return model.LatLon{}
	}
	if len(p.points) == 1 {
		return p.points[0]
	}

	total := p.cumDeg[len(p.cumDeg)-1]
	if total == 0 || fraction <= 0 {
		return p.points[0]
	}
	if fraction >= 1 {
		return p.points[len(p.points)-1]
	}

	target := fraction * total
	i := sort.SearchFloat64s(p.cumDeg, target)
	if i == 0 {
		return p.points[0]
	}

	segLen := p.cumDeg[i] - p.cumDeg[i-1]
	t := 0.0
	if segLen > 0 {
		t = (target - p.cumDeg[i-1]) / segLen
	}
	a, b := p.points[i-1], p.points[i]
	return model.LatLon{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
}

// NearestPoint projects a point onto the polyline in degree space and
// returns the closest point on the line together with the fraction of
// the line's degree-space length at which it sits, in [0, 1].
func (p *Polyline) NearestPoint(lat, lon float64) (model.LatLon, float64) {
	if len(p.points) == 0 {
		return model.LatLon{}, 0
	}
	if len(p.points) == 1 {
		return p.points[0], 0
	}

	best := model.LatLon{}
	bestDistSq := math.Inf(1)
	bestAlong := 0.0

	for i := 1; i < len(p.points); i++ {
		a, b := p.points[i-1], p.points[i]
		// Segment in (x=lon, y=lat) space.
		vx, vy := b.Lon-a.Lon, b.Lat-a.Lat
		wx, wy := lon-a.Lon, lat-a.Lat

		segLenSq := vx*vx + vy*vy
		t := 0.0
		if segLenSq > 0 {
			t = (wx*vx + wy*vy) / segLenSq
			t = math.Max(0, math.Min(1, t))
		}

		px, py := a.Lon+t*vx, a.Lat+t*vy
		dx, dy := lon-px, lat-py
		distSq := dx*dx + dy*dy
		if distSq < bestDistSq {
			bestDistSq = distSq
			best = model.LatLon{Lat: py, Lon: px}
			bestAlong = p.cumDeg[i-1] + t*math.Sqrt(segLenSq)
		}
	}

	total := p.cumDeg[len(p.cumDeg)-1]
	fraction := 0.0
	if total > 0 {
		fraction = bestAlong / total
	}
	return best, fraction
}
