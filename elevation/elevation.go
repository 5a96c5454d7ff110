// Package elevation samples SRTM height tiles along trail geometries.
// Tiles are raw .hgt grids of big-endian int16 metres, named by their
// south-west corner (N31E034.hgt). Missing tiles degrade gracefully:
// trails simply keep zero elevation statistics.
package elevation

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gezmi/plan-hikes/geo"
	"github.com/gezmi/plan-hikes/model"
)

// Metres between samples along a trail.
const SampleIntervalM = 50

// SRTM marks voids with -32768; anything at or below this is treated
// as missing.
const nodataThreshold = -1000

// Statistics for one trail.
type Stats struct {
	GainM   float64
	LossM   float64
	MaxM    float64
	MinM    float64
	Profile []float64
}

type tile struct {
	samples []int16
	// Grid side length: 1201 for SRTM3, 3601 for SRTM1.
	size int
}

// Sampler reads .hgt tiles from a directory, keeping loaded tiles in
// memory. A nil entry records a tile known to be absent.
type Sampler struct {
	dir   string
	tiles map[string]*tile
}

func NewSampler(dir string) *Sampler {
	return &Sampler{dir: dir, tiles: map[string]*tile{}}
}

// tileName returns the SRTM tile base name covering a coordinate.
func tileName(lat, lon float64) string {
	latPrefix, lonPrefix := "N", "E"
	if lat < 0 {
		latPrefix = "S"
	}
	if lon < 0 {
		lonPrefix = "W"
	}
	latInt := int(math.Floor(lat))
	lonInt := int(math.Floor(lon))
	return fmt.Sprintf("%s%02d%s%03d", latPrefix, abs(latInt), lonPrefix, abs(lonInt))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Sampler) getTile(name string) *tile {
	if t, found := s.tiles[name]; found {
		return t
	}

	buf, err := os.ReadFile(filepath.Join(s.dir, name+".hgt"))
	if err != nil {
		s.tiles[name] = nil
		return nil
	}

	n := int(math.Sqrt(float64(len(buf) / 2)))
	if n < 2 || n*n*2 != len(buf) {
		s.tiles[name] = nil
		return nil
	}

	samples := make([]int16, n*n)
	for i := range samples {
		samples[i] = int16(binary.BigEndian.Uint16(buf[i*2 : i*2+2]))
	}

	t := &tile{samples: samples, size: n}
	s.tiles[name] = t
	return t
}

// SamplePoint returns the elevation in metres at a coordinate, or
// false when no tile covers it or the cell is void.
func (s *Sampler) SamplePoint(lat, lon float64) (float64, bool) {
	t := s.getTile(tileName(lat, lon))
	if t == nil {
		return 0, false
	}

	lat0 := math.Floor(lat)
	lon0 := math.Floor(lon)

	// Rows run north to south from the tile's top edge.
	row := int(math.Round((lat0 + 1 - lat) * float64(t.size-1)))
	col := int(math.Round((lon - lon0) * float64(t.size-1)))

	if row < 0 || row >= t.size || col < 0 || col >= t.size {
		return 0, false
	}

	val := t.samples[row*t.size+col]
	if val <= nodataThreshold {
		return 0, false
	}
	return float64(val), true
}

// SampleTrail samples elevation every 50 metres along a trail and
// returns gain/loss/min/max statistics plus the raw profile. Fewer
// than two valid samples yield all-zero stats.
func (s *Sampler) SampleTrail(geometry []model.LatLon, distanceKm float64) Stats {
	line := geo.NewPolyline(geometry)

	nSamples := int(distanceKm * 1000 / SampleIntervalM)
	if nSamples < 2 {
		nSamples = 2
	}

	var elevations []float64
	for i := 0; i <= nSamples; i++ {
		pt := line.Interpolate(float64(i) / float64(nSamples))
		if elev, ok := s.SamplePoint(pt.Lat, pt.Lon); ok {
			elevations = append(elevations, elev)
		}
	}

	if len(elevations) < 2 {
		return Stats{}
	}

	var gain, loss float64
	minElev, maxElev := elevations[0], elevations[0]
	for i := 1; i < len(elevations); i++ {
		delta := elevations[i] - elevations[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}
	for _, e := range elevations {
		minElev = math.Min(minElev, e)
		maxElev = math.Max(maxElev, e)
	}

	return Stats{
		GainM:   round1(gain),
		LossM:   round1(loss),
		MaxM:    round1(maxElev),
		MinM:    round1(minElev),
		Profile: elevations,
	}
}

// EnrichTrails fills elevation fields on each trail that has tile
// coverage. Trails without coverage are left untouched.
func (s *Sampler) EnrichTrails(trailList []*model.Trail) int {
	enriched := 0
	for _, t := range trailList {
		stats := s.SampleTrail(t.Geometry, t.DistanceKm)
		if stats.GainM > 0 || stats.LossM > 0 {
			t.ElevationGainM = stats.GainM
			t.ElevationLossM = stats.LossM
			t.MaxElevationM = stats.MaxM
			t.MinElevationM = stats.MinM
			t.ElevationProfile = stats.Profile
			enriched++
		}
	}
	return enriched
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
