package trails

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gezmi/plan-hikes/model"
)

// The on-disk index format. Geometry is stored as [lat, lon] pairs
// rounded to 6 decimals; metre values carry one decimal.
type indexFile struct {
	GeneratedAt string       `json:"generated_at"`
	NTrails     int          `json:"n_trails"`
	Trails      []indexTrail `json:"trails"`
}

type indexTrail struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	Source             string                   `json:"source"`
	DistanceKm         float64                  `json:"distance_km"`
	ElevationGainM     float64                  `json:"elevation_gain_m"`
	ElevationLossM     float64                  `json:"elevation_loss_m"`
	MinElevationM      float64                  `json:"min_elevation_m"`
	MaxElevationM      float64                  `json:"max_elevation_m"`
	Difficulty         string                   `json:"difficulty"`
	Colors             []string                 `json:"colors"`
	IsLoop             bool                     `json:"is_loop"`
	RecommendedSeasons []string                 `json:"recommended_seasons"`
	SeasonWarnings     []string                 `json:"season_warnings"`
	ElevationProfile   []float64                `json:"elevation_profile"`
	Geometry           [][2]float64             `json:"geometry"`
	AccessPoints       []model.TrailAccessPoint `json:"access_points"`
}

// SaveIndex writes the pre-processed trail index to path.
func SaveIndex(path string, trailList []*model.Trail) error {
	index := indexFile{
		GeneratedAt: time.Now().Format(time.RFC3339),
		NTrails:     len(trailList),
	}

	for _, t := range trailList {
		geometry := make([][2]float64, len(t.Geometry))
		for i, c := range t.Geometry {
			geometry[i] = [2]float64{round6(c.Lat), round6(c.Lon)}
		}

		aps := make([]model.TrailAccessPoint, len(t.AccessPoints))
		for i, ap := range t.AccessPoints {
			ap.WalkDistanceM = round1(ap.WalkDistanceM)
			ap.TrailEntryLat = round6(ap.TrailEntryLat)
			ap.TrailEntryLon = round6(ap.TrailEntryLon)
			ap.TrailKmFromStart = round3(ap.TrailKmFromStart)
			aps[i] = ap
		}

		profile := make([]float64, len(t.ElevationProfile))
		for i, e := range t.ElevationProfile {
			profile[i] = round1(e)
		}

		index.Trails = append(index.Trails, indexTrail{
			ID:                 t.ID,
			Name:               t.Name,
			Source:             t.Source,
			DistanceKm:         t.DistanceKm,
			ElevationGainM:     t.ElevationGainM,
			ElevationLossM:     t.ElevationLossM,
			MinElevationM:      t.MinElevationM,
			MaxElevationM:      t.MaxElevationM,
			Difficulty:         t.Difficulty,
			Colors:             t.Colors,
			IsLoop:             t.IsLoop,
			RecommendedSeasons: t.RecommendedSeasons,
			SeasonWarnings:     t.SeasonWarnings,
			ElevationProfile:   profile,
			Geometry:           geometry,
			AccessPoints:       aps,
		})
	}

	buf, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshalling index: %w", err)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	return nil
}

// LoadIndex reads a pre-processed trail index from path.
func LoadIndex(path string) ([]*model.Trail, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrMissingIndex, path)
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var index indexFile
	if err := json.Unmarshal(buf, &index); err != nil {
		return nil, fmt.Errorf("unmarshalling index: %w", err)
	}

	trailList := make([]*model.Trail, 0, len(index.Trails))
	for _, entry := range index.Trails {
		geometry := make([]model.LatLon, len(entry.Geometry))
		for i, c := range entry.Geometry {
			geometry[i] = model.LatLon{Lat: c[0], Lon: c[1]}
		}

		trailList = append(trailList, &model.Trail{
			ID:                 entry.ID,
			Name:               entry.Name,
			Source:             entry.Source,
			Geometry:           geometry,
			DistanceKm:         entry.DistanceKm,
			ElevationGainM:     entry.ElevationGainM,
			ElevationLossM:     entry.ElevationLossM,
			MinElevationM:      entry.MinElevationM,
			MaxElevationM:      entry.MaxElevationM,
			ElevationProfile:   entry.ElevationProfile,
			Difficulty:         entry.Difficulty,
			Colors:             entry.Colors,
			IsLoop:             entry.IsLoop,
			RecommendedSeasons: entry.RecommendedSeasons,
			SeasonWarnings:     entry.SeasonWarnings,
			AccessPoints:       entry.AccessPoints,
		})
	}

	return trailList, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
