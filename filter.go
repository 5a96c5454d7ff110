package hikeplan

import (
	"strings"

	"github.com/gezmi/plan-hikes/model"
)

// filterTrails applies the query's trail filters. Zero values mean no
// filter on that attribute.
func filterTrails(trailList []*model.Trail, query model.HikeQuery) []*model.Trail {
	var wantColors map[string]bool
	if len(query.Colors) > 0 {
		wantColors = make(map[string]bool, len(query.Colors))
		for _, c := range query.Colors {
			wantColors[strings.ToLower(c)] = true
		}
	}

	kept := make([]*model.Trail, 0, len(trailList))
	for _, t := range trailList {
		if wantColors != nil && !hasAnyColor(t, wantColors) {
			continue
		}
		if query.MinDistanceKm > 0 && t.DistanceKm < query.MinDistanceKm {
			continue
		}
		if query.MaxDistanceKm > 0 && t.DistanceKm > query.MaxDistanceKm {
			continue
		}
		if query.LoopOnly && !t.IsLoop {
			continue
		}
		if query.LinearOnly && t.IsLoop {
			continue
		}
		if query.MaxElevationGainM > 0 && t.ElevationGainM > query.MaxElevationGainM {
			continue
		}
		if query.Difficulty != "" && !strings.EqualFold(t.Difficulty, query.Difficulty) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func hasAnyColor(t *model.Trail, want map[string]bool) bool {
	for _, c := range t.Colors {
		if want[strings.ToLower(c)] {
			return true
		}
	}
	return false
}
