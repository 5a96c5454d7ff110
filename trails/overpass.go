// Package trails turns OSM hiking route relations into trail records
// and persists them as a pre-processed index.
package trails

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gezmi/plan-hikes/geo"
	"github.com/gezmi/plan-hikes/model"
)

// OverpassURL is the public Overpass API endpoint.
const OverpassURL = "https://overpass-api.de/api/interpreter"

// OverpassQuery fetches all hiking route relations in Israel, their
// member ways and the way nodes.
const OverpassQuery = `
[out:json][timeout:300];
area["ISO3166-1"="IL"]->.israel;
relation["route"="hiking"](area.israel);
out body;
>;
out skel qt;
`

// Israel Trails Committee marking colors.
var knownColors = map[string]bool{
	"red": true, "blue": true, "green": true,
	"black": true, "orange": true, "purple": true,
}

// Trail name fragments marking desert or wadi trails.
var desertKeywords = []string{
	"wadi", "nahal", "נחל", "ein", "עין", "negev", "נגב", "ramon", "רמון",
	"arava", "ערבה", "zin", "צין", "paran", "פארן", "mitzpe",
}

// South of this latitude everything is deep Negev desert.
const deepNegevLat = 31.0

const FlashFloodWarning = "Flash flood danger during rainy season (Nov-Mar). Check IMS forecast."

type overpassElement struct {
	Type    string            `json:"type"`
	ID      int64             `json:"id"`
	Lat     float64           `json:"lat"`
	Lon     float64           `json:"lon"`
	Nodes   []int64           `json:"nodes"`
	Tags    map[string]string `json:"tags"`
	Members []overpassMember  `json:"members"`
}

type overpassMember struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// ParseOverpass converts a raw Overpass JSON response into trails.
// Relations without way members or with fewer than two stitched
// coordinates are dropped.
func ParseOverpass(body []byte) ([]*model.Trail, error) {
	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshalling overpass response: %w", err)
	}

	nodeCoords := map[int64]model.LatLon{}
	wayNodes := map[int64][]int64{}

	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			nodeCoords[el.ID] = model.LatLon{Lat: el.Lat, Lon: el.Lon}
		case "way":
			wayNodes[el.ID] = el.Nodes
		}
	}

	var trails []*model.Trail
	for _, el := range resp.Elements {
		if el.Type != "relation" {
			continue
		}

		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["name:en"]
		}
		if name == "" {
			name = fmt.Sprintf("Trail %d", el.ID)
		}

		var wayRefs []int64
		for _, m := range el.Members {
			if m.Type == "way" {
				wayRefs = append(wayRefs, m.Ref)
			}
		}
		if len(wayRefs) == 0 {
			continue
		}

		coords := stitchWays(wayRefs, wayNodes, nodeCoords)
		if len(coords) < 2 {
			continue
		}

		line := geo.NewPolyline(coords)
		distanceKm := line.LengthKm()

		seasons, warnings := parseSeasonInfo(name, el.Tags, coords)

		trails = append(trails, &model.Trail{
			ID:                 fmt.Sprintf("osm:%d", el.ID),
			Name:               name,
			Source:             "osm",
			Geometry:           coords,
			DistanceKm:         round2(distanceKm),
			Difficulty:         "unknown",
			Colors:             parseColors(el.Tags),
			IsLoop:             line.IsLoop(),
			RecommendedSeasons: seasons,
			SeasonWarnings:     warnings,
		})
	}

	return trails, nil
}

// parseColors extracts trail marking colors from the osmc:symbol tag
// (format "color:background:foreground") and the colour/color tags.
func parseColors(tags map[string]string) []string {
	colors := map[string]bool{}

	if osmc := tags["osmc:symbol"]; osmc != "" {
		candidate := strings.ToLower(strings.TrimSpace(strings.Split(osmc, ":")[0]))
		if knownColors[candidate] {
			colors[candidate] = true
		}
	}

	for _, key := range []string{"colour", "color"} {
		value := strings.ToLower(strings.TrimSpace(tags[key]))
		if knownColors[value] {
			colors[value] = true
		}
	}

	sorted := make([]string, 0, len(colors))
	for _, c := range []string{"black", "blue", "green", "orange", "purple", "red"} {
		if colors[c] {
			sorted = append(sorted, c)
		}
	}
	return sorted
}

// parseSeasonInfo detects desert and wadi trails from the name, the
// average latitude, and a few OSM tags.
func parseSeasonInfo(name string, tags map[string]string, coords []model.LatLon) ([]string, []string) {
	isDesert := false

	nameLower := strings.ToLower(name)
	for _, keyword := range desertKeywords {
		if strings.Contains(nameLower, keyword) {
			isDesert = true
			break
		}
	}

	if !isDesert && len(coords) > 0 {
		sum := 0.0
		for _, c := range coords {
			sum += c.Lat
		}
		if sum/float64(len(coords)) < deepNegevLat {
			isDesert = true
		}
	}

	if !isDesert {
		for _, tagKey := range []string{"seasonal", "description", "note"} {
			tagVal := strings.ToLower(tags[tagKey])
			for _, kw := range []string{"flood", "wadi", "desert", "dry"} {
				if strings.Contains(tagVal, kw) {
					isDesert = true
					break
				}
			}
			if isDesert {
				break
			}
		}
	}

	if isDesert {
		return []string{"spring", "autumn", "summer"}, []string{FlashFloodWarning}
	}
	return nil, nil
}

// stitchWays chains way segments into the longest contiguous
// coordinate sequence. Segments attach to either end of the growing
// chain, reversed when needed; exact node ID matching decides
// connectivity.
func stitchWays(
	wayRefs []int64,
	wayNodes map[int64][]int64,
	nodeCoords map[int64]model.LatLon,
) []model.LatLon {

	var segNodeIDs [][]int64
	for _, wref := range wayRefs {
		var valid []int64
		for _, nid := range wayNodes[wref] {
			if _, found := nodeCoords[nid]; found {
				valid = append(valid, nid)
			}
		}
		if len(valid) >= 2 {
			segNodeIDs = append(segNodeIDs, valid)
		}
	}

	if len(segNodeIDs) == 0 {
		return nil
	}

	used := make([]bool, len(segNodeIDs))
	var chains [][]int64

	for startIdx := range segNodeIDs {
		if used[startIdx] {
			continue
		}

		chain := append([]int64{}, segNodeIDs[startIdx]...)
		used[startIdx] = true

		for changed := true; changed; {
			changed = false
			for i, seg := range segNodeIDs {
				if used[i] {
					continue
				}

				segStart, segEnd := seg[0], seg[len(seg)-1]
				chainStart, chainEnd := chain[0], chain[len(chain)-1]

				switch {
				case segStart == chainEnd:
					chain = append(chain, seg[1:]...)
				case segEnd == chainStart:
					chain = append(append([]int64{}, seg[:len(seg)-1]...), chain...)
				case segEnd == chainEnd:
					chain = append(chain, reverse(seg[:len(seg)-1])...)
				case segStart == chainStart:
					chain = append(reverse(seg[1:]), chain...)
				default:
					continue
				}

				used[i] = true
				changed = true
			}
		}

		chains = append(chains, chain)
	}

	best := chains[0]
	for _, chain := range chains[1:] {
		if len(chain) > len(best) {
			best = chain
		}
	}

	coords := make([]model.LatLon, 0, len(best))
	for _, nid := range best {
		coords = append(coords, nodeCoords[nid])
	}
	return coords
}

func reverse(ids []int64) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
