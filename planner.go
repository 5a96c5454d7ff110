// Package hikeplan plans day hikes reachable by public transport. A
// plan is a bus journey out, a hike sized to the time window the buses
// leave open, and a bus journey back before the day's deadline.
package hikeplan

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/router"
	"github.com/gezmi/plan-hikes/schedule"
	"github.com/gezmi/plan-hikes/spatial"
)

// Planner holds everything needed to answer plan queries for one
// travel date: the schedule store, the trail set already filtered and
// joined with nearby stops, and the return deadline.
type Planner struct {
	store  schedule.Store
	router *router.Router
	trails []*model.Trail

	query        model.HikeQuery
	date         time.Time
	deadline     time.Time
	deadlineSecs int
}

// New builds a planner for one query. The trail list is filtered down
// to day hikes matching the query and joined with stops from the
// store; the deadline is the latest acceptable arrival back at the
// origin, computed by the caller (see the shabbat package).
func New(store schedule.Store, trailList []*model.Trail, deadline time.Time, query model.HikeQuery) (*Planner, error) {
	if query.LoopOnly && query.LinearOnly {
		return nil, model.ErrConflictingFilters
	}

	usable := make([]*model.Trail, 0, len(trailList))
	for _, t := range trailList {
		if t.DistanceKm > 0 && t.DistanceKm <= MaxTrailDistanceKm {
			usable = append(usable, t)
		}
	}
	usable = filterTrails(usable, query)

	maxWalk := query.MaxWalkToTrailM
	if maxWalk <= 0 {
		maxWalk = spatial.DefaultMaxWalkM
	}

	// Trails loaded from a pre-built index already carry access
	// points; only freshly fetched ones need the join.
	var joined, needJoin []*model.Trail
	for _, t := range usable {
		if len(t.AccessPoints) > 0 {
			joined = append(joined, t)
		} else {
			needJoin = append(needJoin, t)
		}
	}
	joined = append(joined, spatial.JoinTrails(needJoin, store.Stops(), maxWalk)...)

	slog.Info("planner ready",
		"candidate_trails", len(joined),
		"deadline", deadline.Format("15:04"))

	midnight := time.Date(query.Date.Year(), query.Date.Month(), query.Date.Day(),
		0, 0, 0, 0, query.Date.Location())

	return &Planner{
		store:        store,
		router:       router.New(store, query.Date),
		trails:       joined,
		query:        query,
		date:         query.Date,
		deadline:     deadline,
		deadlineSecs: int(deadline.Sub(midnight).Seconds()),
	}, nil
}

// Trails returns the candidate trails after filtering and the spatial
// join.
func (p *Planner) Trails() []*model.Trail {
	return p.trails
}

// Deadline returns the latest acceptable arrival back at the origin.
func (p *Planner) Deadline() time.Time {
	return p.deadline
}

// PlanHikes plans hikes from the query's origin city.
func (p *Planner) PlanHikes() ([]*model.HikePlan, error) {
	return p.PlanHikesForOrigin(p.query.Origin)
}

// PlanHikesForOrigin plans hikes departing from the named city. Each
// trail contributes at most two plans: the best out-and-back and, on
// linear trails with several access points, the best through-hike.
// Plans come back sorted by hiking ratio, best first.
func (p *Planner) PlanHikesForOrigin(origin string) ([]*model.HikePlan, error) {
	city, found := ResolveCity(origin)
	if !found {
		return nil, errors.Wrap(model.ErrUnknownOrigin, origin)
	}

	originStops, err := p.store.StopsWithin(city.Lat, city.Lon, StopSearchRadiusM)
	if err != nil {
		return nil, err
	}
	if len(originStops) == 0 {
		slog.Warn("no stops near origin", "origin", city.Name)
		return []*model.HikePlan{}, nil
	}

	originIDs := make([]string, len(originStops))
	originSet := make(map[string]bool, len(originStops))
	for i, s := range originStops {
		originIDs[i] = s.ID
		originSet[s.ID] = true
	}

	earliest := p.query.EarliestDepSecs
	if earliest <= 0 {
		earliest = DefaultEarliestDepSecs
	}
	minHiking := p.query.MinHikingHours
	if minHiking <= 0 {
		minHiking = DefaultMinHikingHours
	}

	plans := []*model.HikePlan{}
	for _, trail := range p.trails {
		var best *model.HikePlan
		for _, ap := range trail.AccessPoints {
			plan, err := p.planAccessPoint(trail, ap, originIDs, originSet, earliest, minHiking)
			if err != nil {
				return nil, err
			}
			if plan != nil && (best == nil || plan.HikingRatio > best.HikingRatio) {
				best = plan
			}
		}
		if best != nil {
			plans = append(plans, best)
		}

		if !trail.IsLoop && len(trail.AccessPoints) >= 2 {
			var bestThrough *model.HikePlan
			for i, entry := range trail.AccessPoints {
				for j, exit := range trail.AccessPoints {
					if i == j {
						continue
					}
					plan, err := p.planThroughHike(trail, entry, exit, originIDs, originSet, earliest, minHiking)
					if err != nil {
						return nil, err
					}
					if plan != nil && (bestThrough == nil || plan.HikingRatio > bestThrough.HikingRatio) {
						bestThrough = plan
					}
				}
			}
			if bestThrough != nil {
				plans = append(plans, bestThrough)
			}
		}
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].HikingRatio > plans[j].HikingRatio
	})

	maxResults := p.query.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(plans) > maxResults {
		plans = plans[:maxResults]
	}

	return plans, nil
}

// secsOf converts a wall-clock time on the travel date back to seconds
// since the date's midnight.
func (p *Planner) secsOf(t time.Time) float64 {
	midnight := time.Date(p.date.Year(), p.date.Month(), p.date.Day(),
		0, 0, 0, 0, p.date.Location())
	return t.Sub(midnight).Seconds()
}

func (p *Planner) timeAt(secs float64) time.Time {
	midnight := time.Date(p.date.Year(), p.date.Month(), p.date.Day(),
		0, 0, 0, 0, p.date.Location())
	return midnight.Add(time.Duration(secs * float64(time.Second)))
}

// planAccessPoint plans an out-and-back hike entered and exited at one
// access point. Returns nil when the buses leave no workable window.
func (p *Planner) planAccessPoint(
	trail *model.Trail,
	ap model.TrailAccessPoint,
	originIDs []string,
	originSet map[string]bool,
	earliestDepSecs int,
	minHikingHours float64,
) (*model.HikePlan, error) {

	returnLegs, err := p.router.FindReturn([]string{ap.StopID}, originSet, p.deadlineSecs)
	if err != nil {
		return nil, err
	}
	if returnLegs == nil {
		return nil, nil
	}

	walkHours := ap.WalkDistanceM / 1000 / WalkSpeedKmh
	hikeEndSecs := p.secsOf(returnLegs[0].Departure) - walkHours*3600
	if hikeEndSecs <= float64(earliestDepSecs) {
		return nil, nil
	}

	outLegs, err := p.router.FindOutbound(originIDs, map[string]bool{ap.StopID: true}, earliestDepSecs)
	if err != nil {
		return nil, err
	}
	if outLegs == nil {
		return nil, nil
	}

	hikeStartSecs := p.secsOf(outLegs[len(outLegs)-1].Arrival) + walkHours*3600
	if hikeStartSecs >= hikeEndSecs {
		return nil, nil
	}

	windowHours := (hikeEndSecs - hikeStartSecs) / 3600
	estFullHours := trail.DistanceKm/NaismithSpeedKmh + trail.ElevationGainM/ClimbMetersPerHour

	var hikingHours, hikeDistKm float64
	if trail.IsLoop {
		// Loops are all-or-nothing: a partial loop strands the hiker
		// away from the stop.
		if windowHours < estFullHours {
			return nil, nil
		}
		hikingHours = estFullHours
		hikeDistKm = trail.DistanceKm
	} else {
		effectiveSpeed := NaismithSpeedKmh
		if estFullHours > 0 {
			effectiveSpeed = trail.DistanceKm / estFullHours
		}
		oneWayKm := math.Min(windowHours/2*effectiveSpeed, trail.DistanceKm)
		hikeDistKm = oneWayKm * 2
		hikingHours = hikeDistKm / effectiveSpeed
	}

	if hikingHours < minHikingHours {
		return nil, nil
	}

	return p.assemblePlan(trail, ap, nil, outLegs, returnLegs, model.HikeSegment{
		TrailName:           trail.Name,
		EntryStopName:       ap.StopName,
		ExitStopName:        ap.StopName,
		WalkToTrailM:        ap.WalkDistanceM,
		WalkFromTrailM:      ap.WalkDistanceM,
		HikeStart:           p.timeAt(hikeStartSecs),
		HikeEnd:             p.timeAt(hikeEndSecs),
		HikingHours:         round2(hikingHours),
		EstimatedDistanceKm: round2(hikeDistKm),
		IsLoop:              trail.IsLoop,
		Colors:              trail.Colors,
		ElevationGainM:      trail.ElevationGainM,
		ElevationLossM:      trail.ElevationLossM,
	}, hikingHours), nil
}

// planThroughHike plans a one-way hike entering at one access point and
// leaving at another.
func (p *Planner) planThroughHike(
	trail *model.Trail,
	entry, exit model.TrailAccessPoint,
	originIDs []string,
	originSet map[string]bool,
	earliestDepSecs int,
	minHikingHours float64,
) (*model.HikePlan, error) {

	segmentKm := math.Abs(exit.TrailKmFromStart - entry.TrailKmFromStart)
	if segmentKm < minThroughSegmentKm || segmentKm > maxThroughSegmentKm {
		return nil, nil
	}

	returnLegs, err := p.router.FindReturn([]string{exit.StopID}, originSet, p.deadlineSecs)
	if err != nil {
		return nil, err
	}
	if returnLegs == nil {
		return nil, nil
	}

	exitWalkHours := exit.WalkDistanceM / 1000 / WalkSpeedKmh
	hikeEndSecs := p.secsOf(returnLegs[0].Departure) - exitWalkHours*3600
	if hikeEndSecs <= float64(earliestDepSecs) {
		return nil, nil
	}

	outLegs, err := p.router.FindOutbound(originIDs, map[string]bool{entry.StopID: true}, earliestDepSecs)
	if err != nil {
		return nil, err
	}
	if outLegs == nil {
		return nil, nil
	}

	entryWalkHours := entry.WalkDistanceM / 1000 / WalkSpeedKmh
	hikeStartSecs := p.secsOf(outLegs[len(outLegs)-1].Arrival) + entryWalkHours*3600
	if hikeStartSecs >= hikeEndSecs {
		return nil, nil
	}

	// Elevation scales with the fraction of the trail covered.
	var segGain, segLoss float64
	if trail.DistanceKm > 0 {
		segGain = trail.ElevationGainM * segmentKm / trail.DistanceKm
		segLoss = trail.ElevationLossM * segmentKm / trail.DistanceKm
	}

	windowHours := (hikeEndSecs - hikeStartSecs) / 3600
	hikingHours := segmentKm/NaismithSpeedKmh + segGain/ClimbMetersPerHour
	if windowHours < hikingHours {
		return nil, nil
	}
	if hikingHours < minHikingHours {
		return nil, nil
	}

	exitCopy := exit
	return p.assemblePlan(trail, entry, &exitCopy, outLegs, returnLegs, model.HikeSegment{
		TrailName:           trail.Name,
		EntryStopName:       entry.StopName,
		ExitStopName:        exit.StopName,
		WalkToTrailM:        entry.WalkDistanceM,
		WalkFromTrailM:      exit.WalkDistanceM,
		HikeStart:           p.timeAt(hikeStartSecs),
		HikeEnd:             p.timeAt(hikeEndSecs),
		HikingHours:         round2(hikingHours),
		EstimatedDistanceKm: round2(segmentKm),
		IsThroughHike:       true,
		Colors:              trail.Colors,
		ElevationGainM:      round1(segGain),
		ElevationLossM:      round1(segLoss),
	}, hikingHours), nil
}

func (p *Planner) assemblePlan(
	trail *model.Trail,
	entry model.TrailAccessPoint,
	exit *model.TrailAccessPoint,
	outLegs, returnLegs []model.BusLeg,
	segment model.HikeSegment,
	hikingHours float64,
) *model.HikePlan {

	departure := outLegs[0].Departure
	arrival := returnLegs[len(returnLegs)-1].Arrival
	totalHours := arrival.Sub(departure).Hours()

	var warnings []string
	if rainyMonths[p.date.Month()] {
		warnings = append(warnings, trail.SeasonWarnings...)
	}

	return &model.HikePlan{
		Trail:               trail,
		AccessPoint:         entry,
		ExitAccessPoint:     exit,
		OutboundLegs:        outLegs,
		HikeSegment:         segment,
		ReturnLegs:          returnLegs,
		DepartureFromOrigin: departure,
		ArrivalAtOrigin:     arrival,
		TotalHours:          round2(totalHours),
		HikingRatio:         round3(hikingHours / totalHours),
		Deadline:            p.deadline,
		Warnings:            warnings,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
