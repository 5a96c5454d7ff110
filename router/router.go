// Package router finds bus connections between stop sets on a single
// travel date. Searches consider direct rides and one transfer; a
// handful of caps keep the search bounded on dense urban feeds.
package router

import (
	"sort"
	"time"

	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/schedule"
)

const (
	// Stops considered for a transfer along a single trip.
	maxIntermediateStops = 30
	// Connecting trips checked per intermediate stop.
	maxConnectingDepartures = 10
	// Latest departures tried from each trail stop on the way back.
	maxReturnDepartures = 10
	// Minimum time to change buses.
	minTransferSecs = 60
)

// Router answers outbound and return queries against a date-specific
// schedule store.
type Router struct {
	store schedule.Store
	date  time.Time
}

func New(store schedule.Store, date time.Time) *Router {
	return &Router{store: store, date: date}
}

// secondsToTime converts seconds since midnight to a wall-clock time
// on the travel date. Values past 86400 roll into the next day.
func (r *Router) secondsToTime(secs int) time.Time {
	days := secs / 86400
	remaining := secs % 86400
	base := time.Date(r.date.Year(), r.date.Month(), r.date.Day(), 0, 0, 0, 0, r.date.Location())
	return base.AddDate(0, 0, days).Add(time.Duration(remaining) * time.Second)
}

type rawLeg struct {
	tripID     string
	fromStopID string
	depSecs    int
	toStopID   string
	arrSecs    int
}

func (r *Router) makeBusLeg(leg rawLeg) model.BusLeg {
	var shortName, agencyName string
	if routeID, found := r.store.TripRoute(leg.tripID); found {
		if info, found := r.store.RouteInfo(routeID); found {
			shortName = info.ShortName
			agencyName = info.AgencyName
		}
	}

	fromName, found := r.store.StopName(leg.fromStopID)
	if !found {
		fromName = leg.fromStopID
	}
	toName, found := r.store.StopName(leg.toStopID)
	if !found {
		toName = leg.toStopID
	}

	return model.BusLeg{
		Line:         shortName,
		Operator:     agencyName,
		FromStopID:   leg.fromStopID,
		FromStopName: fromName,
		ToStopID:     leg.toStopID,
		ToStopName:   toName,
		Departure:    r.secondsToTime(leg.depSecs),
		Arrival:      r.secondsToTime(leg.arrSecs),
	}
}

func (r *Router) makeBusLegs(raw []rawLeg) []model.BusLeg {
	legs := make([]model.BusLeg, len(raw))
	for i, l := range raw {
		legs[i] = r.makeBusLeg(l)
	}
	return legs
}

// firstDepartureAt returns the index of the first departure at or
// after t.
func firstDepartureAt(deps []schedule.Departure, t int) int {
	return sort.Search(len(deps), func(i int) bool {
		return deps[i].DepSecs >= t
	})
}

// FindOutbound returns the earliest-arriving route from any origin
// stop to any destination stop, departing no earlier than
// earliestDepSecs. Nil legs mean no route exists. Ties on arrival
// keep the first route found.
func (r *Router) FindOutbound(
	originStops []string,
	destStops map[string]bool,
	earliestDepSecs int,
) ([]model.BusLeg, error) {

	const inf = int(^uint(0) >> 1)
	bestArrival := inf
	var bestLegs []rawLeg

	// Phase 1: direct rides.
	for _, originStop := range originStops {
		deps, err := r.store.Departures(originStop)
		if err != nil {
			return nil, err
		}

		for i := firstDepartureAt(deps, earliestDepSecs); i < len(deps); i++ {
			dep := deps[i]

			// Departing at or past the best arrival cannot improve.
			if dep.DepSecs >= bestArrival {
				break
			}

			tripStops, err := r.store.TripStops(dep.TripID)
			if err != nil {
				return nil, err
			}

			for _, ts := range tripStops {
				if ts.Seq <= dep.Seq {
					continue
				}
				if destStops[ts.StopID] && ts.ArrSecs < bestArrival {
					bestArrival = ts.ArrSecs
					bestLegs = []rawLeg{
						{dep.TripID, originStop, dep.DepSecs, ts.StopID, ts.ArrSecs},
					}
					break // first dest hit on this trip is sufficient
				}
			}
		}
	}

	// Phase 2: one transfer.
	for _, originStop := range originStops {
		deps, err := r.store.Departures(originStop)
		if err != nil {
			return nil, err
		}

		for i := firstDepartureAt(deps, earliestDepSecs); i < len(deps); i++ {
			dep := deps[i]

			if dep.DepSecs >= bestArrival {
				break
			}

			tripStops, err := r.store.TripStops(dep.TripID)
			if err != nil {
				return nil, err
			}

			intermediatesChecked := 0
			for _, ts := range tripStops {
				if ts.Seq <= dep.Seq {
					continue
				}

				// An intermediate that is itself a destination was
				// already handled as a direct ride.
				if destStops[ts.StopID] {
					break
				}

				intermediatesChecked++
				if intermediatesChecked > maxIntermediateStops {
					break
				}

				if ts.ArrSecs >= bestArrival {
					break
				}

				connDeps, err := r.store.Departures(ts.StopID)
				if err != nil {
					return nil, err
				}

				transferReady := ts.ArrSecs + minTransferSecs
				connectionsChecked := 0
				for j := firstDepartureAt(connDeps, transferReady); j < len(connDeps); j++ {
					conn := connDeps[j]

					if conn.DepSecs >= bestArrival {
						break
					}

					// Don't reboard the same trip.
					if conn.TripID == dep.TripID {
						continue
					}

					connectionsChecked++
					if connectionsChecked > maxConnectingDepartures {
						break
					}

					connTripStops, err := r.store.TripStops(conn.TripID)
					if err != nil {
						return nil, err
					}

					for _, cts := range connTripStops {
						if cts.Seq <= conn.Seq {
							continue
						}
						if destStops[cts.StopID] && cts.ArrSecs < bestArrival {
							bestArrival = cts.ArrSecs
							bestLegs = []rawLeg{
								{dep.TripID, originStop, dep.DepSecs, ts.StopID, ts.ArrSecs},
								{conn.TripID, ts.StopID, conn.DepSecs, cts.StopID, cts.ArrSecs},
							}
							break // first dest on connecting trip
						}
					}
				}
			}
		}
	}

	if bestLegs == nil {
		return nil, nil
	}
	return r.makeBusLegs(bestLegs), nil
}

// FindReturn returns the latest-departing route from any trail stop
// that arrives at an origin stop no later than deadlineSecs. Nil legs
// mean no route exists.
func (r *Router) FindReturn(
	trailStops []string,
	originStops map[string]bool,
	deadlineSecs int,
) ([]model.BusLeg, error) {

	bestTrailDep := -1
	var bestLegs []rawLeg

	// Phase 1: direct rides, latest departures first.
	for _, trailStop := range trailStops {
		deps, err := r.store.Departures(trailStop)
		if err != nil {
			return nil, err
		}

		checked := 0
		for i := len(deps) - 1; i >= 0; i-- {
			dep := deps[i]

			// Departures past the deadline cannot arrive before it.
			if dep.DepSecs > deadlineSecs {
				continue
			}

			if dep.DepSecs <= bestTrailDep {
				break
			}

			checked++
			if checked > maxReturnDepartures {
				break
			}

			tripStops, err := r.store.TripStops(dep.TripID)
			if err != nil {
				return nil, err
			}

			for _, ts := range tripStops {
				if ts.Seq <= dep.Seq {
					continue
				}
				if originStops[ts.StopID] && ts.ArrSecs <= deadlineSecs {
					if dep.DepSecs > bestTrailDep {
						bestTrailDep = dep.DepSecs
						bestLegs = []rawLeg{
							{dep.TripID, trailStop, dep.DepSecs, ts.StopID, ts.ArrSecs},
						}
					}
					break // first origin hit on this trip
				}
			}
		}
	}

	// Phase 2: one transfer.
	for _, trailStop := range trailStops {
		deps, err := r.store.Departures(trailStop)
		if err != nil {
			return nil, err
		}

		checked := 0
		for i := len(deps) - 1; i >= 0; i-- {
			dep := deps[i]

			if dep.DepSecs > deadlineSecs {
				continue
			}

			if dep.DepSecs <= bestTrailDep {
				break
			}

			checked++
			if checked > maxReturnDepartures {
				break
			}

			tripStops, err := r.store.TripStops(dep.TripID)
			if err != nil {
				return nil, err
			}

			intermediatesChecked := 0
			for _, ts := range tripStops {
				if ts.Seq <= dep.Seq {
					continue
				}

				// An intermediate that is an origin stop was already
				// handled as a direct ride.
				if originStops[ts.StopID] {
					break
				}

				intermediatesChecked++
				if intermediatesChecked > maxIntermediateStops {
					break
				}

				if ts.ArrSecs > deadlineSecs {
					break
				}

				connDeps, err := r.store.Departures(ts.StopID)
				if err != nil {
					return nil, err
				}

				transferReady := ts.ArrSecs + minTransferSecs
				connectionsChecked := 0
				for j := firstDepartureAt(connDeps, transferReady); j < len(connDeps); j++ {
					conn := connDeps[j]

					if conn.DepSecs > deadlineSecs {
						break
					}

					if conn.TripID == dep.TripID {
						continue
					}

					connectionsChecked++
					if connectionsChecked > maxConnectingDepartures {
						break
					}

					connTripStops, err := r.store.TripStops(conn.TripID)
					if err != nil {
						return nil, err
					}

					for _, cts := range connTripStops {
						if cts.Seq <= conn.Seq {
							continue
						}
						if originStops[cts.StopID] && cts.ArrSecs <= deadlineSecs {
							if dep.DepSecs > bestTrailDep {
								bestTrailDep = dep.DepSecs
								bestLegs = []rawLeg{
									{dep.TripID, trailStop, dep.DepSecs, ts.StopID, ts.ArrSecs},
									{conn.TripID, ts.StopID, conn.DepSecs, cts.StopID, cts.ArrSecs},
								}
							}
							break // first origin on connecting trip
						}
					}
				}
			}
		}
	}

	if bestLegs == nil {
		return nil, nil
	}
	return r.makeBusLegs(bestLegs), nil
}
