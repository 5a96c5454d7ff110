package httpapi

import (
	"math"

	"github.com/gezmi/plan-hikes/model"
)

type planResponse struct {
	Origin   string     `json:"origin"`
	Date     string     `json:"date"`
	Deadline string     `json:"deadline"`
	NPlans   int        `json:"n_plans"`
	Plans    []planJSON `json:"plans"`
}

type planJSON struct {
	TrailName    string   `json:"trail_name"`
	TrailID      string   `json:"trail_id"`
	Colors       []string `json:"colors,omitempty"`
	IsLoop       bool     `json:"is_loop"`
	IsThrough    bool     `json:"is_through_hike"`
	TrailKm      float64  `json:"trail_distance_km"`
	HikeKm       float64  `json:"hike_distance_km"`
	HikingHours  float64  `json:"hiking_hours"`
	TotalHours   float64  `json:"total_hours"`
	HikingRatio  float64  `json:"hiking_ratio"`
	EntryStop    string   `json:"entry_stop"`
	ExitStop     string   `json:"exit_stop"`
	WalkToM      float64  `json:"walk_to_trail_m"`
	WalkFromM    float64  `json:"walk_from_trail_m"`
	HikeStart    string   `json:"hike_start"`
	HikeEnd      string   `json:"hike_end"`
	Departure    string   `json:"departure_from_origin"`
	Arrival      string   `json:"arrival_at_origin"`
	OutboundLegs []legJSON `json:"outbound_legs"`
	ReturnLegs   []legJSON `json:"return_legs"`
	Warnings     []string `json:"warnings,omitempty"`
}

type legJSON struct {
	Line        string `json:"line"`
	Operator    string `json:"operator,omitempty"`
	FromStop    string `json:"from_stop"`
	ToStop      string `json:"to_stop"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	DurationMin int    `json:"duration_minutes"`
}

func toPlanJSON(plans []*model.HikePlan) []planJSON {
	out := make([]planJSON, len(plans))
	for i, p := range plans {
		out[i] = planJSON{
			TrailName:    p.Trail.Name,
			TrailID:      p.Trail.ID,
			Colors:       p.Trail.Colors,
			IsLoop:       p.HikeSegment.IsLoop,
			IsThrough:    p.HikeSegment.IsThroughHike,
			TrailKm:      p.Trail.DistanceKm,
			HikeKm:       p.HikeSegment.EstimatedDistanceKm,
			HikingHours:  p.HikeSegment.HikingHours,
			TotalHours:   p.TotalHours,
			HikingRatio:  p.HikingRatio,
			EntryStop:    p.HikeSegment.EntryStopName,
			ExitStop:     p.HikeSegment.ExitStopName,
			WalkToM:      p.HikeSegment.WalkToTrailM,
			WalkFromM:    p.HikeSegment.WalkFromTrailM,
			HikeStart:    p.HikeSegment.HikeStart.Format("15:04"),
			HikeEnd:      p.HikeSegment.HikeEnd.Format("15:04"),
			Departure:    p.DepartureFromOrigin.Format("15:04"),
			Arrival:      p.ArrivalAtOrigin.Format("15:04"),
			OutboundLegs: toLegJSON(p.OutboundLegs),
			ReturnLegs:   toLegJSON(p.ReturnLegs),
			Warnings:     p.Warnings,
		}
	}
	return out
}

func toLegJSON(legs []model.BusLeg) []legJSON {
	out := make([]legJSON, len(legs))
	for i, l := range legs {
		out[i] = legJSON{
			Line:        l.Line,
			Operator:    l.Operator,
			FromStop:    l.FromStopName,
			ToStop:      l.ToStopName,
			Departure:   l.Departure.Format("15:04"),
			Arrival:     l.Arrival.Format("15:04"),
			DurationMin: int(math.Round(l.Duration().Minutes())),
		}
	}
	return out
}
