// Package httpapi exposes the planner over HTTP for a web frontend.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	hikeplan "github.com/gezmi/plan-hikes"
	"github.com/gezmi/plan-hikes/model"
)

// PlannerProvider builds a ready planner for one query. The serve
// command implements it with on-disk schedule indexes; tests stub it.
type PlannerProvider interface {
	PlannerFor(ctx context.Context, query model.HikeQuery) (*hikeplan.Planner, error)
}

type Server struct {
	provider PlannerProvider
	loc      *time.Location
	handler  http.Handler
}

func NewServer(provider PlannerProvider) *Server {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		loc = time.UTC
	}

	s := &Server{provider: provider, loc: loc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/api/cities", s.handleCities)
	r.Post("/api/plan", s.handlePlan)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cities": hikeplan.CityNames(),
	})
}

// planRequest is the wire form of a query. Omitted optional fields
// fall back to planner defaults.
type planRequest struct {
	Origin            string   `json:"origin"`
	Date              string   `json:"date"`
	EarliestDeparture string   `json:"earliest_departure,omitempty"`
	SafetyMarginHours float64  `json:"safety_margin_hours,omitempty"`
	MaxWalkToTrailM   float64  `json:"max_walk_to_trail_m,omitempty"`
	MinHikingHours    float64  `json:"min_hiking_hours,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	Colors            []string `json:"colors,omitempty"`
	MinDistanceKm     float64  `json:"min_distance_km,omitempty"`
	MaxDistanceKm     float64  `json:"max_distance_km,omitempty"`
	LoopOnly          bool     `json:"loop_only,omitempty"`
	LinearOnly        bool     `json:"linear_only,omitempty"`
	MaxElevationGainM float64  `json:"max_elevation_gain_m,omitempty"`
	Difficulty        string   `json:"difficulty,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	query, err := s.toQuery(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	planner, err := s.provider.PlannerFor(r.Context(), query)
	if err != nil {
		writePlanError(w, err)
		return
	}

	plans, err := planner.PlanHikes()
	if err != nil {
		writePlanError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponse{
		Origin:   query.Origin,
		Date:     query.Date.Format("2006-01-02"),
		Deadline: planner.Deadline().Format("15:04"),
		NPlans:   len(plans),
		Plans:    toPlanJSON(plans),
	})
}

func (s *Server) toQuery(req planRequest) (model.HikeQuery, error) {
	if req.Origin == "" {
		return model.HikeQuery{}, fmt.Errorf("origin is required")
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
	if err != nil {
		return model.HikeQuery{}, fmt.Errorf("date must be YYYY-MM-DD")
	}

	earliestSecs := 0
	if req.EarliestDeparture != "" {
		t, err := time.Parse("15:04", req.EarliestDeparture)
		if err != nil {
			return model.HikeQuery{}, fmt.Errorf("earliest_departure must be HH:MM")
		}
		earliestSecs = t.Hour()*3600 + t.Minute()*60
	}

	return model.HikeQuery{
		Origin:            req.Origin,
		Date:              date,
		SafetyMarginHours: req.SafetyMarginHours,
		MaxWalkToTrailM:   req.MaxWalkToTrailM,
		MinHikingHours:    req.MinHikingHours,
		MaxResults:        req.MaxResults,
		EarliestDepSecs:   earliestSecs,
		Colors:            req.Colors,
		MinDistanceKm:     req.MinDistanceKm,
		MaxDistanceKm:     req.MaxDistanceKm,
		LoopOnly:          req.LoopOnly,
		LinearOnly:        req.LinearOnly,
		MaxElevationGainM: req.MaxElevationGainM,
		Difficulty:        req.Difficulty,
	}, nil
}

func writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownOrigin),
		errors.Is(err, model.ErrConflictingFilters),
		errors.Is(err, model.ErrSaturdayNotSupported):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrFeedUnavailable),
		errors.Is(err, model.ErrMissingIndex):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("plan request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
