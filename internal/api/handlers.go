package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rotapost/rotapost/internal/metrics"
	"github.com/rotapost/rotapost/internal/planner"
	"github.com/rotapost/rotapost/internal/store"
)

// PlanRequest is the request body for POST /plan and /forecast
type PlanRequest struct {
	Date         string          `json:"date,omitempty"` // YYYY-MM-DD, default today
	StartFromNow bool            `json:"start_from_now,omitempty"`
	Settings     *store.Settings `json:"settings,omitempty"` // forecast only
}

// PlanSlot is one scheduled publication in a plan response
type PlanSlot struct {
	PostID      int64     `json:"post_id"`
	CompanyName string    `json:"company_name"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Preferred   bool      `json:"preferred"`
}

// PlanResponse is the response for POST /plan and /forecast
type PlanResponse struct {
	Date                string     `json:"date"`
	TotalPublications   int        `json:"total_publications"`
	FullRotations       int        `json:"full_rotations"`
	PartialPublications int        `json:"partial_publications"`
	StartCursor         int        `json:"start_cursor"`
	EndCursor           int        `json:"end_cursor"`
	Slots               []PlanSlot `json:"slots"`
}

// SettingsResponse is the response for GET /settings
type SettingsResponse struct {
	store.Settings
	Cursor     int        `json:"cursor"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handlePlan handles POST /api/v1/plan
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, day, ok := s.decodePlanRequest(w, r)
	if !ok {
		return
	}

	p, err := s.planner.Run(day, req.StartFromNow)
	if err != nil {
		s.logger.Error("planning failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Planning failed")
		return
	}
	metrics.IncPlannerRuns("api")
	metrics.AddPlannerSlots(p.TotalPublications)

	s.sendJSON(w, http.StatusOK, planResponse(s.clock.DayString(day), p))
}

// handleForecast handles POST /api/v1/forecast
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	req, day, ok := s.decodePlanRequest(w, r)
	if !ok {
		return
	}

	p, err := s.planner.Forecast(day, req.StartFromNow, req.Settings)
	if err != nil {
		if req.Settings != nil {
			s.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("forecast failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Forecast failed")
		return
	}

	s.sendJSON(w, http.StatusOK, planResponse(s.clock.DayString(day), p))
}

func (s *Server) decodePlanRequest(w http.ResponseWriter, r *http.Request) (*PlanRequest, time.Time, bool) {
	req := &PlanRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return nil, time.Time{}, false
	}

	day := s.clock.Today()
	if req.Date != "" {
		parsed, err := s.clock.ParseDay(req.Date)
		if err != nil {
			s.sendError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return nil, time.Time{}, false
		}
		day = parsed
	}
	return req, day, true
}

func planResponse(date string, p *planner.Plan) PlanResponse {
	resp := PlanResponse{
		Date:                date,
		TotalPublications:   p.TotalPublications,
		FullRotations:       p.FullRotations,
		PartialPublications: p.PartialPublications,
		StartCursor:         p.StartCursor,
		EndCursor:           p.EndCursor,
		Slots:               make([]PlanSlot, 0, len(p.Slots)),
	}
	for _, a := range p.Slots {
		resp.Slots = append(resp.Slots, PlanSlot{
			PostID:      a.Post.ID,
			CompanyName: a.Post.CompanyName,
			Title:       a.Post.Title,
			ScheduledAt: a.At,
			Preferred:   a.Preferred,
		})
	}
	return resp
}

// handleSlotsList handles GET /api/v1/slots?date=YYYY-MM-DD
func (s *Server) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	day := s.clock.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := s.clock.ParseDay(v)
		if err != nil {
			s.sendError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	slots, err := s.slots.ListByDay(s.clock.DayStart(day), s.clock.DayEnd(day))
	if err != nil {
		s.logger.Error("failed to list slots", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list slots")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"date":  s.clock.DayString(day),
		"slots": slots,
	})
}

// handleSettingsGet handles GET /api/v1/settings
func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Load()
	if err != nil {
		s.logger.Error("failed to load settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	cursor, err := s.settings.Cursor()
	if err != nil {
		s.logger.Error("failed to load cursor", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	resp := SettingsResponse{Settings: settings, Cursor: cursor}
	if last, err := s.settings.LastSentAt(); err == nil && !last.IsZero() {
		resp.LastSentAt = &last
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// handleSettingsUpdate handles PUT /api/v1/settings
func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := settings.Validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.settings.Save(settings); err != nil {
		s.logger.Error("failed to save settings", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	s.logger.Info("settings updated",
		"enabled", settings.Enabled,
		"window", settings.StartTime+"-"+settings.EndTime,
		"min_interval_minutes", settings.MinIntervalMinutes,
	)
	s.sendJSON(w, http.StatusOK, settings)
}

// DispatchRunRequest is the request body for POST /api/v1/dispatch/run
type DispatchRunRequest struct {
	Force bool `json:"force,omitempty"`
}

// handleDispatchRun handles POST /api/v1/dispatch/run
func (s *Server) handleDispatchRun(w http.ResponseWriter, r *http.Request) {
	var req DispatchRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res := s.dispatcher.RunNow(r.Context(), req.Force)
	s.sendJSON(w, http.StatusOK, res)
}

// handleHistoryList handles GET /api/v1/history?limit=&offset=
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 {
		s.sendError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	entries, err := s.histLog.List(limit, offset)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HistoryViewsRequest is the request body for PUT /api/v1/history/{id}/views
type HistoryViewsRequest struct {
	Views int `json:"views"`
}

// handleHistoryViews handles PUT /api/v1/history/{id}/views
func (s *Server) handleHistoryViews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req HistoryViewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Views < 0 {
		s.sendError(w, http.StatusBadRequest, "views must not be negative")
		return
	}

	if err := s.histLog.SetViewCount(id, req.Views); err != nil {
		s.sendError(w, http.StatusNotFound, "History entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
