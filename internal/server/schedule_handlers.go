package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"contentops/internal/core"
)

const (
	defaultScheduleLimit = 50
	maxScheduleLimit     = 200
)

// CreateScheduleRequest is the body of POST /api/ai/schedules
type CreateScheduleRequest struct {
	TopicCategory string `json:"topic_category"`
	ScheduledTime string `json:"scheduled_time"` // RFC 3339
}

// ScheduleResponse wraps a single schedule
type ScheduleResponse struct {
	Success  bool                `json:"success"`
	Schedule *core.ScheduledPost `json:"schedule"`
}

// ScheduleListResponse is returned by GET /api/ai/schedules
type ScheduleListResponse struct {
	Success   bool                 `json:"success"`
	Schedules []core.ScheduledPost `json:"schedules"`
	Total     int                  `json:"total"`
}

// handleCreateSchedule handles POST /api/ai/schedules
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Database is not configured")
		return
	}

	var req CreateScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category(strings.ToLower(strings.TrimSpace(req.TopicCategory)))
	if category == "" {
		category = core.CategoryBoth
	}
	if !category.Valid() {
		s.respondError(w, http.StatusBadRequest, "topic_category must be one of logistics, ai, both")
		return
	}

	at, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledTime))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "scheduled_time must be an RFC 3339 timestamp")
		return
	}

	schedule := &core.ScheduledPost{
		TopicCategory: category,
		ScheduledTime: at,
		Status:        core.SchedulePending,
	}
	if err := s.deps.DB.Schedules().Create(r.Context(), schedule); err != nil {
		s.log.Error("Failed to create schedule", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to create schedule")
		return
	}

	s.log.Info("Scheduled article", "id", schedule.ID, "category", category, "at", schedule.ScheduledTime)
	s.respondJSON(w, http.StatusCreated, ScheduleResponse{Success: true, Schedule: schedule})
}

// handleListSchedules handles GET /api/ai/schedules?limit=N
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Database is not configured")
		return
	}

	limit := defaultScheduleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxScheduleLimit)
	}

	schedules, err := s.deps.DB.Schedules().List(r.Context(), limit)
	if err != nil {
		s.log.Error("Failed to list schedules", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve schedules")
		return
	}
	if schedules == nil {
		schedules = []core.ScheduledPost{}
	}

	s.respondJSON(w, http.StatusOK, ScheduleListResponse{Success: true, Schedules: schedules, Total: len(schedules)})
}
