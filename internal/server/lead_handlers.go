package server

import (
	"errors"
	"net/http"

	"contentops/internal/core"
	"contentops/internal/leads"
	"contentops/internal/persistence"
)

// recentLeadsLimit caps GET /api/playbook-leads.
const recentLeadsLimit = 100

// LeadListResponse is returned by GET /api/playbook-leads
type LeadListResponse struct {
	Success bool        `json:"success"`
	Leads   []core.Lead `json:"leads"`
	Total   int         `json:"total"`
}

// handleEbookLead handles POST /api/ebook-lead. Once validation passes the
// caller always gets 200; delivery and backup results are reported as flags.
func (s *Server) handleEbookLead(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Lead capture is not configured")
		return
	}

	var sub leads.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.deps.Leads.CaptureEbook(r.Context(), sub)
	if err != nil {
		if errors.Is(err, leads.ErrInvalidLead) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("Ebook lead capture failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to capture lead")
		return
	}

	s.trackLead(r, core.LeadSourceEbook, out)
	s.respondJSON(w, http.StatusOK, out)
}

// handleWebhookStatus handles GET /api/ebook-lead
func (s *Server) handleWebhookStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Webhook == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Lead webhook is not configured")
		return
	}

	probe := s.deps.Webhook.Probe(r.Context())
	status := http.StatusOK
	if !probe.Reachable {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, probe)
}

// handlePlaybookLead handles POST /api/playbook-leads
func (s *Server) handlePlaybookLead(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Lead capture is not configured")
		return
	}

	var sub leads.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.deps.Leads.CapturePlaybook(r.Context(), sub)
	switch {
	case errors.Is(err, leads.ErrInvalidLead):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, persistence.ErrDuplicate):
		s.respondError(w, http.StatusConflict, "This email has already been registered")
		return
	case err != nil:
		s.log.Error("Playbook lead capture failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save lead")
		return
	}

	s.trackLead(r, core.LeadSourcePlaybook, out)
	s.respondJSON(w, http.StatusOK, out)
}

// handleListLeads handles GET /api/playbook-leads
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leads == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Lead capture is not configured")
		return
	}

	list, err := s.deps.Leads.Recent(r.Context(), recentLeadsLimit)
	if err != nil {
		s.log.Error("Failed to list leads", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve leads")
		return
	}
	if list == nil {
		list = []core.Lead{}
	}

	s.respondJSON(w, http.StatusOK, LeadListResponse{Success: true, Leads: list, Total: len(list)})
}

func (s *Server) trackLead(r *http.Request, formType string, out leads.Outcome) {
	if err := s.deps.Tracker.TrackLeadCaptured(r.Context(), formType, out.WebhookSent, out.DatabaseSaved); err != nil {
		s.log.Warn("Failed to track lead", "error", err, "form_type", formType)
	}
}
