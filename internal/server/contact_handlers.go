package server

import (
	"errors"
	"net/http"

	"contentops/internal/contact"
)

// ContactResponse is returned by POST /api/contact
type ContactResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// handleContact handles POST /api/contact. A failed notification email does
// not fail the request.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if s.deps.Contact == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Contact form is not configured")
		return
	}

	var form contact.Form
	if err := decodeJSON(w, r, &form); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.deps.Contact.Submit(r.Context(), form)
	if err != nil {
		if errors.Is(err, contact.ErrInvalidSubmission) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("Contact submission failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to submit your request. Please try again.")
		return
	}

	if err := s.deps.Tracker.TrackContactSubmitted(r.Context(), form.Service, result.EmailSent); err != nil {
		s.log.Warn("Failed to track contact submission", "error", err)
	}

	s.respondJSON(w, http.StatusOK, ContactResponse{
		Success: true,
		ID:      result.ID,
		Message: "Thanks for reaching out! We'll get back to you shortly.",
	})
}
