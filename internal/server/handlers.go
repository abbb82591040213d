package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status, code := "ok", http.StatusOK

	if s.deps.DB == nil {
		checks["database"] = "disabled"
	} else if err := s.deps.DB.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	if s.deps.Webhook != nil {
		if s.deps.Webhook.Configured() {
			checks["webhook"] = "configured"
		} else {
			checks["webhook"] = "not_configured"
		}
	}

	s.respondJSON(w, code, HealthResponse{
		Status: status,
		Uptime: time.Since(serverStartTime).Round(time.Second).String(),
		Checks: checks,
	})
}

// decodeJSON reads a size-limited JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errInvalidBody)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes {"success": false, "error": message}
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Success: false, Error: message})
}
