package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Response is a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreatePollRequest is the body of POST /api/v1/polls
type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// CreatePollResponse is the response for poll creation
type CreatePollResponse struct {
	PollID string `json:"pollId"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms int `json:"activeRooms"`
	Subscribers int `json:"subscribers"`
}

// handleCreatePoll handles POST /api/v1/polls
func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}

	snap, err := s.hub.CreatePoll(r.Context(), req.Question, req.Options)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, http.StatusCreated, &CreatePollResponse{PollID: snap.PollID})
}

// handleGetPoll handles GET /api/v1/polls/{id}
func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")
	if pollID == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_POLL_ID", "Poll id is required")
		return
	}

	snap, err := s.hub.GetPoll(r.Context(), pollID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, http.StatusOK, snap)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, http.StatusOK, &HealthResponse{Status: "ok"})
}

// handleReady handles GET /ready; with a database configured it pings it
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.sendError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database not ready")
			return
		}
	}
	s.sendSuccess(w, http.StatusOK, &HealthResponse{Status: "ready"})
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, http.StatusOK, &StatsResponse{
		ActiveRooms: s.hub.RoomCount(),
		Subscribers: s.hub.SubscriberCount(),
	})
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
