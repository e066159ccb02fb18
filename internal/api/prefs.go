package api

import (
	"encoding/json"
	"net/http"

	"github.com/stewardhq/steward/internal/prefs"
)

type prefsRequest struct {
	UserID             string   `json:"user_id"`
	Model              *string  `json:"model,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	MaxTokens          *int     `json:"max_tokens,omitempty"`
	CustomInstructions *string  `json:"custom_instructions,omitempty"`
}

func (s *Server) handlePrefsGet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	p, err := s.prefs.Get(userID)
	if err != nil {
		s.logger.Error("load prefs failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, p, s.logger)
}

func (s *Server) handlePrefsSet(w http.ResponseWriter, r *http.Request) {
	var req prefsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	p, err := s.prefs.Set(req.UserID, prefs.Update{
		Model:              req.Model,
		Temperature:        req.Temperature,
		MaxTokens:          req.MaxTokens,
		CustomInstructions: req.CustomInstructions,
	})
	if err != nil {
		s.logger.Error("update prefs failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, p, s.logger)
}
