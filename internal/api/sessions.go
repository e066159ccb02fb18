package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stewardhq/steward/internal/memory"
)

type sessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sessions, err := s.memory.ListSessions(userID)
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"sessions": sessions}, s.logger)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sess, err := s.memory.CreateSession(req.UserID, req.Title)
	if err != nil {
		s.logger.Error("create session failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, sess, s.logger)
}

func (s *Server) handleSessionRename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Title == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id and title are required")
		return
	}

	if err := s.memory.RenameSession(req.UserID, id, req.Title); err != nil {
		s.sessionError(w, err, "rename session")
		return
	}
	sess, err := s.memory.GetSession(req.UserID, id)
	if err != nil {
		s.sessionError(w, err, "rename session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sess, s.logger)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.memory.DeleteSession(userID, id); err != nil {
		s.sessionError(w, err, "delete session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "deleted", "session_id": id}, s.logger)
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if _, err := s.memory.GetSession(userID, id); err != nil {
		s.sessionError(w, err, "load session")
		return
	}
	msgs, err := s.memory.Messages(userID, id)
	if err != nil {
		s.logger.Error("list messages failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"session_id": id, "messages": msgs}, s.logger)
}

func (s *Server) sessionError(w http.ResponseWriter, err error, op string) {
	var notFound *memory.ErrNotFound
	if errors.As(err, &notFound) {
		s.errorResponse(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Error(op+" failed", "error", err)
	s.errorResponse(w, http.StatusInternalServerError, "failed to "+op)
}
