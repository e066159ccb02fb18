package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/memory"
)

// ChatRequest is the body of POST /v1/chat and the first frame of the
// websocket stream. An omitted session_id addresses the user's global
// history.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// Usage reports token consumption for a turn.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is the result of a completed turn. The message fields
// are the persisted records, ids and timestamps included.
type ChatResponse struct {
	SessionID        string          `json:"session_id,omitempty"`
	UserMessage      *memory.Message `json:"user_message"`
	AssistantMessage *memory.Message `json:"assistant_message"`
	Rounds           int             `json:"rounds"`
	ToolCalls        int             `json:"tool_calls"`
	Usage            Usage           `json:"usage"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Content == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id and content are required")
		return
	}

	start := time.Now()
	turn, err := s.engine.Send(r.Context(), req.UserID, req.SessionID, req.Content)
	if err != nil {
		s.chatError(w, err)
		return
	}
	observeTurn(turn, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, turnResponse(turn), s.logger)
}

// handleClearHistory clears one session when session_id is given, or
// the user's entire history when it is omitted.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")
	if userID == "" {
		s.errorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.memory.Clear(userID, sessionID); err != nil {
		s.logger.Error("clear history failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]string{"status": "cleared"}
	if sessionID != "" {
		resp["session_id"] = sessionID
	}
	writeJSON(w, resp, s.logger)
}

// chatError maps engine failures to HTTP status codes.
func (s *Server) chatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrRateLimited):
		s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
	case errors.Is(err, agent.ErrNotConfigured):
		s.errorResponse(w, http.StatusServiceUnavailable, "no model provider configured")
	case errors.Is(err, agent.ErrProvider):
		providerErrors.Inc()
		s.logger.Error("provider error", "error", err)
		s.errorResponse(w, http.StatusBadGateway, "model provider error")
	default:
		s.logger.Error("turn failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

func turnResponse(turn *agent.Turn) ChatResponse {
	return ChatResponse{
		SessionID:        turn.SessionID,
		UserMessage:      turn.UserMessage,
		AssistantMessage: turn.AssistantMessage,
		Rounds:           turn.Rounds,
		ToolCalls:        turn.ToolCalls,
		Usage:            Usage{InputTokens: turn.InputTokens, OutputTokens: turn.OutputTokens},
	}
}
