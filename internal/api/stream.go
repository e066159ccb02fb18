package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/llm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Clients authenticate out of band; the API is not browser-facing.
		return true
	},
}

// StreamEvent is one frame of the websocket turn stream.
type StreamEvent struct {
	Type      string        `json:"type"` // token, tool_call_start, tool_call_done, done, error
	Token     string        `json:"token,omitempty"`
	ToolName  string        `json:"tool_name,omitempty"`
	ToolArgs  any           `json:"tool_args,omitempty"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Turn      *ChatResponse `json:"turn,omitempty"`
}

// handleChatStream upgrades the connection, reads one ChatRequest frame,
// and streams turn events back until the turn completes.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.streamError(conn, "invalid request frame")
		return
	}
	if req.UserID == "" || req.Content == "" {
		s.streamError(conn, "user_id and content are required")
		return
	}

	send := func(ev StreamEvent) {
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
		}
	}

	start := time.Now()
	turn, err := s.engine.SendStream(r.Context(), req.UserID, req.SessionID, req.Content, func(ev llm.StreamEvent) {
		switch ev.Kind {
		case llm.KindToken:
			send(StreamEvent{Type: "token", Token: ev.Token})
		case llm.KindToolCallStart:
			send(StreamEvent{Type: "tool_call_start", ToolName: ev.ToolCall.Name, ToolArgs: ev.ToolCall.Arguments})
		case llm.KindToolCallDone:
			send(StreamEvent{Type: "tool_call_done", ToolName: ev.ToolName, Result: ev.ToolResult})
		}
	})
	if err != nil {
		s.streamError(conn, streamErrorMessage(err))
		return
	}
	observeTurn(turn, time.Since(start))

	resp := turnResponse(turn)
	send(StreamEvent{Type: "done", SessionID: turn.SessionID, Turn: &resp})
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) streamError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(StreamEvent{Type: "error", Error: message}); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""))
}

func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, agent.ErrRateLimited):
		return "rate limit exceeded, slow down"
	case errors.Is(err, agent.ErrNotConfigured):
		return "no model provider configured"
	case errors.Is(err, agent.ErrProvider):
		providerErrors.Inc()
		return "model provider error"
	default:
		return "internal error"
	}
}
