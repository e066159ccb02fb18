package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/guard"
	"github.com/stewardhq/steward/internal/health"
	"github.com/stewardhq/steward/internal/llm"
	"github.com/stewardhq/steward/internal/memory"
	"github.com/stewardhq/steward/internal/prefs"
	"github.com/stewardhq/steward/internal/prompts"
	"github.com/stewardhq/steward/internal/records"
	"github.com/stewardhq/steward/internal/tools"
)

// scriptedLLM returns canned responses in order.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	errs      []error
	calls     int
}

func (m *scriptedLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return m.ChatStream(ctx, req, nil)
}

func (m *scriptedLLM) ChatStream(ctx context.Context, req llm.ChatRequest, cb llm.StreamCallback) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return nil, fmt.Errorf("scriptedLLM: no response for call %d", i)
	}
	resp := m.responses[i]
	if cb != nil && resp.Message.Content != "" {
		cb(llm.StreamEvent{Kind: llm.KindToken, Token: resp.Message.Content})
	}
	return resp, nil
}

func (m *scriptedLLM) Ping(ctx context.Context) error { return nil }

func reply(text string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Model:        "test-model",
		Message:      llm.Message{Role: "assistant", Content: text},
		Done:         true,
		InputTokens:  10,
		OutputTokens: 5,
	}
}

type testServer struct {
	ts      *httptest.Server
	srv     *Server
	memory  *memory.Store
	records *records.Store
}

type serverOptions struct {
	clients map[string]llm.Client
	guard   *guard.Guard
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	dir := t.TempDir()

	recStore, err := records.NewStore(filepath.Join(dir, "records.db"))
	if err != nil {
		t.Fatalf("records.NewStore(): %v", err)
	}
	t.Cleanup(func() { recStore.Close() })

	memStore, err := memory.NewStore(filepath.Join(dir, "memory.db"))
	if err != nil {
		t.Fatalf("memory.NewStore(): %v", err)
	}
	t.Cleanup(func() { memStore.Close() })

	prefStore, err := prefs.NewStore(filepath.Join(dir, "prefs.db"))
	if err != nil {
		t.Fatalf("prefs.NewStore(): %v", err)
	}
	t.Cleanup(func() { prefStore.Close() })

	engine := agent.New(agent.Options{
		Clients:      opts.clients,
		Memory:       memStore,
		Prefs:        prefStore,
		Registry:     tools.NewRegistry(recStore, nil),
		Prompts:      prompts.NewAssembler("test persona", prefStore, nil),
		Guard:        opts.guard,
		DefaultModel: "test-model",
	})

	srv := NewServer(config.ListenConfig{}, engine, memStore, recStore, prefStore, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, srv: srv, memory: memStore, records: recStore}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, decoded
}

func TestChatTurn(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{responses: []*llm.ChatResponse{reply("hello from steward")}}},
	})

	resp, body := s.do(t, http.MethodPost, "/v1/chat", map[string]string{
		"user_id": "u1",
		"content": "hi",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	// No session_id in the request means the user's global history,
	// so the response carries none either.
	if sid, _ := body["session_id"].(string); sid != "" {
		t.Errorf("session_id = %q, want empty for a sessionless turn", sid)
	}
	assistant, _ := body["assistant_message"].(map[string]any)
	if assistant["content"] != "hello from steward" {
		t.Errorf("assistant content = %v", assistant["content"])
	}
	if id, _ := assistant["id"].(string); id == "" {
		t.Error("assistant message missing persisted id")
	}
	user, _ := body["user_message"].(map[string]any)
	if user["content"] != "hi" {
		t.Errorf("user content = %v", user["content"])
	}
	if id, _ := user["id"].(string); id == "" {
		t.Error("user message missing persisted id")
	}
	if created, _ := user["created_at"].(string); created == "" {
		t.Error("user message missing created_at")
	}
}

func TestChatSessionEchoed(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{responses: []*llm.ChatResponse{reply("ok")}}},
	})

	_, created := s.do(t, http.MethodPost, "/v1/sessions", map[string]string{"user_id": "u1", "title": "plans"})
	id, _ := created["id"].(string)

	resp, body := s.do(t, http.MethodPost, "/v1/chat", map[string]string{
		"user_id":    "u1",
		"session_id": id,
		"content":    "hi",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if sid, _ := body["session_id"].(string); sid != id {
		t.Errorf("session_id = %q, want %q", sid, id)
	}
}

func TestChatValidation(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{}},
	})

	resp, _ := s.do(t, http.MethodPost, "/v1/chat", map[string]string{"content": "hi"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing user_id: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing content: status = %d, want 400", resp.StatusCode)
	}
}

func TestChatRateLimited(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{responses: []*llm.ChatResponse{reply("ok")}}},
		guard:   guard.New(1, 1),
	})

	resp, _ := s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1", "content": "one"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first turn: status = %d, want 200", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1", "content": "two"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second turn: status = %d, want 429", resp.StatusCode)
	}
}

func TestChatNotConfigured(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	resp, _ := s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1", "content": "hi"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestChatProviderError(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{errs: []error{fmt.Errorf("upstream exploded")}}},
	})

	resp, _ := s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1", "content": "hi"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	resp, created := s.do(t, http.MethodPost, "/v1/sessions", map[string]string{"user_id": "u1", "title": "groceries"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created session has no id")
	}

	resp, listed := s.do(t, http.MethodGet, "/v1/sessions?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	if sessions, _ := listed["sessions"].([]any); len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(sessions))
	}

	resp, renamed := s.do(t, http.MethodPatch, "/v1/sessions/"+id, map[string]string{"user_id": "u1", "title": "meal planning"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: status = %d", resp.StatusCode)
	}
	if renamed["title"] != "meal planning" {
		t.Errorf("title = %v", renamed["title"])
	}

	resp, msgs := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("messages: status = %d", resp.StatusCode)
	}
	if list, _ := msgs["messages"].([]any); len(list) != 0 {
		t.Errorf("messages = %d, want 0", len(list))
	}

	resp, _ = s.do(t, http.MethodDelete, "/v1/sessions/"+id+"?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}

	resp, _ = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages?user_id=u1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("messages after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionScopedToUser(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	_, created := s.do(t, http.MethodPost, "/v1/sessions", map[string]string{"user_id": "u1", "title": "mine"})
	id, _ := created["id"].(string)

	resp, _ := s.do(t, http.MethodDelete, "/v1/sessions/"+id+"?user_id=u2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestClearHistory(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{responses: []*llm.ChatResponse{reply("noted")}}},
	})

	_, created := s.do(t, http.MethodPost, "/v1/sessions", map[string]string{"user_id": "u1", "title": "scratch"})
	id, _ := created["id"].(string)

	s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1", "session_id": id, "content": "remember this"})

	_, msgs := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages?user_id=u1", nil)
	if list, _ := msgs["messages"].([]any); len(list) != 2 {
		t.Fatalf("messages before clear = %d, want 2", len(list))
	}

	resp, _ := s.do(t, http.MethodDelete, "/v1/history?user_id=u1&session_id="+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear: status = %d", resp.StatusCode)
	}

	_, msgs = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages?user_id=u1", nil)
	if list, _ := msgs["messages"].([]any); len(list) != 0 {
		t.Errorf("messages after clear = %d, want 0", len(list))
	}
}

func TestClearGlobalHistory(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{responses: []*llm.ChatResponse{
			reply("first"), reply("fresh start"),
		}}},
	})

	resp, _ := s.do(t, http.MethodPost, "/v1/chat", map[string]string{"user_id": "u1", "content": "remember this"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: status = %d", resp.StatusCode)
	}

	// session_id is optional: omitting it clears the user's history.
	resp, _ = s.do(t, http.MethodDelete, "/v1/history?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear: status = %d, want 200", resp.StatusCode)
	}

	history, err := s.memory.History("u1", "", 10)
	if err != nil {
		t.Fatalf("History(): %v", err)
	}
	if len(history) != 0 {
		t.Errorf("global history = %d messages after clear, want 0", len(history))
	}
}

func TestDocumentHTML(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	doc, err := s.records.CreateDocument("u1", "Weekly Plan", "# Monday\n\nShip the *thing*.", "")
	if err != nil {
		t.Fatalf("CreateDocument(): %v", err)
	}

	resp, err := s.ts.Client().Get(s.ts.URL + "/v1/documents/" + doc.ID + "/html?user_id=u1")
	if err != nil {
		t.Fatalf("GET html: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	page := buf.String()
	if !strings.Contains(page, "<h1") || !strings.Contains(page, "<em>thing</em>") {
		t.Errorf("rendered page missing markdown conversion:\n%s", page)
	}
	if !strings.Contains(page, "<title>Weekly Plan</title>") {
		t.Errorf("rendered page missing title:\n%s", page)
	}
}

func TestDocumentHTMLNotFound(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	resp, _ := s.do(t, http.MethodGet, "/v1/documents/nope/html?user_id=u1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	resp, body := s.do(t, http.MethodPatch, "/v1/prefs", map[string]any{
		"user_id": "u1",
		"model":   "gpt-4o-mini",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: status = %d", resp.StatusCode)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}

	resp, body = s.do(t, http.MethodGet, "/v1/prefs?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model after get = %v", body["model"])
	}
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	resp, body := s.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(t, http.MethodGet, "/v1/version", nil)
	version, _ := body["version"].(string)
	if resp.StatusCode != http.StatusOK || version == "" {
		t.Errorf("version = %d %v", resp.StatusCode, body)
	}
}

func TestHealthReportsProviders(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	monitor := health.NewMonitor(nil, health.Options{
		InitialDelay: time.Millisecond,
		PollInterval: time.Millisecond,
	})
	defer monitor.Stop()
	monitor.Watch(context.Background(), "anthropic", func(ctx context.Context) error {
		return fmt.Errorf("unreachable")
	})
	s.srv.SetMonitor(monitor)

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, body := s.do(t, http.MethodGet, "/health", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["status"] == "degraded" {
			providers, _ := body["providers"].(map[string]any)
			if _, ok := providers["anthropic"]; !ok {
				t.Errorf("providers missing anthropic: %v", body)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("health never reported degraded: %v", body)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMetricsExposed(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	resp, err := s.ts.Client().Get(s.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestChatStreamWebsocket(t *testing.T) {
	s := newTestServer(t, serverOptions{
		clients: map[string]llm.Client{"anthropic": &scriptedLLM{responses: []*llm.ChatResponse{reply("streamed answer")}}},
	})

	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/v1/chat/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ChatRequest{UserID: "u1", Content: "hi"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var sawToken, sawDone bool
	for {
		var ev StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		switch ev.Type {
		case "token":
			if ev.Token == "streamed answer" {
				sawToken = true
			}
		case "done":
			sawDone = true
			if ev.Turn == nil || ev.Turn.AssistantMessage.Content != "streamed answer" {
				t.Errorf("done frame turn = %+v", ev.Turn)
			}
		case "error":
			t.Fatalf("unexpected error frame: %s", ev.Error)
		}
		if sawDone {
			break
		}
	}
	if !sawToken {
		t.Error("never saw token event")
	}
	if !sawDone {
		t.Error("never saw done event")
	}
}

func TestChatStreamValidation(t *testing.T) {
	s := newTestServer(t, serverOptions{clients: map[string]llm.Client{}})

	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/v1/chat/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ChatRequest{Content: "hi"}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	var ev StreamEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if ev.Type != "error" {
		t.Errorf("frame type = %q, want error", ev.Type)
	}
}
