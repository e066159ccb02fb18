package memory

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stewardhq/steward/internal/llm"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "memory_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendCreatesSessionImplicitly(t *testing.T) {
	s := testStore(t)

	err := s.Append(&Message{SessionID: "sess-1", UserID: "u1", Role: "user", Content: "hello"})
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	sessions, err := s.ListSessions("u1")
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "sess-1" {
		t.Errorf("ListSessions() = %d sessions, want implicit sess-1", len(sessions))
	}
}

func TestGlobalHistoryHasNoSession(t *testing.T) {
	s := testStore(t)

	msg := &Message{UserID: "u1", Role: "user", Content: "hello"}
	if err := s.Append(msg); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if msg.ID == "" || msg.CreatedAt.IsZero() {
		t.Errorf("Append left message unpopulated: %+v", msg)
	}

	history, err := s.History("u1", "", 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hello" {
		t.Fatalf("global history = %+v, want the appended message", history)
	}
	if history[0].SessionID != "" {
		t.Errorf("SessionID = %q, want empty", history[0].SessionID)
	}

	// Global-history messages never materialize a session row.
	sessions, err := s.ListSessions("u1")
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("ListSessions() = %d sessions, want none", len(sessions))
	}
}

func TestClearAllUserHistory(t *testing.T) {
	s := testStore(t)

	for _, m := range []*Message{
		{UserID: "u1", Role: "user", Content: "global"},
		{SessionID: "sess-1", UserID: "u1", Role: "user", Content: "in a session"},
		{SessionID: "sess-2", UserID: "u2", Role: "user", Content: "someone else"},
	} {
		if err := s.Append(m); err != nil {
			t.Fatalf("Append(%q) error: %v", m.Content, err)
		}
	}

	// Empty session id wipes everything the user has, named sessions included.
	if err := s.Clear("u1", ""); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	for _, sid := range []string{"", "sess-1"} {
		history, err := s.History("u1", sid, 10)
		if err != nil {
			t.Fatalf("History(u1, %q) error: %v", sid, err)
		}
		if len(history) != 0 {
			t.Errorf("History(u1, %q) = %d messages after clear", sid, len(history))
		}
	}

	history, err := s.History("u2", "sess-2", 10)
	if err != nil {
		t.Fatalf("History(u2) error: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("other user's history = %d messages, want 1", len(history))
	}
}

func TestHistoryWindowChronological(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 5; i++ {
		err := s.Append(&Message{
			SessionID: "sess-1",
			UserID:    "u1",
			Role:      "user",
			Content:   fmt.Sprintf("msg-%d", i),
		})
		if err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	history, err := s.History("u1", "sess-1", 3)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History(limit=3) = %d messages", len(history))
	}
	// Most recent three, oldest of them first.
	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, m := range history {
		if m.Content != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestHistoryZeroLimit(t *testing.T) {
	s := testStore(t)

	if err := s.Append(&Message{SessionID: "sess-1", UserID: "u1", Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	history, err := s.History("u1", "sess-1", 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("History(limit=0) = %d messages, want 0", len(history))
	}
}

func TestToolCallsRoundTrip(t *testing.T) {
	s := testStore(t)

	calls := []llm.ToolCall{
		{ID: "call_1", Name: "create_task", Arguments: map[string]any{"title": "buy milk"}},
	}
	err := s.Append(&Message{
		SessionID: "sess-1",
		UserID:    "u1",
		Role:      "assistant",
		Content:   "",
		ToolCalls: calls,
		Model:     "claude-sonnet-4-5",
	})
	if err != nil {
		t.Fatalf("Append(assistant) error: %v", err)
	}
	err = s.Append(&Message{
		SessionID:  "sess-1",
		UserID:     "u1",
		Role:       "tool",
		Content:    `{"id":"t1"}`,
		ToolCallID: "call_1",
	})
	if err != nil {
		t.Fatalf("Append(tool) error: %v", err)
	}

	msgs, err := s.Messages("u1", "sess-1")
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Messages() = %d, want 2", len(msgs))
	}
	if len(msgs[0].ToolCalls) != 1 || msgs[0].ToolCalls[0].Name != "create_task" {
		t.Errorf("assistant tool calls = %+v", msgs[0].ToolCalls)
	}
	if got := msgs[0].ToolCalls[0].Arguments["title"]; got != "buy milk" {
		t.Errorf("tool call arguments title = %v", got)
	}
	if msgs[0].Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", msgs[0].Model)
	}
	if msgs[1].ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", msgs[1].ToolCallID)
	}
}

func TestHistoryScopedToUser(t *testing.T) {
	s := testStore(t)

	if err := s.Append(&Message{SessionID: "sess-1", UserID: "u1", Role: "user", Content: "mine"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	history, err := s.History("u2", "sess-1", 10)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("other user sees %d messages, want 0", len(history))
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)

	sess, err := s.CreateSession("u1", "Groceries")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	if err := s.RenameSession("u1", sess.ID, "Weekly groceries"); err != nil {
		t.Fatalf("RenameSession() error: %v", err)
	}
	got, err := s.GetSession("u1", sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if got.Title != "Weekly groceries" {
		t.Errorf("Title = %q after rename", got.Title)
	}

	if err := s.Append(&Message{SessionID: sess.ID, UserID: "u1", Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := s.DeleteSession("u1", sess.ID); err != nil {
		t.Fatalf("DeleteSession() error: %v", err)
	}

	var nf *ErrNotFound
	if _, err := s.GetSession("u1", sess.ID); !errors.As(err, &nf) {
		t.Errorf("GetSession(deleted) error = %v, want ErrNotFound", err)
	}
	msgs, err := s.Messages("u1", sess.ID)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages survived session delete: %d", len(msgs))
	}
}

func TestClearKeepsSession(t *testing.T) {
	s := testStore(t)

	sess, err := s.CreateSession("u1", "scratch")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if err := s.Append(&Message{SessionID: sess.ID, UserID: "u1", Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	if err := s.Clear("u1", sess.ID); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	if _, err := s.GetSession("u1", sess.ID); err != nil {
		t.Errorf("session should survive Clear: %v", err)
	}
	msgs, err := s.Messages("u1", sess.ID)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Clear left %d messages", len(msgs))
	}
}

func TestDeleteSessionWrongUser(t *testing.T) {
	s := testStore(t)

	sess, err := s.CreateSession("u1", "private")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	var nf *ErrNotFound
	if err := s.DeleteSession("u2", sess.ID); !errors.As(err, &nf) {
		t.Errorf("DeleteSession(other user) error = %v, want ErrNotFound", err)
	}
}
