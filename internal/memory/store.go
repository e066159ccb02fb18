// Package memory stores conversation history: sessions and their
// messages, scoped to a user. The engine reads a bounded window of
// history when assembling a model request and appends every turn's
// messages as they are produced.
package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stewardhq/steward/internal/llm"
)

// Session is a named conversation thread.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one stored conversation message. ToolCalls is set on
// assistant messages that requested tool invocations; ToolCallID links
// a tool result back to the call that produced it. An empty SessionID
// places the message in the user's global history, outside any named
// session.
type Message struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Model      string         `json:"model,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store is the SQLite-backed conversation store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the conversation database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewStoreWithDB creates a conversation store on an existing connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		tool_call_id TEXT,
		model TEXT,
		tokens_used INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession starts a new conversation thread.
func (s *Store) CreateSession(userID, title string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.Title, fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetSession retrieves a session by id, scoped to the user.
func (s *Store) GetSession(userID, id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, created_at, updated_at
		FROM sessions WHERE user_id = ? AND id = ?
	`, userID, id)

	var sess Session
	var created, updated string
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Title, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return &sess, nil
}

// ListSessions returns the user's sessions, most recently active first.
func (s *Store) ListSessions(userID string) ([]*Session, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, created_at, updated_at
		FROM sessions WHERE user_id = ?
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var created, updated string
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &created, &updated); err != nil {
			return nil, err
		}
		sess.CreatedAt = parseTime(created)
		sess.UpdatedAt = parseTime(updated)
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// RenameSession updates a session's title.
func (s *Store) RenameSession(userID, id, title string) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET title = ?, updated_at = ? WHERE user_id = ? AND id = ?
	`, title, fmtTime(time.Now().UTC()), userID, id)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ErrNotFound{ID: id}
	}
	return nil
}

// DeleteSession removes a session and all of its messages.
func (s *Store) DeleteSession(userID, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM sessions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ErrNotFound{ID: id}
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE user_id = ? AND session_id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete session messages: %w", err)
	}
	return tx.Commit()
}

// Append stores a message and touches the session's activity timestamp.
// The session is created implicitly on first append so callers can use
// a fresh session id without a separate create step.
func (s *Store) Append(m *Message) error {
	now := time.Now().UTC()
	m.ID = newID()
	m.CreatedAt = now

	var toolCalls any
	if len(m.ToolCalls) > 0 {
		raw, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
		toolCalls = string(raw)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Global-history messages have no session row to maintain.
	if m.SessionID != "" {
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO sessions (id, user_id, title, created_at, updated_at)
			VALUES (?, ?, '', ?, ?)
		`, m.SessionID, m.UserID, fmtTime(now), fmtTime(now))
		if err != nil {
			return fmt.Errorf("ensure session: %w", err)
		}
	}

	var toolCallID any
	if m.ToolCallID != "" {
		toolCallID = m.ToolCallID
	}
	var model any
	if m.Model != "" {
		model = m.Model
	}

	_, err = tx.Exec(`
		INSERT INTO messages (id, session_id, user_id, role, content, tool_calls, tool_call_id, model, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SessionID, m.UserID, m.Role, m.Content, toolCalls, toolCallID, model, m.TokensUsed, fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if m.SessionID != "" {
		_, err = tx.Exec(`
			UPDATE sessions SET updated_at = ? WHERE id = ?
		`, fmtTime(now), m.SessionID)
		if err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
	}

	return tx.Commit()
}

// History returns the most recent limit messages of a session in
// chronological order. An empty sessionID reads the user's global
// history. A limit of zero or less returns an empty window.
func (s *Store) History(userID, sessionID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, user_id, role, content, tool_calls, tool_call_id, model, tokens_used, created_at
		FROM (
			SELECT * FROM messages
			WHERE user_id = ? AND session_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, userID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Messages returns every message of a session in chronological order.
func (s *Store) Messages(userID, sessionID string) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, user_id, role, content, tool_calls, tool_call_id, model, tokens_used, created_at
		FROM messages WHERE user_id = ? AND session_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Clear removes all messages in a session but keeps the session itself.
// An empty sessionID clears the user's entire history, named sessions
// included.
func (s *Store) Clear(userID, sessionID string) error {
	var err error
	if sessionID == "" {
		_, err = s.db.Exec(`DELETE FROM messages WHERE user_id = ?`, userID)
	} else {
		_, err = s.db.Exec(`
			DELETE FROM messages WHERE user_id = ? AND session_id = ?
		`, userID, sessionID)
	}
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func scanMessage(rows *sql.Rows) (*Message, error) {
	var m Message
	var toolCalls, toolCallID, model sql.NullString
	var created string
	err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.Content,
		&toolCalls, &toolCallID, &model, &m.TokensUsed, &created)
	if err != nil {
		return nil, err
	}
	if toolCalls.Valid && toolCalls.String != "" {
		if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
			return nil, fmt.Errorf("decode tool calls: %w", err)
		}
	}
	m.ToolCallID = toolCallID.String
	m.Model = model.String
	m.CreatedAt = parseTime(created)
	return &m, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// ErrNotFound reports a session lookup that matched nothing.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}
