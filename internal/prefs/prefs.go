// Package prefs stores per-user assistant preferences: the model to
// use, sampling temperature, output token cap, and freeform custom
// instructions injected into the system prompt.
package prefs

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Prefs holds one user's effective preferences. Zero-valued fields mean
// "use the server default".
type Prefs struct {
	UserID             string    `json:"user_id"`
	Model              string    `json:"model,omitempty"`
	Temperature        *float64  `json:"temperature,omitempty"`
	MaxTokens          int       `json:"max_tokens,omitempty"`
	CustomInstructions string    `json:"custom_instructions,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Store is the SQLite-backed preferences store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the preferences database at dbPath.
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

// NewStoreWithDB creates a preferences store on an existing connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_prefs (
		user_id TEXT PRIMARY KEY,
		model TEXT,
		temperature REAL,
		max_tokens INTEGER,
		custom_instructions TEXT,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the user's preferences. An unknown user gets the zero
// value with the user id filled in; callers treat zero fields as
// server defaults.
func (s *Store) Get(userID string) (*Prefs, error) {
	row := s.db.QueryRow(`
		SELECT user_id, model, temperature, max_tokens, custom_instructions, updated_at
		FROM user_prefs WHERE user_id = ?
	`, userID)

	var p Prefs
	var model, instructions sql.NullString
	var temperature sql.NullFloat64
	var maxTokens sql.NullInt64
	var updated string
	err := row.Scan(&p.UserID, &model, &temperature, &maxTokens, &instructions, &updated)
	if err == sql.ErrNoRows {
		return &Prefs{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query prefs: %w", err)
	}

	p.Model = model.String
	if temperature.Valid {
		t := temperature.Float64
		p.Temperature = &t
	}
	p.MaxTokens = int(maxTokens.Int64)
	p.CustomInstructions = instructions.String
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &p, nil
}

// Update describes preference changes; nil fields are left untouched.
// Pointing a string field at the empty string (or MaxTokens at zero)
// resets it to the server default.
type Update struct {
	Model              *string
	Temperature        *float64
	MaxTokens          *int
	CustomInstructions *string
}

// Set applies the non-nil fields of upd, creating the row on first use.
func (s *Store) Set(userID string, upd Update) (*Prefs, error) {
	p, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if upd.Model != nil {
		p.Model = *upd.Model
	}
	if upd.Temperature != nil {
		p.Temperature = upd.Temperature
	}
	if upd.MaxTokens != nil {
		p.MaxTokens = *upd.MaxTokens
	}
	if upd.CustomInstructions != nil {
		p.CustomInstructions = *upd.CustomInstructions
	}
	p.UpdatedAt = time.Now().UTC()

	var temperature any
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	var model, instructions, maxTokens any
	if p.Model != "" {
		model = p.Model
	}
	if p.CustomInstructions != "" {
		instructions = p.CustomInstructions
	}
	if p.MaxTokens != 0 {
		maxTokens = p.MaxTokens
	}

	_, err = s.db.Exec(`
		INSERT INTO user_prefs (user_id, model, temperature, max_tokens, custom_instructions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			model = excluded.model,
			temperature = excluded.temperature,
			max_tokens = excluded.max_tokens,
			custom_instructions = excluded.custom_instructions,
			updated_at = excluded.updated_at
	`, userID, model, temperature, maxTokens, instructions, p.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("upsert prefs: %w", err)
	}
	return p, nil
}
