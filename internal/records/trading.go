package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Trade sides.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade records one executed trade.
type Trade struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Notes      string    `json:"notes,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateTrade stores a trade. A zero ExecutedAt defaults to now.
func (s *Store) CreateTrade(t *Trade) (*Trade, error) {
	t.ID = newID()
	t.CreatedAt = time.Now().UTC()
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = t.CreatedAt
	}
	_, err := s.db.Exec(`
		INSERT INTO trades (id, user_id, symbol, side, quantity, price, notes, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Symbol, t.Side, t.Quantity, t.Price, nullable(t.Notes), fmtTime(t.ExecutedAt), fmtTime(t.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}
	return t, nil
}

// ListTrades returns recent trades, optionally filtered by symbol,
// newest execution first.
func (s *Store) ListTrades(userID, symbol string, limit int) ([]*Trade, error) {
	query := `
		SELECT id, user_id, symbol, side, quantity, price, notes, executed_at, created_at
		FROM trades WHERE user_id = ?`
	args := []any{userID}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY executed_at DESC LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		var t Trade
		var notes sql.NullString
		var executed, created string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &notes, &executed, &created); err != nil {
			return nil, err
		}
		t.Notes = notes.String
		t.ExecutedAt = parseTime(executed)
		t.CreatedAt = parseTime(created)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// TradingNote is a freeform journal entry about the market or strategy.
type TradingNote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTradingNote stores a journal entry.
func (s *Store) CreateTradingNote(userID, content string) (*TradingNote, error) {
	n := &TradingNote{
		ID:        newID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO trading_notes (id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`, n.ID, n.UserID, n.Content, fmtTime(n.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert trading note: %w", err)
	}
	return n, nil
}

// ListTradingNotes returns recent journal entries, newest first.
func (s *Store) ListTradingNotes(userID string, limit int) ([]*TradingNote, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, content, created_at
		FROM trading_notes WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query trading notes: %w", err)
	}
	defer rows.Close()

	var notes []*TradingNote
	for rows.Next() {
		var n TradingNote
		var created string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &created); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(created)
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}
