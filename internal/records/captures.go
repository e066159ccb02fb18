package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Capture is a quick inbox note captured for later triage.
type Capture struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCapture stores a new capture.
func (s *Store) CreateCapture(userID, content, source string) (*Capture, error) {
	c := &Capture{
		ID:        newID(),
		UserID:    userID,
		Content:   content,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO captures (id, user_id, content, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Content, nullable(c.Source), fmtTime(c.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert capture: %w", err)
	}
	return c, nil
}

// ListCaptures returns the most recent captures, newest first.
func (s *Store) ListCaptures(userID string, limit int) ([]*Capture, error) {
	limit = clampLimit(limit)
	rows, err := s.db.Query(`
		SELECT id, user_id, content, source, created_at
		FROM captures WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		var c Capture
		var source sql.NullString
		var created string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Content, &source, &created); err != nil {
			return nil, err
		}
		c.Source = source.String
		c.CreatedAt = parseTime(created)
		captures = append(captures, &c)
	}
	return captures, rows.Err()
}

// DeleteCapture removes a capture once it has been triaged.
func (s *Store) DeleteCapture(userID, id string) error {
	res, err := s.db.Exec(`DELETE FROM captures WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("capture", id)
	}
	return nil
}
