package records

import (
	"database/sql"
	"fmt"
	"time"
)

// DayLog is the journal entry for one calendar day. One entry per user
// per date; logging again updates the existing entry.
type DayLog struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Rating     int       `json:"rating,omitempty"`
	Highlights string    `json:"highlights,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LogDay records or updates the journal entry for a date.
func (s *Store) LogDay(userID, date string, rating int, highlights string) (*DayLog, error) {
	now := time.Now().UTC()
	id := newID()
	_, err := s.db.Exec(`
		INSERT INTO day_logs (id, user_id, date, rating, highlights, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			rating = excluded.rating,
			highlights = excluded.highlights,
			updated_at = excluded.updated_at
	`, id, userID, date, rating, nullable(highlights), fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("upsert day log: %w", err)
	}
	return s.GetDay(userID, date)
}

// GetDay retrieves the journal entry for a date.
func (s *Store) GetDay(userID, date string) (*DayLog, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, date, rating, highlights, created_at, updated_at
		FROM day_logs WHERE user_id = ? AND date = ?
	`, userID, date)

	var d DayLog
	var rating sql.NullInt64
	var highlights sql.NullString
	var created, updated string
	err := row.Scan(&d.ID, &d.UserID, &d.Date, &rating, &highlights, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, notFound("day log", date)
	}
	if err != nil {
		return nil, err
	}
	d.Rating = int(rating.Int64)
	d.Highlights = highlights.String
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

// Ritual is a named daily habit check for one date.
type Ritual struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// LogRitual records whether a ritual was completed on a date. Logging
// the same ritual again for the same date overwrites the earlier value.
func (s *Store) LogRitual(userID, date, name string, completed bool) (*Ritual, error) {
	now := time.Now().UTC()
	r := &Ritual{
		ID:        newID(),
		UserID:    userID,
		Date:      date,
		Name:      name,
		Completed: completed,
		CreatedAt: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO rituals (id, user_id, date, name, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date, name) DO UPDATE SET
			completed = excluded.completed
	`, r.ID, r.UserID, r.Date, r.Name, r.Completed, fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("upsert ritual: %w", err)
	}
	return r, nil
}

// RitualsForDay returns all ritual checks recorded for a date.
func (s *Store) RitualsForDay(userID, date string) ([]*Ritual, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, date, name, completed, created_at
		FROM rituals WHERE user_id = ? AND date = ?
		ORDER BY name ASC
	`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("query rituals: %w", err)
	}
	defer rows.Close()

	var rituals []*Ritual
	for rows.Next() {
		var r Ritual
		var created string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Name, &r.Completed, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(created)
		rituals = append(rituals, &r)
	}
	return rituals, rows.Err()
}
