package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Venture and project statuses.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Venture is a long-running business or side effort. Projects can be
// attached to a venture.
type Venture struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateVenture stores a new venture.
func (s *Store) CreateVenture(userID, name, description string) (*Venture, error) {
	now := time.Now().UTC()
	v := &Venture{
		ID:          newID(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.Exec(`
		INSERT INTO ventures (id, user_id, name, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.UserID, v.Name, nullable(v.Description), v.Status, fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert venture: %w", err)
	}
	return v, nil
}

// UpdateVentureStatus changes a venture's status.
func (s *Store) UpdateVentureStatus(userID, id, status string) error {
	res, err := s.db.Exec(`
		UPDATE ventures SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?
	`, status, fmtTime(time.Now().UTC()), userID, id)
	if err != nil {
		return fmt.Errorf("update venture: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("venture", id)
	}
	return nil
}

// ListVentures returns ventures, optionally filtered by status.
func (s *Store) ListVentures(userID, status string) ([]*Venture, error) {
	query := `
		SELECT id, user_id, name, description, status, created_at, updated_at
		FROM ventures WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ventures: %w", err)
	}
	defer rows.Close()

	var ventures []*Venture
	for rows.Next() {
		var v Venture
		var desc sql.NullString
		var created, updated string
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &desc, &v.Status, &created, &updated); err != nil {
			return nil, err
		}
		v.Description = desc.String
		v.CreatedAt = parseTime(created)
		v.UpdatedAt = parseTime(updated)
		ventures = append(ventures, &v)
	}
	return ventures, rows.Err()
}

// Project groups tasks, optionally under a venture.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	VentureID string    `json:"venture_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProject stores a new project.
func (s *Store) CreateProject(userID, name, ventureID string) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		Status:    StatusActive,
		VentureID: ventureID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO projects (id, user_id, name, status, venture_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.Name, p.Status, nullable(p.VentureID), fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// UpdateProjectStatus changes a project's status.
func (s *Store) UpdateProjectStatus(userID, id, status string) error {
	res, err := s.db.Exec(`
		UPDATE projects SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?
	`, status, fmtTime(time.Now().UTC()), userID, id)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("project", id)
	}
	return nil
}

// ListProjects returns projects, optionally filtered by status.
func (s *Store) ListProjects(userID, status string) ([]*Project, error) {
	query := `
		SELECT id, user_id, name, status, venture_id, created_at, updated_at
		FROM projects WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var venture sql.NullString
		var created, updated string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Status, &venture, &created, &updated); err != nil {
			return nil, err
		}
		p.VentureID = venture.String
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(updated)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}
