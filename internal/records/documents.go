package records

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Document is a markdown note or reference document.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      string    `json:"tags,omitempty"` // comma-separated
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDocument stores a new document.
func (s *Store) CreateDocument(userID, title, content, tags string) (*Document, error) {
	now := time.Now().UTC()
	d := &Document{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (id, user_id, title, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.UserID, d.Title, d.Content, nullable(d.Tags), fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

// GetDocument retrieves a document by id, scoped to the user.
func (s *Store) GetDocument(userID, id string) (*Document, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, content, tags, created_at, updated_at
		FROM documents WHERE user_id = ? AND id = ?
	`, userID, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, notFound("document", id)
	}
	return d, err
}

// DocumentUpdate holds optional field changes; nil fields are left untouched.
type DocumentUpdate struct {
	Title   *string
	Content *string
	Tags    *string
}

// UpdateDocument applies the non-nil fields of upd.
func (s *Store) UpdateDocument(userID, id string, upd DocumentUpdate) (*Document, error) {
	d, err := s.GetDocument(userID, id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Content != nil {
		d.Content = *upd.Content
	}
	if upd.Tags != nil {
		d.Tags = *upd.Tags
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		UPDATE documents SET title = ?, content = ?, tags = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, d.Title, d.Content, nullable(d.Tags), fmtTime(d.UpdatedAt), userID, id)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return d, nil
}

// SearchDocuments matches title, content, or tags against a substring
// query, most recently updated first.
func (s *Store) SearchDocuments(userID, query string, limit int) ([]*Document, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.Query(`
		SELECT id, user_id, title, content, tags, created_at, updated_at
		FROM documents
		WHERE user_id = ? AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')
		ORDER BY updated_at DESC LIMIT ?
	`, userID, pattern, pattern, pattern, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(userID, id string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("document", id)
	}
	return nil
}

func scanDocument(sc rowScanner) (*Document, error) {
	var d Document
	var tags sql.NullString
	var created, updated string
	err := sc.Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &tags, &created, &updated)
	if err != nil {
		return nil, err
	}
	d.Tags = tags.String
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
