package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Book reading statuses.
const (
	BookStatusToRead   = "to_read"
	BookStatusReading  = "reading"
	BookStatusFinished = "finished"
)

// Book tracks one book on the reading list.
type Book struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Status      string    `json:"status"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddBook adds a book to the reading list.
func (s *Store) AddBook(userID, title, author string, totalPages int) (*Book, error) {
	now := time.Now().UTC()
	b := &Book{
		ID:         newID(),
		UserID:     userID,
		Title:      title,
		Author:     author,
		Status:     BookStatusToRead,
		TotalPages: totalPages,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.Exec(`
		INSERT INTO books (id, user_id, title, author, status, current_page, total_pages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
	`, b.ID, b.UserID, b.Title, nullable(b.Author), b.Status, b.TotalPages, fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return b, nil
}

// UpdateBookProgress records the current page. Progress moves the book
// to reading; reaching the final page moves it to finished.
func (s *Store) UpdateBookProgress(userID, id string, currentPage int) (*Book, error) {
	b, err := s.GetBook(userID, id)
	if err != nil {
		return nil, err
	}
	b.CurrentPage = currentPage
	b.Status = BookStatusReading
	if b.TotalPages > 0 && currentPage >= b.TotalPages {
		b.Status = BookStatusFinished
		b.CurrentPage = b.TotalPages
	}
	b.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		UPDATE books SET status = ?, current_page = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, b.Status, b.CurrentPage, fmtTime(b.UpdatedAt), userID, id)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return b, nil
}

// GetBook retrieves a book by id, scoped to the user.
func (s *Store) GetBook(userID, id string) (*Book, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, author, status, current_page, total_pages, created_at, updated_at
		FROM books WHERE user_id = ? AND id = ?
	`, userID, id)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, notFound("book", id)
	}
	return b, err
}

// ListBooks returns the reading list, optionally filtered by status.
func (s *Store) ListBooks(userID, status string) ([]*Book, error) {
	query := `
		SELECT id, user_id, title, author, status, current_page, total_pages, created_at, updated_at
		FROM books WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func scanBook(sc rowScanner) (*Book, error) {
	var b Book
	var author sql.NullString
	var created, updated string
	err := sc.Scan(&b.ID, &b.UserID, &b.Title, &author, &b.Status, &b.CurrentPage, &b.TotalPages, &created, &updated)
	if err != nil {
		return nil, err
	}
	b.Author = author.String
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(updated)
	return &b, nil
}
