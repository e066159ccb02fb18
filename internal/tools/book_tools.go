package tools

import (
	"context"
	"fmt"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerBookTools() {
	r.mustRegister(&Tool{
		Name:        "add_book",
		Description: "Add a book to the reading list.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":       map[string]any{"type": "string"},
				"author":      map[string]any{"type": "string"},
				"total_pages": map[string]any{"type": "integer"},
			},
			"required": []string{"title"},
		},
		Handler: r.handleAddBook,
	})

	r.mustRegister(&Tool{
		Name:        "update_book_progress",
		Description: "Record the current page of a book. Reaching the last page marks it finished.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":           map[string]any{"type": "string", "description": "Book id"},
				"current_page": map[string]any{"type": "integer"},
			},
			"required": []string{"id", "current_page"},
		},
		Handler: r.handleUpdateBookProgress,
	})

	r.mustRegister(&Tool{
		Name:        "list_books",
		Description: "List the reading list, optionally filtered by status.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type": "string",
					"enum": []string{"to_read", "reading", "finished"},
				},
			},
		},
		Handler: r.handleListBooks,
	})
}

func (r *Registry) handleAddBook(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Title      string `json:"title"`
		Author     string `json:"author"`
		TotalPages int    `json:"total_pages"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	return r.store.AddBook(userID, in.Title, in.Author, in.TotalPages)
}

func (r *Registry) handleUpdateBookProgress(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	page := intArg(args, "current_page")
	if page < 0 {
		return nil, fmt.Errorf("current_page must not be negative")
	}
	return r.store.UpdateBookProgress(userID, id, page)
}

func (r *Registry) handleListBooks(ctx context.Context, userID string, args map[string]any) (any, error) {
	status, _ := args["status"].(string)
	switch status {
	case "", records.BookStatusToRead, records.BookStatusReading, records.BookStatusFinished:
	default:
		return nil, fmt.Errorf("status must be to_read, reading, or finished")
	}
	books, err := r.store.ListBooks(userID, status)
	if err != nil {
		return nil, err
	}
	return map[string]any{"books": emptyIfNil(books)}, nil
}
