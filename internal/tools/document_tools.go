package tools

import (
	"context"
	"fmt"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerDocumentTools() {
	r.mustRegister(&Tool{
		Name:        "create_document",
		Description: "Create a markdown document or note. Use for anything longer-lived than an inbox capture: reference notes, plans, drafts.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":   map[string]any{"type": "string"},
				"content": map[string]any{"type": "string", "description": "Markdown body"},
				"tags":    map[string]any{"type": "string", "description": "Comma-separated tags"},
			},
			"required": []string{"title"},
		},
		Handler: r.handleCreateDocument,
	})

	r.mustRegister(&Tool{
		Name:        "update_document",
		Description: "Update a document's title, content, or tags. Only the provided fields change.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":      map[string]any{"type": "string", "description": "Document id"},
				"title":   map[string]any{"type": "string"},
				"content": map[string]any{"type": "string", "description": "Replaces the whole body"},
				"tags":    map[string]any{"type": "string"},
			},
			"required": []string{"id"},
		},
		Handler: r.handleUpdateDocument,
	})

	r.mustRegister(&Tool{
		Name:        "get_document",
		Description: "Fetch a document by id, including its full content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Document id"},
			},
			"required": []string{"id"},
		},
		Handler: r.handleGetDocument,
	})

	r.mustRegister(&Tool{
		Name:        "search_documents",
		Description: "Search documents by substring across title, content, and tags.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
			},
			"required": []string{"query"},
		},
		Handler: r.handleSearchDocuments,
	})
}

func (r *Registry) handleCreateDocument(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Tags    string `json:"tags"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	return r.store.CreateDocument(userID, in.Title, in.Content, in.Tags)
}

func (r *Registry) handleUpdateDocument(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		ID      string  `json:"id"`
		Title   *string `json:"title"`
		Content *string `json:"content"`
		Tags    *string `json:"tags"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	return r.store.UpdateDocument(userID, in.ID, records.DocumentUpdate{
		Title:   in.Title,
		Content: in.Content,
		Tags:    in.Tags,
	})
}

func (r *Registry) handleGetDocument(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	return r.store.GetDocument(userID, id)
}

func (r *Registry) handleSearchDocuments(ctx context.Context, userID string, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	docs, err := r.store.SearchDocuments(userID, query, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"documents": emptyIfNil(docs)}, nil
}
