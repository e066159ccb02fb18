package tools

import (
	"context"
	"fmt"
)

func (r *Registry) registerCaptureTools() {
	r.mustRegister(&Tool{
		Name:        "capture_note",
		Description: "Capture a quick thought, idea, or piece of information to the inbox for later triage. Use when something is worth keeping but isn't a task yet.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The thing to capture, verbatim or lightly cleaned up",
				},
			},
			"required": []string{"content"},
		},
		Handler: r.handleCaptureNote,
	})

	r.mustRegister(&Tool{
		Name:        "list_captures",
		Description: "List recent inbox captures, newest first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
			},
		},
		Handler: r.handleListCaptures,
	})

	r.mustRegister(&Tool{
		Name:        "delete_capture",
		Description: "Delete a capture once it has been dealt with.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Capture id"},
			},
			"required": []string{"id"},
		},
		Handler: r.handleDeleteCapture,
	})
}

func (r *Registry) handleCaptureNote(ctx context.Context, userID string, args map[string]any) (any, error) {
	content, _ := args["content"].(string)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	return r.store.CreateCapture(userID, content, "chat")
}

func (r *Registry) handleListCaptures(ctx context.Context, userID string, args map[string]any) (any, error) {
	limit := intArg(args, "limit")
	captures, err := r.store.ListCaptures(userID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"captures": emptyIfNil(captures)}, nil
}

func (r *Registry) handleDeleteCapture(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := r.store.DeleteCapture(userID, id); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": id}, nil
}

// intArg reads an integer tool argument. JSON numbers decode as
// float64, so a plain type assertion would miss them.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
