package tools

import (
	"context"
	"fmt"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerTaskTools() {
	r.mustRegister(&Tool{
		Name:        "create_task",
		Description: "Create a to-do task. Use when the user asks to add, remember, or schedule something actionable.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short imperative title (e.g., 'Renew passport')",
				},
				"notes": map[string]any{
					"type":        "string",
					"description": "Optional details or context",
				},
				"priority": map[string]any{
					"type":        "string",
					"enum":        []string{"low", "medium", "high"},
					"description": "Priority (default medium)",
				},
				"due_date": map[string]any{
					"type":        "string",
					"description": "Optional due date, YYYY-MM-DD",
				},
				"project_id": map[string]any{
					"type":        "string",
					"description": "Optional project to attach the task to",
				},
			},
			"required": []string{"title"},
		},
		Handler: r.handleCreateTask,
	})

	r.mustRegister(&Tool{
		Name:        "update_task",
		Description: "Update fields of an existing task. Only the provided fields change.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":       map[string]any{"type": "string", "description": "Task id"},
				"title":    map[string]any{"type": "string"},
				"notes":    map[string]any{"type": "string"},
				"status":   map[string]any{"type": "string", "enum": []string{"open", "done"}},
				"priority": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				"due_date": map[string]any{"type": "string", "description": "YYYY-MM-DD, empty string clears it"},
			},
			"required": []string{"id"},
		},
		Handler: r.handleUpdateTask,
	})

	r.mustRegister(&Tool{
		Name:        "complete_task",
		Description: "Mark a task as done.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Task id"},
			},
			"required": []string{"id"},
		},
		Handler: r.handleCompleteTask,
	})

	r.mustRegister(&Tool{
		Name:        "delete_task",
		Description: "Delete a task permanently.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Task id"},
			},
			"required": []string{"id"},
		},
		Handler: r.handleDeleteTask,
	})

	r.mustRegister(&Tool{
		Name:        "get_today_tasks",
		Description: "Get open tasks due today plus anything overdue. Use for 'what's on my plate today'.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Date to check, YYYY-MM-DD (default today)",
				},
			},
		},
		Handler: r.handleTodayTasks,
	})

	r.mustRegister(&Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by status, priority, project, or due date.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status":     map[string]any{"type": "string", "enum": []string{"open", "done"}},
				"priority":   map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				"project_id": map[string]any{"type": "string"},
				"due_date":   map[string]any{"type": "string", "description": "Exact due date, YYYY-MM-DD"},
				"limit":      map[string]any{"type": "integer", "description": "Max results (default 50)"},
			},
		},
		Handler: r.handleListTasks,
	})
}

func (r *Registry) handleCreateTask(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Title     string `json:"title"`
		Notes     string `json:"notes"`
		Priority  string `json:"priority"`
		DueDate   string `json:"due_date"`
		ProjectID string `json:"project_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := validPriority(in.Priority); err != nil {
		return nil, err
	}
	return r.store.CreateTask(&records.Task{
		UserID:    userID,
		Title:     in.Title,
		Notes:     in.Notes,
		Priority:  in.Priority,
		DueDate:   in.DueDate,
		ProjectID: in.ProjectID,
	})
}

func (r *Registry) handleUpdateTask(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		ID       string  `json:"id"`
		Title    *string `json:"title"`
		Notes    *string `json:"notes"`
		Status   *string `json:"status"`
		Priority *string `json:"priority"`
		DueDate  *string `json:"due_date"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if in.Status != nil && *in.Status != records.TaskStatusOpen && *in.Status != records.TaskStatusDone {
		return nil, fmt.Errorf("status must be open or done")
	}
	if in.Priority != nil {
		if err := validPriority(*in.Priority); err != nil {
			return nil, err
		}
	}
	return r.store.UpdateTask(userID, in.ID, records.TaskUpdate{
		Title:    in.Title,
		Notes:    in.Notes,
		Status:   in.Status,
		Priority: in.Priority,
		DueDate:  in.DueDate,
	})
}

func (r *Registry) handleCompleteTask(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	return r.store.CompleteTask(userID, id)
}

func (r *Registry) handleDeleteTask(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := r.store.DeleteTask(userID, id); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": id}, nil
}

func (r *Registry) handleTodayTasks(ctx context.Context, userID string, args map[string]any) (any, error) {
	date, _ := args["date"].(string)
	if date == "" {
		date = today()
	}
	tasks, err := r.store.TodayTasks(userID, date)
	if err != nil {
		return nil, err
	}
	return map[string]any{"date": date, "tasks": emptyIfNil(tasks)}, nil
}

func (r *Registry) handleListTasks(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Status    string `json:"status"`
		Priority  string `json:"priority"`
		ProjectID string `json:"project_id"`
		DueDate   string `json:"due_date"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	tasks, err := r.store.ListTasks(userID, records.TaskFilter{
		Status:    in.Status,
		Priority:  in.Priority,
		ProjectID: in.ProjectID,
		DueOn:     in.DueDate,
		Limit:     in.Limit,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": emptyIfNil(tasks)}, nil
}

func validPriority(p string) error {
	switch p {
	case "", records.PriorityLow, records.PriorityMedium, records.PriorityHigh:
		return nil
	}
	return fmt.Errorf("priority must be low, medium, or high")
}

// emptyIfNil keeps empty lists as [] rather than null in tool results.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
