package tools

import (
	"context"
	"fmt"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerVentureTools() {
	r.mustRegister(&Tool{
		Name:        "create_venture",
		Description: "Create a venture: a long-running business or side effort that projects hang off.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":        map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		},
		Handler: r.handleCreateVenture,
	})

	r.mustRegister(&Tool{
		Name:        "update_venture_status",
		Description: "Set a venture's status to active, paused, or archived.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":     map[string]any{"type": "string", "description": "Venture id"},
				"status": map[string]any{"type": "string", "enum": []string{"active", "paused", "archived"}},
			},
			"required": []string{"id", "status"},
		},
		Handler: r.handleUpdateVentureStatus,
	})

	r.mustRegister(&Tool{
		Name:        "list_ventures",
		Description: "List ventures, optionally filtered by status.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{"type": "string", "enum": []string{"active", "paused", "archived"}},
			},
		},
		Handler: r.handleListVentures,
	})

	r.mustRegister(&Tool{
		Name:        "create_project",
		Description: "Create a project to group tasks, optionally under a venture.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":       map[string]any{"type": "string"},
				"venture_id": map[string]any{"type": "string", "description": "Optional parent venture"},
			},
			"required": []string{"name"},
		},
		Handler: r.handleCreateProject,
	})

	r.mustRegister(&Tool{
		Name:        "update_project_status",
		Description: "Set a project's status to active, paused, or archived.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":     map[string]any{"type": "string", "description": "Project id"},
				"status": map[string]any{"type": "string", "enum": []string{"active", "paused", "archived"}},
			},
			"required": []string{"id", "status"},
		},
		Handler: r.handleUpdateProjectStatus,
	})

	r.mustRegister(&Tool{
		Name:        "list_projects",
		Description: "List projects, optionally filtered by status.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{"type": "string", "enum": []string{"active", "paused", "archived"}},
			},
		},
		Handler: r.handleListProjects,
	})
}

func validStatus(s string) error {
	switch s {
	case records.StatusActive, records.StatusPaused, records.StatusArchived:
		return nil
	}
	return fmt.Errorf("status must be active, paused, or archived")
}

func (r *Registry) handleCreateVenture(ctx context.Context, userID string, args map[string]any) (any, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	description, _ := args["description"].(string)
	return r.store.CreateVenture(userID, name, description)
}

func (r *Registry) handleUpdateVentureStatus(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	status, _ := args["status"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := validStatus(status); err != nil {
		return nil, err
	}
	if err := r.store.UpdateVentureStatus(userID, id, status); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "status": status}, nil
}

func (r *Registry) handleListVentures(ctx context.Context, userID string, args map[string]any) (any, error) {
	status, _ := args["status"].(string)
	if status != "" {
		if err := validStatus(status); err != nil {
			return nil, err
		}
	}
	ventures, err := r.store.ListVentures(userID, status)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ventures": emptyIfNil(ventures)}, nil
}

func (r *Registry) handleCreateProject(ctx context.Context, userID string, args map[string]any) (any, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	ventureID, _ := args["venture_id"].(string)
	return r.store.CreateProject(userID, name, ventureID)
}

func (r *Registry) handleUpdateProjectStatus(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	status, _ := args["status"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := validStatus(status); err != nil {
		return nil, err
	}
	if err := r.store.UpdateProjectStatus(userID, id, status); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "status": status}, nil
}

func (r *Registry) handleListProjects(ctx context.Context, userID string, args map[string]any) (any, error) {
	status, _ := args["status"].(string)
	if status != "" {
		if err := validStatus(status); err != nil {
			return nil, err
		}
	}
	projects, err := r.store.ListProjects(userID, status)
	if err != nil {
		return nil, err
	}
	return map[string]any{"projects": emptyIfNil(projects)}, nil
}
