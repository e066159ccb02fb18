package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerDayTools() {
	r.mustRegister(&Tool{
		Name:        "log_day",
		Description: "Record or update the day's journal entry: an overall rating and highlights. Logging the same day again replaces the earlier entry.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Day to log, YYYY-MM-DD (default today)",
				},
				"rating": map[string]any{
					"type":        "integer",
					"description": "How the day went, 1-10",
				},
				"highlights": map[string]any{
					"type":        "string",
					"description": "What stood out about the day",
				},
			},
		},
		Handler: r.handleLogDay,
	})

	r.mustRegister(&Tool{
		Name:        "get_day",
		Description: "Get a day's journal entry and ritual checks.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Day to fetch, YYYY-MM-DD (default today)",
				},
			},
		},
		Handler: r.handleGetDay,
	})

	r.mustRegister(&Tool{
		Name:        "log_ritual",
		Description: "Record whether a daily ritual (meditation, journaling, stretching, ...) was done on a day.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "Ritual name"},
				"completed": map[string]any{
					"type":        "boolean",
					"description": "Whether it was done (default true)",
				},
				"date": map[string]any{
					"type":        "string",
					"description": "Day, YYYY-MM-DD (default today)",
				},
			},
			"required": []string{"name"},
		},
		Handler: r.handleLogRitual,
	})
}

func (r *Registry) handleLogDay(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Date       string `json:"date"`
		Rating     int    `json:"rating"`
		Highlights string `json:"highlights"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Date == "" {
		in.Date = today()
	}
	if in.Rating < 0 || in.Rating > 10 {
		return nil, fmt.Errorf("rating must be between 1 and 10")
	}
	return r.store.LogDay(userID, in.Date, in.Rating, in.Highlights)
}

func (r *Registry) handleGetDay(ctx context.Context, userID string, args map[string]any) (any, error) {
	date, _ := args["date"].(string)
	if date == "" {
		date = today()
	}

	day, err := r.store.GetDay(userID, date)
	if err != nil {
		var nf *records.ErrNotFound
		if !errors.As(err, &nf) {
			return nil, err
		}
		day = nil // no entry yet is fine for a whole-day view
	}
	rituals, err := r.store.RitualsForDay(userID, date)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"date":    date,
		"log":     day,
		"rituals": emptyIfNil(rituals),
	}, nil
}

func (r *Registry) handleLogRitual(ctx context.Context, userID string, args map[string]any) (any, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	date, _ := args["date"].(string)
	if date == "" {
		date = today()
	}
	completed := true
	if v, ok := args["completed"].(bool); ok {
		completed = v
	}
	return r.store.LogRitual(userID, date, name, completed)
}
