package tools

import (
	"context"
	"fmt"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerHealthTools() {
	r.mustRegister(&Tool{
		Name:        "log_workout",
		Description: "Log a completed workout (run, lift, yoga, ride, etc.).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Workout type (e.g., 'run', 'upper body lift')",
				},
				"value": map[string]any{
					"type":        "number",
					"description": "Primary measure: distance, duration, or total weight",
				},
				"unit": map[string]any{
					"type":        "string",
					"description": "Unit for value (e.g., km, min, kg)",
				},
				"notes": map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		},
		Handler: r.handleLogWorkout,
	})

	r.mustRegister(&Tool{
		Name:        "log_health_metric",
		Description: "Log a body or wellness metric such as weight, sleep hours, or resting heart rate.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Metric name (e.g., 'weight', 'sleep', 'resting_hr')",
				},
				"value": map[string]any{"type": "number"},
				"unit":  map[string]any{"type": "string", "description": "e.g., kg, hours, bpm"},
				"notes": map[string]any{"type": "string"},
			},
			"required": []string{"name", "value"},
		},
		Handler: r.handleLogHealthMetric,
	})

	r.mustRegister(&Tool{
		Name:        "list_health_entries",
		Description: "List recent workouts and health metrics, newest first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind": map[string]any{
					"type":        "string",
					"enum":        []string{"workout", "metric"},
					"description": "Filter by entry kind (default both)",
				},
				"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
			},
		},
		Handler: r.handleListHealthEntries,
	})

	r.mustRegister(&Tool{
		Name:        "log_meal",
		Description: "Log a meal with estimated calories and macros. Estimate sensibly from the description when the user doesn't give numbers.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":     map[string]any{"type": "string", "description": "What was eaten"},
				"calories": map[string]any{"type": "integer"},
				"protein":  map[string]any{"type": "number", "description": "grams"},
				"carbs":    map[string]any{"type": "number", "description": "grams"},
				"fat":      map[string]any{"type": "number", "description": "grams"},
			},
			"required": []string{"name"},
		},
		Handler: r.handleLogMeal,
	})

	r.mustRegister(&Tool{
		Name:        "get_nutrition_summary",
		Description: "Get total calories and macros for a day's logged meals.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Day to summarize, YYYY-MM-DD (default today)",
				},
			},
		},
		Handler: r.handleNutritionSummary,
	})
}

func (r *Registry) handleLogWorkout(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
		Notes string  `json:"notes"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return r.store.CreateHealthEntry(&records.HealthEntry{
		UserID: userID,
		Kind:   records.HealthKindWorkout,
		Name:   in.Name,
		Value:  in.Value,
		Unit:   in.Unit,
		Notes:  in.Notes,
	})
}

func (r *Registry) handleLogHealthMetric(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
		Notes string  `json:"notes"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return r.store.CreateHealthEntry(&records.HealthEntry{
		UserID: userID,
		Kind:   records.HealthKindMetric,
		Name:   in.Name,
		Value:  in.Value,
		Unit:   in.Unit,
		Notes:  in.Notes,
	})
}

func (r *Registry) handleListHealthEntries(ctx context.Context, userID string, args map[string]any) (any, error) {
	kind, _ := args["kind"].(string)
	if kind != "" && kind != records.HealthKindWorkout && kind != records.HealthKindMetric {
		return nil, fmt.Errorf("kind must be workout or metric")
	}
	entries, err := r.store.ListHealthEntries(userID, kind, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": emptyIfNil(entries)}, nil
}

func (r *Registry) handleLogMeal(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Name     string  `json:"name"`
		Calories int     `json:"calories"`
		Protein  float64 `json:"protein"`
		Carbs    float64 `json:"carbs"`
		Fat      float64 `json:"fat"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return r.store.CreateMeal(&records.Meal{
		UserID:   userID,
		Name:     in.Name,
		Calories: in.Calories,
		Protein:  in.Protein,
		Carbs:    in.Carbs,
		Fat:      in.Fat,
	})
}

func (r *Registry) handleNutritionSummary(ctx context.Context, userID string, args map[string]any) (any, error) {
	date, _ := args["date"].(string)
	if date == "" {
		date = today()
	}
	return r.store.NutritionForDay(userID, date)
}
