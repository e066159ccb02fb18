package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Health entry kinds.
const (
	HealthKindWorkout = "workout"
	HealthKindMetric  = "metric"
)

// HealthEntry records a workout or a body metric (weight, sleep hours,
// resting heart rate and so on).
type HealthEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Value     float64   `json:"value,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateHealthEntry stores a workout or metric entry.
func (s *Store) CreateHealthEntry(e *HealthEntry) (*HealthEntry, error) {
	e.ID = newID()
	e.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO health_entries (id, user_id, kind, name, value, unit, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Kind, e.Name, e.Value, nullable(e.Unit), nullable(e.Notes), fmtTime(e.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert health entry: %w", err)
	}
	return e, nil
}

// ListHealthEntries returns recent entries, optionally filtered by kind,
// newest first.
func (s *Store) ListHealthEntries(userID, kind string, limit int) ([]*HealthEntry, error) {
	query := `
		SELECT id, user_id, kind, name, value, unit, notes, created_at
		FROM health_entries WHERE user_id = ?`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query health entries: %w", err)
	}
	defer rows.Close()

	var entries []*HealthEntry
	for rows.Next() {
		var e HealthEntry
		var value sql.NullFloat64
		var unit, notes sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Name, &value, &unit, &notes, &created); err != nil {
			return nil, err
		}
		e.Value = value.Float64
		e.Unit = unit.String
		e.Notes = notes.String
		e.CreatedAt = parseTime(created)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Meal records one logged meal with macro estimates.
type Meal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMeal stores a meal entry.
func (s *Store) CreateMeal(m *Meal) (*Meal, error) {
	m.ID = newID()
	m.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO meals (id, user_id, name, calories, protein, carbs, fat, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.UserID, m.Name, m.Calories, m.Protein, m.Carbs, m.Fat, fmtTime(m.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert meal: %w", err)
	}
	return m, nil
}

// NutritionSummary aggregates meals logged on a single day.
type NutritionSummary struct {
	Date     string  `json:"date"`
	Meals    int     `json:"meals"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// NutritionForDay sums calories and macros for meals created on the
// given date (YYYY-MM-DD, UTC).
func (s *Store) NutritionForDay(userID, date string) (*NutritionSummary, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(calories), 0),
			COALESCE(SUM(protein), 0),
			COALESCE(SUM(carbs), 0),
			COALESCE(SUM(fat), 0)
		FROM meals WHERE user_id = ? AND created_at >= ? AND created_at < ?
	`, userID, date+"T00:00:00Z", nextDay(date)+"T00:00:00Z")

	sum := &NutritionSummary{Date: date}
	if err := row.Scan(&sum.Meals, &sum.Calories, &sum.Protein, &sum.Carbs, &sum.Fat); err != nil {
		return nil, fmt.Errorf("sum nutrition: %w", err)
	}
	return sum, nil
}

func nextDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}
