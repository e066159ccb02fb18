package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Task statuses and priorities. Unknown values are rejected at the
// tool layer; the store trusts its callers.
const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a single to-do item.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     string     `json:"due_date,omitempty"` // YYYY-MM-DD
	ProjectID   string     `json:"project_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TaskFilter narrows ListTasks results. Zero values mean "any".
type TaskFilter struct {
	Status    string
	Priority  string
	ProjectID string
	DueOn     string // YYYY-MM-DD
	Limit     int
}

// CreateTask inserts a new task and returns it with id and timestamps set.
func (s *Store) CreateTask(t *Task) (*Task, error) {
	now := time.Now().UTC()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = TaskStatusOpen
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, user_id, title, notes, status, priority, due_date, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Title, t.Notes, t.Status, t.Priority, nullable(t.DueDate), nullable(t.ProjectID), fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// GetTask retrieves a task by id, scoped to the user.
func (s *Store) GetTask(userID, id string) (*Task, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, notes, status, priority, due_date, project_id, created_at, updated_at, completed_at
		FROM tasks WHERE user_id = ? AND id = ?
	`, userID, id)
	t, err := scanTaskFrom(row)
	if err == sql.ErrNoRows {
		return nil, notFound("task", id)
	}
	return t, err
}

// TaskUpdate holds optional field changes; nil fields are left untouched.
type TaskUpdate struct {
	Title    *string
	Notes    *string
	Status   *string
	Priority *string
	DueDate  *string
}

// UpdateTask applies the given changes and returns the updated task.
func (s *Store) UpdateTask(userID, id string, upd TaskUpdate) (*Task, error) {
	t, err := s.GetTask(userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Notes != nil {
		t.Notes = *upd.Notes
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		t.DueDate = *upd.DueDate
	}

	now := time.Now().UTC()
	t.UpdatedAt = now

	var completed any
	if t.Status == TaskStatusDone {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		completed = fmtTime(*t.CompletedAt)
	} else {
		t.CompletedAt = nil
	}

	_, err = s.db.Exec(`
		UPDATE tasks SET title = ?, notes = ?, status = ?, priority = ?, due_date = ?, updated_at = ?, completed_at = ?
		WHERE user_id = ? AND id = ?
	`, t.Title, t.Notes, t.Status, t.Priority, nullable(t.DueDate), fmtTime(now), completed, userID, id)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// CompleteTask marks a task done.
func (s *Store) CompleteTask(userID, id string) (*Task, error) {
	done := TaskStatusDone
	return s.UpdateTask(userID, id, TaskUpdate{Status: &done})
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(userID, id string) error {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return notFound("task", id)
	}
	return nil
}

// ListTasks returns the user's tasks matching the filter, most recently
// updated first.
func (s *Store) ListTasks(userID string, f TaskFilter) ([]*Task, error) {
	query := `
		SELECT id, user_id, title, notes, status, priority, due_date, project_id, created_at, updated_at, completed_at
		FROM tasks WHERE user_id = ?`
	args := []any{userID}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, f.Priority)
	}
	if f.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, f.ProjectID)
	}
	if f.DueOn != "" {
		query += ` AND due_date = ?`
		args = append(args, f.DueOn)
	}

	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, clampLimit(f.Limit))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTaskFrom(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TodayTasks returns open tasks due on the given date plus overdue open
// tasks, ordered by due date.
func (s *Store) TodayTasks(userID, date string) ([]*Task, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, notes, status, priority, due_date, project_id, created_at, updated_at, completed_at
		FROM tasks
		WHERE user_id = ? AND status = ? AND due_date IS NOT NULL AND due_date <= ?
		ORDER BY due_date ASC, priority DESC
	`, userID, TaskStatusOpen, date)
	if err != nil {
		return nil, fmt.Errorf("query today tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTaskFrom(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskFrom(sc rowScanner) (*Task, error) {
	var t Task
	var notes, due, project, completed sql.NullString
	var created, updated string

	err := sc.Scan(&t.ID, &t.UserID, &t.Title, &notes, &t.Status, &t.Priority,
		&due, &project, &created, &updated, &completed)
	if err != nil {
		return nil, err
	}

	t.Notes = notes.String
	t.DueDate = due.String
	t.ProjectID = project.String
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	if completed.Valid {
		ct := parseTime(completed.String)
		t.CompletedAt = &ct
	}
	return &t, nil
}

