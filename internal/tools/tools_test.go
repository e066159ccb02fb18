package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stewardhq/steward/internal/records"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tools_test.db")
	store, err := records.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRegistry(store, nil)
}

func decodeResult(t *testing.T, raw string) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("tool result is not JSON: %v\n%s", err, raw)
	}
	return result
}

func TestInvokeUnknownTool(t *testing.T) {
	r := testRegistry(t)

	result := decodeResult(t, r.Invoke(context.Background(), "u1", "fly_to_moon", nil))
	if msg, _ := result["error"].(string); !strings.Contains(msg, "unknown tool") {
		t.Errorf("error = %q, want unknown tool", msg)
	}
}

func TestInvokeMissingRequiredArg(t *testing.T) {
	r := testRegistry(t)

	result := decodeResult(t, r.Invoke(context.Background(), "u1", "create_task", map[string]any{}))
	if msg, _ := result["error"].(string); !strings.Contains(msg, "title is required") {
		t.Errorf("error = %q, want title is required", msg)
	}
}

func TestInvokeBadArgumentType(t *testing.T) {
	r := testRegistry(t)

	result := decodeResult(t, r.Invoke(context.Background(), "u1", "create_task", map[string]any{
		"title": 42,
	}))
	if msg, _ := result["error"].(string); !strings.Contains(msg, "invalid arguments") {
		t.Errorf("error = %q, want invalid arguments", msg)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	r := testRegistry(t)
	err := r.Register(&Tool{
		Name:        "explode",
		Description: "always panics",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			panic("boom")
		},
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	result := decodeResult(t, r.Invoke(context.Background(), "u1", "explode", nil))
	if msg, _ := result["error"].(string); !strings.Contains(msg, "boom") {
		t.Errorf("error = %q, want panic message", msg)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := testRegistry(t)

	err := r.Register(&Tool{Name: "create_task"})
	if err == nil {
		t.Error("Register(duplicate) should fail")
	}
}

func TestDefinitionsShape(t *testing.T) {
	r := testRegistry(t)

	defs := r.Definitions()
	if len(defs) < 30 {
		t.Fatalf("Definitions() = %d tools, expected the full catalog", len(defs))
	}
	for _, d := range defs {
		if d["type"] != "function" {
			t.Fatalf("definition type = %v", d["type"])
		}
		fn, ok := d["function"].(map[string]any)
		if !ok {
			t.Fatalf("definition missing function block: %v", d)
		}
		for _, key := range []string{"name", "description", "parameters"} {
			if fn[key] == nil {
				t.Errorf("tool %v missing %s", fn["name"], key)
			}
		}
	}

	// Sorted by name for deterministic requests.
	names := r.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestCreateThenReadVisibility(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	created := decodeResult(t, r.Invoke(ctx, "u1", "create_task", map[string]any{
		"title":    "water the plants",
		"due_date": "2026-04-01",
	}))
	if created["error"] != nil {
		t.Fatalf("create_task error: %v", created["error"])
	}
	if created["status"] != "open" {
		t.Errorf("status = %v, want open default", created["status"])
	}

	listed := decodeResult(t, r.Invoke(ctx, "u1", "list_tasks", map[string]any{"status": "open"}))
	tasks, _ := listed["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("list_tasks sees %d tasks after create", len(tasks))
	}
	first, _ := tasks[0].(map[string]any)
	if first["id"] != created["id"] {
		t.Errorf("listed id %v != created id %v", first["id"], created["id"])
	}
}

func TestToolsScopedToUser(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	if result := decodeResult(t, r.Invoke(ctx, "u1", "capture_note", map[string]any{"content": "secret"})); result["error"] != nil {
		t.Fatalf("capture_note error: %v", result["error"])
	}

	other := decodeResult(t, r.Invoke(ctx, "u2", "list_captures", nil))
	captures, _ := other["captures"].([]any)
	if len(captures) != 0 {
		t.Errorf("user u2 sees %d of u1's captures", len(captures))
	}
}

func TestTodayTasksDefaultsDate(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	result := decodeResult(t, r.Invoke(ctx, "u1", "get_today_tasks", nil))
	if result["error"] != nil {
		t.Fatalf("get_today_tasks error: %v", result["error"])
	}
	if date, _ := result["date"].(string); date != today() {
		t.Errorf("date = %q, want today", date)
	}
	if result["tasks"] == nil {
		t.Error("tasks should be an empty list, not null")
	}
}

func TestLogTradeValidation(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	result := decodeResult(t, r.Invoke(ctx, "u1", "log_trade", map[string]any{
		"symbol":   "AAPL",
		"side":     "hold",
		"quantity": float64(10),
		"price":    190.5,
	}))
	if msg, _ := result["error"].(string); !strings.Contains(msg, "side must be") {
		t.Errorf("error = %q, want side validation", msg)
	}
}

func TestLogDayThenGetDay(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	logged := decodeResult(t, r.Invoke(ctx, "u1", "log_day", map[string]any{
		"date":       "2026-05-01",
		"rating":     float64(8),
		"highlights": "shipped the release",
	}))
	if logged["error"] != nil {
		t.Fatalf("log_day error: %v", logged["error"])
	}

	if result := decodeResult(t, r.Invoke(ctx, "u1", "log_ritual", map[string]any{
		"name": "meditation",
		"date": "2026-05-01",
	})); result["error"] != nil {
		t.Fatalf("log_ritual error: %v", result["error"])
	}

	day := decodeResult(t, r.Invoke(ctx, "u1", "get_day", map[string]any{"date": "2026-05-01"}))
	log, _ := day["log"].(map[string]any)
	if log == nil || log["rating"] != float64(8) {
		t.Errorf("get_day log = %v", day["log"])
	}
	rituals, _ := day["rituals"].([]any)
	if len(rituals) != 1 {
		t.Errorf("get_day rituals = %d, want 1", len(rituals))
	}
}
