package prompts

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stewardhq/steward/internal/prefs"
	"github.com/stewardhq/steward/internal/records"
)

type fakeBrief struct {
	name    string
	content string
	err     error
}

func (b *fakeBrief) Name() string { return b.name }
func (b *fakeBrief) Generate(ctx context.Context, userID string) (string, error) {
	return b.content, b.err
}

func TestBuildIncludesPersonaAndDate(t *testing.T) {
	a := NewAssembler("", nil, nil)
	a.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }

	prompt := a.Build(context.Background(), "u1")
	if !strings.Contains(prompt, "You are Steward") {
		t.Error("prompt missing persona")
	}
	if !strings.Contains(prompt, "Monday, May 4, 2026") {
		t.Errorf("prompt missing formatted date:\n%s", prompt)
	}
}

func TestBuildIncludesCustomInstructions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "prefs.db")
	store, err := prefs.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	instructions := "Always answer in French."
	if _, err := store.Set("u1", prefs.Update{CustomInstructions: &instructions}); err != nil {
		t.Fatalf("Set(): %v", err)
	}

	a := NewAssembler("persona", store, nil)
	prompt := a.Build(context.Background(), "u1")
	if !strings.Contains(prompt, "Always answer in French.") {
		t.Errorf("prompt missing custom instructions:\n%s", prompt)
	}

	other := a.Build(context.Background(), "u2")
	if strings.Contains(other, "French") {
		t.Error("another user's instructions leaked into the prompt")
	}
}

func TestBuildBriefFailsOpen(t *testing.T) {
	a := NewAssembler("persona", nil, nil)
	a.AddBrief(&fakeBrief{name: "broken", err: errors.New("db gone")})
	a.AddBrief(&fakeBrief{name: "ok", content: "Section B"})
	a.AddBrief(&fakeBrief{name: "empty", content: ""})

	prompt := a.Build(context.Background(), "u1")
	if !strings.Contains(prompt, "Section B") {
		t.Error("healthy brief missing from prompt")
	}
	if strings.Contains(prompt, "db gone") {
		t.Error("brief error text leaked into prompt")
	}
}

func TestOpenTasksBrief(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "records.db")
	store, err := records.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	today := time.Now().UTC().Format("2006-01-02")
	if _, err := store.CreateTask(&records.Task{UserID: "u1", Title: "call the bank", DueDate: today}); err != nil {
		t.Fatalf("CreateTask(): %v", err)
	}

	b := NewOpenTasksBrief(store, 10)
	content, err := b.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(content, "call the bank") {
		t.Errorf("brief missing task:\n%s", content)
	}

	empty, err := b.Generate(context.Background(), "u2")
	if err != nil {
		t.Fatalf("Generate(u2) error: %v", err)
	}
	if empty != "" {
		t.Errorf("brief for user with no tasks = %q, want empty", empty)
	}
}

func TestSystemStatusBrief(t *testing.T) {
	b := NewSystemStatusBrief("claude-sonnet-4-5")
	content, err := b.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(content, "claude-sonnet-4-5") {
		t.Errorf("brief missing model name: %q", content)
	}
}
