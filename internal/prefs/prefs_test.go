package prefs

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "prefs_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetUnknownUser(t *testing.T) {
	s := testStore(t)

	p, err := s.Get("nobody")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if p.UserID != "nobody" {
		t.Errorf("UserID = %q", p.UserID)
	}
	if p.Model != "" || p.Temperature != nil || p.MaxTokens != 0 {
		t.Errorf("unknown user prefs = %+v, want zero values", p)
	}
}

func TestSetPartialUpdate(t *testing.T) {
	s := testStore(t)

	model := "gpt-4o"
	if _, err := s.Set("u1", Update{Model: &model}); err != nil {
		t.Fatalf("Set(model) error: %v", err)
	}

	temp := 0.3
	if _, err := s.Set("u1", Update{Temperature: &temp}); err != nil {
		t.Fatalf("Set(temperature) error: %v", err)
	}

	p, err := s.Get("u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if p.Model != "gpt-4o" {
		t.Errorf("Model = %q, partial update clobbered it", p.Model)
	}
	if p.Temperature == nil || *p.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", p.Temperature)
	}
}

func TestSetResetToDefault(t *testing.T) {
	s := testStore(t)

	model := "gpt-4o"
	instructions := "be terse"
	if _, err := s.Set("u1", Update{Model: &model, CustomInstructions: &instructions}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	empty := ""
	if _, err := s.Set("u1", Update{Model: &empty}); err != nil {
		t.Fatalf("Set(reset) error: %v", err)
	}

	p, err := s.Get("u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if p.Model != "" {
		t.Errorf("Model = %q after reset, want empty", p.Model)
	}
	if p.CustomInstructions != "be terse" {
		t.Errorf("CustomInstructions = %q, reset clobbered it", p.CustomInstructions)
	}
}
