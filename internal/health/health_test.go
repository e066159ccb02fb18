package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testMonitor() *Monitor {
	return NewMonitor(slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		ProbeTimeout: 50 * time.Millisecond,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestMonitorBecomesReady(t *testing.T) {
	m := testMonitor()
	defer m.Stop()

	m.Watch(context.Background(), "anthropic", func(ctx context.Context) error { return nil })

	waitFor(t, func() bool { return m.Snapshot()["anthropic"].Ready })
	if !m.Ready() {
		t.Error("Ready() = false with a healthy provider")
	}
}

func TestMonitorRetriesUntilSuccess(t *testing.T) {
	m := testMonitor()
	defer m.Stop()

	var calls atomic.Int32
	m.Watch(context.Background(), "openai", func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	waitFor(t, func() bool { return m.Snapshot()["openai"].Ready })
	if calls.Load() < 3 {
		t.Errorf("probe calls = %d, want at least 3", calls.Load())
	}
}

func TestMonitorReportsDownProvider(t *testing.T) {
	m := testMonitor()
	defer m.Stop()

	var healthy atomic.Bool
	healthy.Store(true)
	m.Watch(context.Background(), "anthropic", func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("upstream gone")
	})
	waitFor(t, func() bool { return m.Snapshot()["anthropic"].Ready })

	healthy.Store(false)
	waitFor(t, func() bool { return !m.Snapshot()["anthropic"].Ready })

	if m.Ready() {
		t.Error("Ready() = true with a down provider")
	}
	if got := m.Snapshot()["anthropic"].LastError; got != "upstream gone" {
		t.Errorf("LastError = %q", got)
	}
}

func TestMonitorEmptyIsReady(t *testing.T) {
	m := testMonitor()
	if !m.Ready() {
		t.Error("empty monitor should report ready")
	}
}

func TestStopTerminatesWatchers(t *testing.T) {
	m := testMonitor()
	m.Watch(context.Background(), "anthropic", func(ctx context.Context) error { return nil })
	waitFor(t, func() bool { return m.Snapshot()["anthropic"].Ready })

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
