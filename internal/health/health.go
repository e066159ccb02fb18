// Package health monitors the reachability of model providers.
//
// Each registered provider is probed in a background goroutine: an
// exponential-backoff startup phase (2s, 4s, ... capped at 30s), then
// steady polling. Transitions are logged; current status feeds the
// /health endpoint.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Probe checks whether a provider is reachable. Return nil if healthy.
type Probe func(ctx context.Context) error

// Status is the health of one provider, shaped for the health endpoint.
type Status struct {
	Ready     bool      `json:"ready"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`
}

// Options tunes probe timing. Zero values take defaults.
type Options struct {
	InitialDelay time.Duration // first retry delay (default 2s)
	MaxDelay     time.Duration // backoff ceiling (default 30s)
	PollInterval time.Duration // steady-state interval (default 60s)
	ProbeTimeout time.Duration // per-probe budget (default 10s)
}

func (o Options) withDefaults() Options {
	if o.InitialDelay <= 0 {
		o.InitialDelay = 2 * time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 60 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 10 * time.Second
	}
	return o
}

// Monitor tracks a set of named providers.
type Monitor struct {
	logger *slog.Logger
	opts   Options

	mu      sync.RWMutex
	status  map[string]Status
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewMonitor creates an empty monitor.
func NewMonitor(logger *slog.Logger, opts Options) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
		opts:   opts.withDefaults(),
		status: make(map[string]Status),
	}
}

// Watch starts probing a provider until ctx is cancelled or Stop is
// called. Panics on an empty name or nil probe.
func (m *Monitor) Watch(ctx context.Context, name string, probe Probe) {
	if name == "" {
		panic("health: provider name must not be empty")
	}
	if probe == nil {
		panic("health: probe must not be nil")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.status[name] = Status{}
	m.cancels = append(m.cancels, cancel)
	m.mu.Unlock()

	m.wg.Add(1)
	go m.watch(ctx, name, probe)
}

// Ready reports whether every watched provider is currently reachable.
// A monitor with no providers reports true.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.status {
		if !s.Ready {
			return false
		}
	}
	return true
}

// Snapshot returns the status of all watched providers.
func (m *Monitor) Snapshot() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.status))
	for name, s := range m.status {
		out[name] = s
	}
	return out
}

// Stop cancels all watchers and waits for their goroutines to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) watch(ctx context.Context, name string, probe Probe) {
	defer m.wg.Done()

	// Startup phase: retry with growing delay until the first success.
	delay := m.opts.InitialDelay
	for {
		err := m.check(ctx, name, probe)
		if err == nil {
			m.logger.Info("provider reachable", "provider", name)
			break
		}
		if ctx.Err() != nil {
			return
		}
		m.logger.Debug("provider probe failed, retrying",
			"provider", name,
			"next_delay", delay.String(),
			"error", err,
		)
		if !sleepCtx(ctx, delay) {
			return
		}
		delay *= 2
		if delay > m.opts.MaxDelay {
			delay = m.opts.MaxDelay
		}
	}

	// Steady state: poll and log transitions.
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wasReady := m.ready(name)
			err := m.check(ctx, name, probe)
			switch {
			case wasReady && err != nil:
				m.logger.Warn("provider became unreachable", "provider", name, "error", err)
			case !wasReady && err == nil:
				m.logger.Info("provider recovered", "provider", name)
			}
		}
	}
}

// check runs one probe with a timeout and records the outcome.
func (m *Monitor) check(ctx context.Context, name string, probe Probe) error {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()
	err := probe(probeCtx)

	s := Status{Ready: err == nil, LastCheck: time.Now()}
	if err != nil {
		s.LastError = err.Error()
	}
	m.mu.Lock()
	m.status[name] = s
	m.mu.Unlock()
	return err
}

func (m *Monitor) ready(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[name].Ready
}

// sleepCtx sleeps for d or until ctx is cancelled. Returns false if cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
