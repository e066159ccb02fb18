// Package guard rate-limits turns per user so a runaway client or an
// overeager automation can't burn through provider quota.
package guard

import (
	"sync"

	"golang.org/x/time/rate"
)

// Guard is a pool of per-user token buckets.
type Guard struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
	burst     int
}

// New creates a guard allowing perMinute turns per user with the given
// burst. Non-positive values fall back to 20/min with burst 5.
func New(perMinute, burst int) *Guard {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &Guard{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
		burst:     burst,
	}
}

func (g *Guard) get(userID string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[userID]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(float64(g.perMinute)/60), g.burst)
	g.limiters[userID] = l
	return l
}

// Allow reports whether the user may start a turn now.
func (g *Guard) Allow(userID string) bool {
	return g.get(userID).Allow()
}
