package telemetry

import (
	"sync"
	"time"
)

const DefaultCooldown = 20 * time.Second

// Gate lets an action through at most once per cooldown window.
type Gate struct {
	cooldown time.Duration
	now      func() time.Time

	mu sync.Mutex
	// reopenAt is zero while the gate is armed.
	reopenAt time.Time
}

// NewGate builds an armed gate. A nil now uses time.Now.
func NewGate(cooldown time.Duration, now func() time.Time) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{cooldown: cooldown, now: now}
}

// Attempt runs action if the gate is armed and disarms it for the cooldown.
// It reports whether action ran.
func (g *Gate) Attempt(action func()) bool {
	g.mu.Lock()
	now := g.now()
	if !g.armedAt(now) {
		g.mu.Unlock()
		return false
	}
	g.reopenAt = now.Add(g.cooldown)
	g.mu.Unlock()

	action()
	return true
}

// Armed reports whether the next Attempt would run its action.
func (g *Gate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armedAt(g.now())
}

// ReopensAt is when a disarmed gate re-arms; zero when armed.
func (g *Gate) ReopensAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armedAt(g.now()) {
		return time.Time{}
	}
	return g.reopenAt
}

func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

func (g *Gate) armedAt(now time.Time) bool {
	if g.reopenAt.IsZero() {
		return true
	}
	if !now.Before(g.reopenAt) {
		g.reopenAt = time.Time{}
		return true
	}
	return false
}
