package throttle

import (
	"context"
	"sync"
	"time"
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryLimiter keeps attempts in process. State is lost on restart and not shared between replicas.
type MemoryLimiter struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	attempts  map[string]*attemptState
	lastSweep time.Time
}

func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{policy: policy, now: time.Now, attempts: make(map[string]*attemptState)}
}

func (m *MemoryLimiter) Locked(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.attempts[key]
	if !ok {
		return 0, nil
	}
	now := m.now()
	if !now.Before(state.lockedUntil) {
		if m.stale(state, now) {
			delete(m.attempts, key)
		}
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

func (m *MemoryLimiter) Fail(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	state, ok := m.attempts[key]
	expired := ok && !state.lockedUntil.IsZero() && !now.Before(state.lockedUntil)
	if !ok || expired || now.Sub(state.firstAttempt) > m.policy.Window {
		state = &attemptState{firstAttempt: now}
		m.attempts[key] = state
	}

	state.count++
	if state.count >= m.policy.MaxAttempts {
		state.lockedUntil = now.Add(m.policy.Lockout)
		state.count = m.policy.MaxAttempts
	}
	return max(m.policy.MaxAttempts-state.count, 0), nil
}

func (m *MemoryLimiter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, key)
	return nil
}

// stale reports whether the state neither locks nor counts toward a window.
func (m *MemoryLimiter) stale(state *attemptState, now time.Time) bool {
	return !now.Before(state.lockedUntil) && now.Sub(state.firstAttempt) > m.policy.Window
}

// sweep drops stale keys, at most once per window.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.policy.Window {
		return
	}
	m.lastSweep = now
	for key, state := range m.attempts {
		if m.stale(state, now) {
			delete(m.attempts, key)
		}
	}
}

// Len reports how many keys are tracked.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}
