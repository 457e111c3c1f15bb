// Package throttle locks out clients after repeated failed logins.
package throttle

import (
	"context"
	"time"
)

// Policy describes when a key gets locked.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultPolicy allows 5 failures per 15 minutes, then locks for 10 minutes.
var DefaultPolicy = Policy{MaxAttempts: 5, Window: 15 * time.Minute, Lockout: 10 * time.Minute}

// Limiter tracks failed attempts per key (usually the client IP).
type Limiter interface {
	// Locked returns how long the key stays locked; zero when it is not.
	Locked(ctx context.Context, key string) (time.Duration, error)
	// Fail records a failure and returns the attempts left before lockout.
	Fail(ctx context.Context, key string) (int, error)
	// Reset forgets the key, e.g. after a successful login.
	Reset(ctx context.Context, key string) error
}
