package ratelimit

import (
	"sync"
	"time"

	"travel_auth/internal/config"
)

// Class groups endpoints that share an abuse profile. Login is limited
// tighter than refresh, forgot tighter still.
type Class string

const (
	ClassLogin    Class = "login"
	ClassRegister Class = "register"
	ClassRefresh  Class = "refresh"
	ClassForgot   Class = "forgot"
	ClassVerify   Class = "verify"
	ClassResend   Class = "resend"
)

type bucket struct {
	window time.Time
	count  int
}

// Limiter keeps fixed-window counters per (clientKey, class) pair.
// Counters live in process memory only: a restart resets all limits, which
// is accepted degradation for a single instance. Multi-instance deployments
// want a shared counter store instead.
type Limiter struct {
	mu       sync.Mutex
	policies map[Class]config.RatePolicy
	buckets  map[string]bucket
	now      func() time.Time
}

func New(limits config.RateLimits) *Limiter {
	return &Limiter{
		policies: map[Class]config.RatePolicy{
			ClassLogin:    limits.Login,
			ClassRegister: limits.Register,
			ClassRefresh:  limits.Refresh,
			ClassForgot:   limits.Forgot,
			ClassVerify:   limits.Verify,
			ClassResend:   limits.Resend,
		},
		buckets: make(map[string]bucket),
		now:     time.Now,
	}
}

// Allow reports whether one more request from clientKey is within the
// class limit, counting it if so. The counter update is atomic under the
// limiter mutex; on window rollover the count restarts from zero.
func (l *Limiter) Allow(clientKey string, class Class) bool {
	p, ok := l.policies[class]
	if !ok || p.Limit <= 0 || p.Window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := string(class) + ":" + clientKey
	win := l.now().Truncate(p.Window)

	b, ok := l.buckets[key]
	if !ok || b.window.Before(win) {
		l.buckets[key] = bucket{window: win, count: 1}
		return true
	}

	if b.count >= p.Limit {
		return false
	}

	b.count++
	l.buckets[key] = b

	return true
}
