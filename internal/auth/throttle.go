package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttleIdle = 15 * time.Minute

// LoginThrottle limits login attempts per email with a token bucket.
type LoginThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*throttleEntry
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginThrottle allows perMinute attempts per email with the given burst.
// A non-positive perMinute disables throttling.
func NewLoginThrottle(perMinute, burst int) *LoginThrottle {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	return &LoginThrottle{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*throttleEntry),
		now:      time.Now,
	}
}

// Allow consumes one attempt for key.
func (t *LoginThrottle) Allow(key string) bool {
	if t == nil || t.limit == rate.Inf {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.limiters[key]
	if !ok {
		t.evict(now)
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (t *LoginThrottle) evict(now time.Time) {
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > throttleIdle {
			delete(t.limiters, key)
		}
	}
}
