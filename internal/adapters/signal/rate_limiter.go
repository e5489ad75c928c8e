package signal

import (
	"sync"
	"time"
)

// AttemptLimiter is a sliding window of attempts per client key (the remote
// IP), so reconnecting does not refill the budget. A non-positive limit
// disables it.
type AttemptLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewAttemptLimiter(limit int, interval time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *AttemptLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	rl.pruneLocked(windowStart)

	attempts := rl.history[key]
	if len(attempts) >= rl.limit {
		return false
	}
	rl.history[key] = append(attempts, now)
	return true
}

// pruneLocked drops attempts older than windowStart and forgets idle keys.
func (rl *AttemptLimiter) pruneLocked(windowStart time.Time) {
	for key, attempts := range rl.history {
		fresh := attempts[:0]
		for _, t := range attempts {
			if t.After(windowStart) {
				fresh = append(fresh, t)
			}
		}
		if len(fresh) == 0 {
			delete(rl.history, key)
			continue
		}
		rl.history[key] = fresh
	}
}
