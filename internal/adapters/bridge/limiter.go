package bridge

import (
	"sync"
	"time"
)

// ActionLimiter allows at most limit UI actions per client within a
// sliding interval. Tabs of the same client share one allowance.
type ActionLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewActionLimiter(limit int, interval time.Duration) *ActionLimiter {
	return &ActionLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *ActionLimiter) Allow(clientID string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[clientID]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[clientID] = fresh
		return false
	}
	rl.history[clientID] = append(fresh, now)
	return true
}
