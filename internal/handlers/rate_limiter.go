package handlers

import (
	"sync"
	"time"
)

// userRateLimiter allows at most limit events per user in each fixed window.
type userRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[int64]userWindow
	sweepAt time.Time
}

type userWindow struct {
	count int
	reset time.Time
}

func newUserRateLimiter(limit int, window time.Duration, clock func() time.Time) *userRateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &userRateLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[int64]userWindow),
	}
}

// Allow records one event for userID. When the budget is spent it returns false
// and the time left until the user's window resets. A nil limiter allows everything.
func (l *userRateLimiter) Allow(userID int64) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for id, w := range l.windows {
			if now.After(w.reset) {
				delete(l.windows, id)
			}
		}
		l.sweepAt = now.Add(l.window)
	}

	w, ok := l.windows[userID]
	if !ok || now.After(w.reset) {
		l.windows[userID] = userWindow{count: 1, reset: now.Add(l.window)}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.reset.Sub(now)
	}
	w.count++
	l.windows[userID] = w
	return true, 0
}
