package bot

import (
	"sync"
	"time"
)

const (
	rateLimitMaxCommands = 5
	rateLimitWindow      = 60 * time.Second
)

// RateLimiter allows each user max commands per sliding window.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a command for userID. When the user is over the limit it
// returns false and how long until the oldest command leaves the window.
func (r *RateLimiter) Allow(userID string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	timestamps := r.requests[userID]
	pruned := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= r.max {
		r.requests[userID] = pruned
		return false, pruned[0].Sub(cutoff)
	}

	r.requests[userID] = append(pruned, now)
	return true, 0
}
