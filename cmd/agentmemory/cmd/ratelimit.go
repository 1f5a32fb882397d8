package cmd

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userRateLimiter keeps one token bucket per user. Buckets idle for longer
// than idleTTL are dropped by the cleanup loop.
type userRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	lastAccess map[string]time.Time
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
}

func newUserRateLimiter(rps float64, burst int) *userRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &userRateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		lastAccess: make(map[string]time.Time),
		limit:      rate.Limit(rps),
		burst:      burst,
		idleTTL:    10 * time.Minute,
	}
}

// Allow reports whether userID may make a request now. A limiter with a
// non-positive rate allows everything.
func (l *userRateLimiter) Allow(userID string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.lastAccess[userID] = time.Now()
	l.mu.Unlock()

	return limiter.Allow()
}

func (l *userRateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.cleanup(now)
		}
	}
}

func (l *userRateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, last := range l.lastAccess {
		if now.Sub(last) > l.idleTTL {
			delete(l.limiters, userID)
			delete(l.lastAccess, userID)
		}
	}
}
