package server

import (
	"sync"
	"time"

	"github.com/m7alleus/mazer/internal/config"
)

// RequestRateLimiter caps generation requests per IP over a sliding window.
type RequestRateLimiter struct {
	mu              sync.Mutex
	requests        map[string][]time.Time
	maxRequests     int
	window          time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

// NewRequestRateLimiter creates a limiter and starts its cleanup goroutine.
// A MaxRequests of 0 disables limiting.
func NewRequestRateLimiter(cfg config.RateLimitConfig) *RequestRateLimiter {
	rl := &RequestRateLimiter{
		requests:        make(map[string][]time.Time),
		maxRequests:     cfg.MaxRequests,
		window:          time.Duration(cfg.WindowSeconds) * time.Second,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	if rl.window <= 0 {
		rl.window = time.Minute
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RequestRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Allow records a request from ip if it is within the limit. When the limit
// is reached it returns false and the time until the oldest request in the
// window expires.
func (rl *RequestRateLimiter) Allow(ip string) (bool, time.Duration) {
	if rl.maxRequests <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.prune(rl.requests[ip], now)

	if len(recent) >= rl.maxRequests {
		rl.requests[ip] = recent
		return false, recent[0].Add(rl.window).Sub(now)
	}

	rl.requests[ip] = append(recent, now)
	return true, 0
}

// Count returns the number of requests from ip inside the current window.
func (rl *RequestRateLimiter) Count(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(rl.requests[ip], rl.now()))
}

// prune drops timestamps that have left the window. times is sorted.
func (rl *RequestRateLimiter) prune(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

func (rl *RequestRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup forgets IPs with no requests left in the window.
func (rl *RequestRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, times := range rl.requests {
		if recent := rl.prune(times, now); len(recent) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = recent
		}
	}
}
