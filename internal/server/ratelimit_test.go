package server

import (
	"sync"
	"testing"
	"time"

	"github.com/m7alleus/mazer/internal/config"
)

// newTestRateLimiter returns a limiter driven by a fake clock.
func newTestRateLimiter(t *testing.T, max, windowSeconds int) (*RequestRateLimiter, *time.Time) {
	t.Helper()
	rl := NewRequestRateLimiter(config.RateLimitConfig{MaxRequests: max, WindowSeconds: windowSeconds})
	t.Cleanup(rl.Stop)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRequestRateLimiter_Basic(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 3, 60)
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow(ip); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, retry := rl.Allow(ip)
	if ok {
		t.Error("fourth request should be rejected")
	}
	if retry != 60*time.Second {
		t.Errorf("expected retry after 60s, got %v", retry)
	}

	if count := rl.Count(ip); count != 3 {
		t.Errorf("rejected requests must not be counted, got %d", count)
	}
}

func TestRequestRateLimiter_WindowSlides(t *testing.T) {
	rl, now := newTestRateLimiter(t, 2, 10)
	ip := "10.0.0.1"

	rl.Allow(ip)
	*now = now.Add(4 * time.Second)
	rl.Allow(ip)

	if ok, retry := rl.Allow(ip); ok || retry != 6*time.Second {
		t.Errorf("expected rejection with 6s retry, got ok=%v retry=%v", ok, retry)
	}

	// First request leaves the window
	*now = now.Add(6 * time.Second)
	if ok, _ := rl.Allow(ip); !ok {
		t.Error("request should be allowed once the oldest request expires")
	}
	if count := rl.Count(ip); count != 2 {
		t.Errorf("expected 2 requests in window, got %d", count)
	}
}

func TestRequestRateLimiter_MultipleIPs(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 1, 60)

	if ok, _ := rl.Allow("192.168.1.1"); !ok {
		t.Error("first IP should be allowed")
	}
	if ok, _ := rl.Allow("192.168.1.1"); ok {
		t.Error("first IP should be limited")
	}
	if ok, _ := rl.Allow("192.168.1.2"); !ok {
		t.Error("second IP must be tracked independently")
	}
}

func TestRequestRateLimiter_Disabled(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 0, 60)

	for i := 0; i < 1000; i++ {
		if ok, _ := rl.Allow("192.168.1.1"); !ok {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestRequestRateLimiter_DefaultWindow(t *testing.T) {
	rl := NewRequestRateLimiter(config.RateLimitConfig{MaxRequests: 1})
	defer rl.Stop()

	if rl.window != time.Minute {
		t.Errorf("expected default window of 1m, got %v", rl.window)
	}
}

func TestRequestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newTestRateLimiter(t, 5, 10)

	rl.Allow("a")
	*now = now.Add(5 * time.Second)
	rl.Allow("b")
	*now = now.Add(6 * time.Second)

	rl.cleanup()

	rl.mu.Lock()
	_, hasA := rl.requests["a"]
	_, hasB := rl.requests["b"]
	rl.mu.Unlock()

	if hasA {
		t.Error("expired IP should be removed")
	}
	if !hasB {
		t.Error("IP with recent requests should be kept")
	}
}

func TestRequestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRequestRateLimiter(config.RateLimitConfig{MaxRequests: 1, WindowSeconds: 1})
	rl.Stop()
	rl.Stop()
}

func TestRequestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRequestRateLimiter(config.RateLimitConfig{MaxRequests: 50, WindowSeconds: 60})
	defer rl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ip := "192.168.1." + string(rune('0'+id%10))
			for j := 0; j < 50; j++ {
				if j%5 == 0 {
					rl.Count(ip)
				} else {
					rl.Allow(ip)
				}
			}
		}(i)
	}
	wg.Wait()

	// Two goroutines share each IP, 40 allowed calls each
	if count := rl.Count("192.168.1.0"); count != 50 {
		t.Errorf("expected IP to be capped at 50, got %d", count)
	}
}
