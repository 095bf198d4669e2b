package server

import (
	"testing"
	"time"
)

// TestRateLimiterAllowsBurst verifies that the limiter permits exactly
// the configured burst before throttling.
func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: time.Minute})

	for i := 0; i < 3; i++ {
		if !rl.allow() {
			t.Fatalf("Expected event %d within burst to be allowed", i+1)
		}
	}
	if rl.allow() {
		t.Error("Expected event beyond burst to be throttled")
	}
}

// TestRateLimiterRefills verifies that tokens come back over time.
func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Burst: 1, RefillInterval: 20 * time.Millisecond})

	if !rl.allow() {
		t.Fatal("Expected first event to be allowed")
	}
	if rl.allow() {
		t.Fatal("Expected second immediate event to be throttled")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.allow() {
		t.Error("Expected event to be allowed after refill interval")
	}
}

// TestRateLimiterSanitizesConfig verifies that nonsense parameters fall
// back to a working single-token bucket.
func TestRateLimiterSanitizesConfig(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Burst: -1, RefillInterval: -time.Second})

	if !rl.allow() {
		t.Error("Expected sanitized limiter to allow at least one event")
	}
}
