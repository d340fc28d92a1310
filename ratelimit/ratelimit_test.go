package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsBurst(t *testing.T) {
	limiter := NewLimiter(10, 5)

	for i := 0; i < 5; i++ {
		if !limiter.Allow() {
			t.Fatalf("Allow() = false within burst (call %d)", i+1)
		}
	}
	if limiter.Allow() {
		t.Error("Allow() = true after burst exhausted")
	}
}

func TestLimiterRefills(t *testing.T) {
	limiter := NewLimiter(100, 1)

	if !limiter.Allow() {
		t.Fatal("first Allow() = false")
	}
	if limiter.Allow() {
		t.Fatal("Allow() = true with empty bucket")
	}

	time.Sleep(50 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("Allow() = false after refill window")
	}
}
