package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestRequestLimiterSpacing verifies the minimum inter-request interval.
func TestRequestLimiterSpacing(t *testing.T) {
	t.Parallel()

	// 600 requests/minute = one slot every 100ms.
	limiter := NewRequestLimiter(600)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First token is free; two more need ~200ms. Allow scheduler slack.
	if elapsed < 150*time.Millisecond {
		t.Errorf("3 waits finished in %s, expected at least ~200ms spacing", elapsed)
	}
}

// TestRequestLimiterUnlimited verifies that a non-positive ceiling
// disables limiting.
func TestRequestLimiterUnlimited(t *testing.T) {
	t.Parallel()

	limiter := NewRequestLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("unlimited limiter took %s for 100 waits", elapsed)
	}
}

// TestRequestLimiterCancellation verifies the wait respects context.
func TestRequestLimiterCancellation(t *testing.T) {
	t.Parallel()

	// One request per minute: the second wait would block for ~60s.
	limiter := NewRequestLimiter(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected cancellation error on blocked wait")
	}
}

// TestNopLimiter verifies the no-op implementation.
func TestNopLimiter(t *testing.T) {
	t.Parallel()

	var limiter NopLimiter
	if err := limiter.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
