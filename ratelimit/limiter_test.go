package ratelimit_test

import (
	"testing"

	"github.com/sabouaram/ntstream/ratelimit"
)

func TestUnlimitedAlwaysAllows(t *testing.T) {
	var u ratelimit.Unlimited
	if !u.Allow(1 << 20) {
		t.Fatalf("Unlimited must always allow")
	}
}

func TestTokenBucketThrottles(t *testing.T) {
	tb := ratelimit.NewTokenBucket(10, 10) // 10 bytes/sec, burst 10
	if !tb.Allow(10) {
		t.Fatalf("expected initial burst to be allowed")
	}
	if tb.Allow(10) {
		t.Fatalf("expected immediate second burst to be throttled")
	}
}
