package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sabouaram/ntstream/network/protocol"
)

func TestNetResolverResolvesLoopback(t *testing.T) {
	r := NewNetResolver()
	done := make(chan error, 1)
	r.Resolve(context.Background(), "localhost", 8080, func(ep protocol.Endpoint, _ string, err error) {
		if err == nil && ep.Port != 8080 {
			err = errors.New("resolved endpoint carries wrong port")
		}
		done <- err
	})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resolve timed out")
	}
}

func TestNetResolverDedupesConcurrentLookups(t *testing.T) {
	r := NewNetResolver()
	const n = 8
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		r.Resolve(context.Background(), "localhost", 80, func(_ protocol.Endpoint, _ string, err error) {
			results <- err
		})
	}
	for i := 0; i < n; i++ {
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("lookup %d failed: %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for deduplicated lookups")
		}
	}
}
