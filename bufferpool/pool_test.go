package bufferpool

import "testing"

func TestSyncPoolGetPutRoundTrip(t *testing.T) {
	p := NewSyncPool()
	b := p.Get(100)
	if cap(b) < 100 {
		t.Fatalf("expected capacity >= 100, got %d", cap(b))
	}
	if len(b) != 0 {
		t.Fatalf("expected zero-length slice, got len %d", len(b))
	}
	b = append(b, make([]byte, 50)...)
	p.Put(b)

	b2 := p.Get(100)
	if cap(b2) < 100 {
		t.Fatalf("expected reused capacity >= 100, got %d", cap(b2))
	}
}

func TestAdaptiveSizeGrowsAndShrinks(t *testing.T) {
	if got := AdaptiveSize(1024, 1000, 256, 8192); got != 2048 {
		t.Fatalf("expected growth to 2048, got %d", got)
	}
	if got := AdaptiveSize(1024, 100, 256, 8192); got != 512 {
		t.Fatalf("expected shrink to 512, got %d", got)
	}
	if got := AdaptiveSize(1024, 600, 256, 8192); got != 1024 {
		t.Fatalf("expected no change, got %d", got)
	}
	if got := AdaptiveSize(256, 10, 256, 8192); got != 256 {
		t.Fatalf("expected clamp to min 256, got %d", got)
	}
}
