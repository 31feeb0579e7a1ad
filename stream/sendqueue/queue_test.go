package sendqueue_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/sabouaram/ntstream/stream/sendqueue"
)

func TestPushPopFIFO(t *testing.T) {
	q := sendqueue.New(0, 1<<20)
	var fired []int

	for i := 0; i < 3; i++ {
		i := i
		e := &sendqueue.Entry{ID: q.NextID(), Data: []byte("x"), Callback: func(err error) { fired = append(fired, i) }}
		q.PushEntry(e)
	}

	for !q.Empty() {
		e := q.PopEntry()
		e.Callback(nil)
	}
	if len(fired) != 3 || fired[0] != 0 || fired[1] != 1 || fired[2] != 2 {
		t.Fatalf("callbacks fired out of order: %v", fired)
	}
}

func TestRemoveEntryToken(t *testing.T) {
	q := sendqueue.New(0, 1<<20)
	tok := uuid.New()
	var cancelled bool

	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("a")})
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Token: tok, HasToken: true, Data: []byte("bb"),
		Callback: func(err error) { cancelled = err != nil }})
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("c")})

	cb, becameEmpty, found := q.RemoveEntryToken(tok)
	if !found {
		t.Fatalf("expected to find entry by token")
	}
	if becameEmpty {
		t.Fatalf("queue should still have two entries")
	}
	cb(errCancelled{})
	if !cancelled {
		t.Fatalf("expected cancellation callback to run")
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}

type errCancelled struct{}

func (errCancelled) Error() string { return "cancelled" }

func TestWatermarkLatchFiresOncePerCrossing(t *testing.T) {
	q := sendqueue.New(5, 10)

	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: make([]byte, 12)})
	if !q.AuthorizeHighWatermarkEvent(false) {
		t.Fatalf("expected first crossing to authorize")
	}
	if q.AuthorizeHighWatermarkEvent(false) {
		t.Fatalf("second call without re-crossing must not re-authorize")
	}

	q.PopEntry()
	// below low watermark now
	if !q.AuthorizeLowWatermarkEvent() {
		t.Fatalf("expected low watermark crossing to authorize")
	}
	if q.AuthorizeLowWatermarkEvent() {
		t.Fatalf("second call without re-crossing must not re-authorize")
	}

	// re-cross high watermark: must authorize again
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: make([]byte, 12)})
	if !q.AuthorizeHighWatermarkEvent(false) {
		t.Fatalf("expected re-crossing to authorize again")
	}
}

func TestPerCallOverrideAlwaysAuthorizes(t *testing.T) {
	q := sendqueue.New(0, 1<<20)
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("tiny")})
	if !q.AuthorizeHighWatermarkEvent(true) {
		t.Fatalf("per-call override must authorize even without crossing the steady-state watermark")
	}
}

func TestBatchNextStopsAtZeroCopyEntry(t *testing.T) {
	q := sendqueue.New(0, 1<<20)
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("a")})
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("b"), ZeroCopy: true})
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("c")})

	bufs, applied := q.BatchNext(sendqueue.BatchOptions{MaxBuffers: 8, MaxBytes: 1 << 20})
	if len(bufs) != 1 {
		t.Fatalf("expected batching to stop before the zero-copy entry, got %d bufs", len(bufs))
	}
	if applied {
		t.Fatalf("single buffer is not a batch")
	}
}

func TestPopSizePartialConsumption(t *testing.T) {
	q := sendqueue.New(0, 1<<20)
	q.PushEntry(&sendqueue.Entry{ID: q.NextID(), Data: []byte("hello")})
	q.PopSize(3)
	if string(q.Front().Data) != "lo" {
		t.Fatalf("Front().Data = %q, want %q", q.Front().Data, "lo")
	}
	if q.Bytes() != 2 {
		t.Fatalf("Bytes() = %d, want 2", q.Bytes())
	}
}
