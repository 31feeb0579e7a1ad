/*
 * MIT License
 *
 * Copyright (c) 2026 ntstream contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package sendqueue is the FIFO of outgoing entries described in §4.5: a
// coalesced byte count, low/high watermark latches, and scatter-gather
// batching of leading entries up to a buffer-count and byte budget.
package sendqueue

import (
	"time"

	"github.com/google/uuid"
)

// Callback fires once an entry is fully consumed (or cancelled/failed).
type Callback func(err error)

// Entry is one outgoing send, per §3.
type Entry struct {
	ID       uint64
	Token    uuid.UUID
	HasToken bool
	Data     []byte
	Callback Callback
	Deadline time.Time
	ZeroCopy bool
	timer    *time.Timer
}

// Queue is the send FIFO plus watermark bookkeeping.
type Queue struct {
	entries []*Entry
	bytes   int
	nextID  uint64

	lowWatermark  int
	highWatermark int

	lowAuthorized  bool
	highAuthorized bool
}

// New constructs an empty Queue with the given watermarks (bytes).
func New(low, high int) *Queue {
	return &Queue{lowWatermark: low, highWatermark: high}
}

// Len reports the number of queued entries.
func (q *Queue) Len() int { return len(q.entries) }

// Bytes reports the total enqueued byte count across all entries.
func (q *Queue) Bytes() int { return q.bytes }

// Empty reports whether the queue has no entries.
func (q *Queue) Empty() bool { return len(q.entries) == 0 }

// Front returns the head entry, or nil if empty.
func (q *Queue) Front() *Entry {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// NextID allocates the next monotonic entry ID.
func (q *Queue) NextID() uint64 {
	id := q.nextID
	q.nextID++
	return id
}

// PushEntry appends e to the tail, returning whether the queue was
// previously empty (the entry makes it non-empty).
func (q *Queue) PushEntry(e *Entry) (becameNonEmpty bool) {
	becameNonEmpty = len(q.entries) == 0
	q.entries = append(q.entries, e)
	q.bytes += len(e.Data)
	q.resetLatchesOnGrowth()
	return becameNonEmpty
}

// resetLatchesOnGrowth re-arms the high-watermark latch once the queue
// shrinks back under threshold and grows again, so a new crossing can be
// re-announced (§8 invariant 6 is enforced at the authorize* calls, but the
// latch bits are cleared here on the ebb/flow boundary). The low-watermark
// latch is re-armed once the queue is back at or above the low threshold.
func (q *Queue) resetLatchesOnGrowth() {
	if q.bytes >= q.lowWatermark {
		q.lowAuthorized = false
	}
	if q.bytes >= q.highWatermark {
		return
	}
	q.highAuthorized = false
}

// PopEntry removes the head entry.
func (q *Queue) PopEntry() *Entry {
	if len(q.entries) == 0 {
		return nil
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	q.bytes -= len(e.Data)
	q.resetLatchesOnGrowth()
	return e
}

// PopSize partially consumes the head entry by n bytes (for a partial
// kernel write), retaining the remainder.
func (q *Queue) PopSize(n int) {
	if len(q.entries) == 0 || n <= 0 {
		return
	}
	e := q.entries[0]
	if n >= len(e.Data) {
		n = len(e.Data)
	}
	e.Data = e.Data[n:]
	q.bytes -= n
	q.resetLatchesOnGrowth()
}

// RemoveEntryID cancels the entry with the given ID, returning its callback
// and whether the queue became empty as a result.
func (q *Queue) RemoveEntryID(id uint64) (cb Callback, becameEmpty bool, found bool) {
	return q.removeWhere(func(e *Entry) bool { return e.ID == id })
}

// RemoveEntryToken cancels the entry carrying the given token.
func (q *Queue) RemoveEntryToken(token uuid.UUID) (cb Callback, becameEmpty bool, found bool) {
	return q.removeWhere(func(e *Entry) bool { return e.HasToken && e.Token == token })
}

func (q *Queue) removeWhere(match func(*Entry) bool) (cb Callback, becameEmpty bool, found bool) {
	for i, e := range q.entries {
		if !match(e) {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		q.bytes -= len(e.Data)
		q.resetLatchesOnGrowth()
		return e.Callback, len(q.entries) == 0, true
	}
	return nil, false, false
}

// DrainAll removes every still-queued entry in FIFO order, for a shutdown
// that discards the send queue outright rather than draining it normally.
func (q *Queue) DrainAll() []*Entry {
	drained := q.entries
	q.entries = nil
	q.bytes = 0
	q.resetLatchesOnGrowth()
	return drained
}

// BatchOptions bounds a scatter-gather call.
type BatchOptions struct {
	MaxBuffers int
	MaxBytes   int
}

// BatchNext gathers leading entries' data into a single scatter-gather
// slice, up to MaxBuffers entries and MaxBytes total, stopping early at the
// first zero-copy entry (those are submitted individually). Returns the
// gathered buffers and whether batching applied (more than one buffer).
func (q *Queue) BatchNext(opts BatchOptions) (bufs [][]byte, applied bool) {
	total := 0
	for _, e := range q.entries {
		if len(bufs) >= opts.MaxBuffers {
			break
		}
		if e.ZeroCopy && len(bufs) > 0 {
			break
		}
		if total+len(e.Data) > opts.MaxBytes && len(bufs) > 0 {
			break
		}
		bufs = append(bufs, e.Data)
		total += len(e.Data)
		if e.ZeroCopy {
			break
		}
	}
	return bufs, len(bufs) > 1
}

// AuthorizeLowWatermarkEvent latches true exactly once per crossing below
// the low watermark, per §4.5/§8 invariant 6.
func (q *Queue) AuthorizeLowWatermarkEvent() bool {
	if q.bytes >= q.lowWatermark {
		return false
	}
	if q.lowAuthorized {
		return false
	}
	q.lowAuthorized = true
	return true
}

// AuthorizeHighWatermarkEvent latches true exactly once per crossing above
// the high watermark, unless override is set — a per-call high-watermark
// override always authorizes, even if the steady-state watermark was not
// crossed (§9 Open Question / §8 scenario 3).
func (q *Queue) AuthorizeHighWatermarkEvent(override bool) bool {
	if override {
		return true
	}
	if q.bytes < q.highWatermark {
		return false
	}
	if q.highAuthorized {
		return false
	}
	q.highAuthorized = true
	return true
}
