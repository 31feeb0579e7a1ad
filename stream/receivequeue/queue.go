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

// Package receivequeue is the coalesced incoming byte buffer plus the FIFO
// of entry lengths/timestamps and the FIFO of pending receive callbacks
// described in §3/§4.6.
package receivequeue

import (
	"time"

	"github.com/google/uuid"
)

// Callback fires once enough bytes are available (or the operation is
// cancelled/times out/the socket is torn down).
type Callback func(data []byte, err error)

type lenEntry struct {
	length int
	at     time.Time
}

// PendingRead is one registered receive(options, callback) request.
type PendingRead struct {
	MinSize  int
	MaxSize  int
	Token    uuid.UUID
	HasToken bool
	Deadline time.Time
	Callback Callback
}

// Queue is the receive-side coalesced buffer plus bookkeeping.
type Queue struct {
	data    []byte
	entries []lenEntry
	pending []*PendingRead

	lowWatermark  int
	highWatermark int

	lowAuthorized  bool
	highAuthorized bool
}

// New constructs an empty Queue with the given watermarks (bytes).
func New(low, high int) *Queue {
	return &Queue{lowWatermark: low, highWatermark: high}
}

// Size reports the total buffered byte count. Invariant (§8.1): this always
// equals the sum of entry lengths.
func (q *Queue) Size() int { return len(q.data) }

// PendingCount reports the number of registered callback entries awaiting data.
func (q *Queue) PendingCount() int { return len(q.pending) }

// Append records newly received bytes as one entry with arrival timestamp at.
func (q *Queue) Append(b []byte, at time.Time) {
	q.data = append(q.data, b...)
	q.entries = append(q.entries, lenEntry{length: len(b), at: at})
	q.refreshLatches()
}

func (q *Queue) refreshLatches() {
	if len(q.data) < q.lowWatermark {
		q.lowAuthorized = false
	}
	if len(q.data) < q.highWatermark {
		q.highAuthorized = false
	}
}

// popSize removes n bytes from the front of the coalesced buffer, adjusting
// entry lengths and dropping fully-consumed entries, returning the timestamp
// of the first entry consumed from. Poll and DispatchReady discard it.
func (q *Queue) popSize(n int) (consumed []byte, earliest time.Time) {
	if n > len(q.data) {
		n = len(q.data)
	}
	consumed = append([]byte(nil), q.data[:n]...)
	q.data = q.data[n:]

	remaining := n
	idx := 0
	for idx < len(q.entries) && remaining > 0 {
		e := &q.entries[idx]
		if idx == 0 {
			earliest = e.at
		}
		if e.length <= remaining {
			remaining -= e.length
			idx++
			continue
		}
		e.length -= remaining
		remaining = 0
	}
	q.entries = q.entries[idx:]
	q.refreshLatches()
	return consumed, earliest
}

// RegisterCallback enqueues a pending receive request, FIFO (§5 ordering
// guarantee: receive callbacks fire in registration order).
func (q *Queue) RegisterCallback(p *PendingRead) {
	q.pending = append(q.pending, p)
}

// CancelToken removes and returns the pending request carrying token.
func (q *Queue) CancelToken(token uuid.UUID) (*PendingRead, bool) {
	for i, p := range q.pending {
		if p.HasToken && p.Token == token {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

// DrainAll removes and returns every pending callback entry, used during
// shutdown to fire them with EOF/CANCELLED.
func (q *Queue) DrainAll() []*PendingRead {
	all := q.pending
	q.pending = nil
	return all
}

// Poll synchronously satisfies a one-shot receive(min,max) if size >= min,
// consuming up to max bytes, per the §6 polling Receive operation.
func (q *Queue) Poll(min, max int) ([]byte, bool) {
	if len(q.data) < min {
		return nil, false
	}
	n := max
	if n > len(q.data) {
		n = len(q.data)
	}
	b, _ := q.popSize(n)
	return b, true
}

// DispatchReady walks the pending FIFO in order, firing (and removing) every
// entry whose MinSize is now satisfied, consuming up to MaxSize each time —
// the batch receive algorithm of §4.6.
func (q *Queue) DispatchReady() {
	for len(q.pending) > 0 {
		p := q.pending[0]
		if len(q.data) < p.MinSize {
			return
		}
		n := p.MaxSize
		if n > len(q.data) {
			n = len(q.data)
		}
		b, _ := q.popSize(n)
		q.pending = q.pending[1:]
		p.Callback(b, nil)
	}
}

// AuthorizeLowWatermarkEvent latches true exactly once per crossing AT/above
// the low threshold (inverted relative to SendQueue, per §4.6).
func (q *Queue) AuthorizeLowWatermarkEvent() bool {
	if len(q.data) < q.lowWatermark {
		return false
	}
	if q.lowAuthorized {
		return false
	}
	q.lowAuthorized = true
	return true
}

// AuthorizeHighWatermarkEvent latches true exactly once per crossing AT/above
// the high threshold.
func (q *Queue) AuthorizeHighWatermarkEvent() bool {
	if len(q.data) < q.highWatermark {
		return false
	}
	if q.highAuthorized {
		return false
	}
	q.highAuthorized = true
	return true
}

// ForceLowWatermarkEvent clears the low-watermark latch, so the next
// AuthorizeLowWatermarkEvent at or above the low threshold fires again
// without a new crossing.
func (q *Queue) ForceLowWatermarkEvent() {
	q.lowAuthorized = false
}
