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

// Package reactor is the event-loop collaborator of §6. spec.md treats the
// reactor/event loop as out of scope; this package gives the module a
// concrete default (LoopReactor) so StreamSocket is constructible and
// testable without a platform-specific epoll/kqueue binding.
//
// Go's net.Conn has no separate "readable, but don't consume" notification
// the way an epoll-backed reactor does: blocking on Read *is* the
// readiness wait. LoopReactor embraces that — its read pump blocks in
// Read and delivers the bytes (or error) as the "readable" event, instead
// of delivering a bare notification the socket then has to read itself.
// Symmetrically, queued sends are handed to a dedicated write pump goroutine
// that blocks in Write; "show/hide writable" gates whether the strand
// feeds the pump rather than gating an OS-level readiness bit. This is the
// idiomatic Go substitute for the C++ reactor's one-shot rearm model.
package reactor

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sabouaram/ntstream/bufferpool"
)

// ReadResult is one completed (or failed) kernel receive.
type ReadResult struct {
	Data []byte
	Err  error
}

// WriteRequest asks the write pump to submit buffers via a single
// scatter-gather call, completion reported on Done.
type WriteRequest struct {
	Bufs [][]byte
	Done chan WriteResult
}

// WriteResult is the outcome of one kernel send.
type WriteResult struct {
	N   int
	Err error
}

// Socket is the attached handle: any net.Conn (TCP, Unix, or a net.Pipe side
// used in tests).
type Socket = net.Conn

// Handle is an opaque attachment token returned by AttachSocket.
type Handle struct {
	conn      Socket
	reads     chan ReadResult
	writes    chan WriteRequest
	closeOnce sync.Once
	closed    chan struct{}
	bufSize   int
	minSize   int
	maxSize   int
	pool      bufferpool.Pool
}

// Reactor is the contract §6 specifies: attach/detach, show/hide
// readable/writable, a handle reservation semaphore, and timer/executor
// helpers so timer callbacks never race the socket's own state transitions.
type Reactor interface {
	AttachSocket(conn Socket, bufSize int, pool bufferpool.Pool) *Handle
	DetachSocket(h *Handle, done func())
	Reads(h *Handle) <-chan ReadResult
	Writes(h *Handle) chan<- WriteRequest
	AcquireHandleReservation() bool
	ReleaseHandleReservation()
	CreateTimer(d time.Duration, fn func()) Timer
	Execute(fn func())
}

// Timer is the handle returned by CreateTimer.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// timeTimer adapts *time.Timer to the Timer interface.
type timeTimer struct{ t *time.Timer }

func (w timeTimer) Stop() bool             { return w.t.Stop() }
func (w timeTimer) Reset(d time.Duration) bool { return w.t.Reset(d) }

// LoopReactor is the default goroutine-based Reactor.
type LoopReactor struct {
	sem chan struct{}
}

// NewLoopReactor builds a LoopReactor with maxHandles concurrently attached
// sockets (the handle reservation semaphore of §6); 0 means unlimited.
func NewLoopReactor(maxHandles int) *LoopReactor {
	r := &LoopReactor{}
	if maxHandles > 0 {
		r.sem = make(chan struct{}, maxHandles)
	}
	return r
}

func (r *LoopReactor) AcquireHandleReservation() bool {
	if r.sem == nil {
		return true
	}
	select {
	case r.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *LoopReactor) ReleaseHandleReservation() {
	if r.sem == nil {
		return
	}
	select {
	case <-r.sem:
	default:
	}
}

func (r *LoopReactor) CreateTimer(d time.Duration, fn func()) Timer {
	return timeTimer{t: time.AfterFunc(d, fn)}
}

func (r *LoopReactor) Execute(fn func()) {
	go fn()
}

// AttachSocket starts the read/write pumps for conn and returns its Handle.
// The read pump reserves its kernel read buffer from pool (when non-nil)
// instead of allocating one per read, and adapts the reservation size to
// the previous read's fill ratio.
func (r *LoopReactor) AttachSocket(conn Socket, bufSize int, pool bufferpool.Pool) *Handle {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	h := &Handle{
		conn:    conn,
		reads:   make(chan ReadResult, 1),
		writes:  make(chan WriteRequest, 8),
		closed:  make(chan struct{}),
		bufSize: bufSize,
		minSize: bufSize,
		maxSize: bufSize * 16,
		pool:    pool,
	}
	go h.run()
	return h
}

// run supervises the read and write pumps under an errgroup.Group and fires
// the handle's closed signal once both pumps have returned. A pump that
// exits on its own (fatal I/O error) does not stop its sibling; DetachSocket
// fires closed directly, which makes both pumps return.
func (h *Handle) run() {
	var g errgroup.Group
	g.Go(h.readPump)
	g.Go(h.writePump)
	_ = g.Wait()
	h.closeOnce.Do(func() { close(h.closed) })
}

func (h *Handle) readPump() error {
	size := h.bufSize
	for {
		var buf []byte
		if h.pool != nil {
			buf = h.pool.Get(size)
			buf = buf[:cap(buf)]
		} else {
			buf = make([]byte, size)
		}
		n, err := h.conn.Read(buf)
		var out []byte
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if h.pool != nil {
			size = bufferpool.AdaptiveSize(cap(buf), n, h.minSize, h.maxSize)
			h.pool.Put(buf)
		}
		select {
		case h.reads <- ReadResult{Data: out, Err: err}:
		case <-h.closed:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *Handle) writePump() error {
	for {
		select {
		case req, ok := <-h.writes:
			if !ok {
				return nil
			}
			var total int
			var err error
			for _, b := range req.Bufs {
				n, werr := h.conn.Write(b)
				total += n
				if werr != nil {
					err = werr
					break
				}
			}
			if req.Done != nil {
				req.Done <- WriteResult{N: total, Err: err}
			}
			if err != nil {
				return err
			}
		case <-h.closed:
			return nil
		}
	}
}

func (r *LoopReactor) DetachSocket(h *Handle, done func()) {
	h.closeOnce.Do(func() { close(h.closed) })
	if done != nil {
		go done()
	}
}

func (r *LoopReactor) Reads(h *Handle) <-chan ReadResult { return h.reads }
func (r *LoopReactor) Writes(h *Handle) chan<- WriteRequest { return h.writes }

// IsClosedConnErr reports whether err indicates the underlying conn was
// closed, by the peer (io.EOF) or already locally (net.ErrClosed), so it is
// filtered rather than surfaced as a transport error.
func IsClosedConnErr(err error) bool {
	if err == nil {
		return false
	}
	return err == io.EOF || errors.Is(err, net.ErrClosed)
}
