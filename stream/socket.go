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

// Package stream assembles the leaf components (zerocopy, timestamp,
// shutdown, flowcontrol, sendqueue, receivequeue, connect, tlspipeline,
// reactor) into StreamSocket, the per-connection coordinator described
// across §4.
package stream

import (
	"context"
	"crypto/x509"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sabouaram/ntstream/config"
	serr "github.com/sabouaram/ntstream/errors"
	"github.com/sabouaram/ntstream/network/protocol"
	"github.com/sabouaram/ntstream/stream/connect"
	"github.com/sabouaram/ntstream/stream/flowcontrol"
	"github.com/sabouaram/ntstream/stream/reactor"
	"github.com/sabouaram/ntstream/stream/receivequeue"
	"github.com/sabouaram/ntstream/stream/sendqueue"
	"github.com/sabouaram/ntstream/stream/shutdown"
	"github.com/sabouaram/ntstream/stream/timestamp"
	"github.com/sabouaram/ntstream/stream/tlspipeline"
	"github.com/sabouaram/ntstream/stream/zerocopy"
)

const (
	defaultBatchMaxBuffers = 16
	defaultBatchMaxBytes   = 64 * 1024
)

// StreamSocket is one reactor-driven, per-connection socket, wiring together
// every leaf component behind a single strand (a goroutine-confined mutex,
// per §4.1's single-strand requirement).
type StreamSocket struct {
	opts    Options
	session Session
	manager Manager

	mu       sync.Mutex
	conn     net.Conn
	handle   *reactor.Handle
	localEp  protocol.Endpoint
	remoteEp protocol.Endpoint

	sendQ *sendqueue.Queue
	recvQ *receivequeue.Queue
	shut  *shutdown.State
	flow  *flowcontrol.State
	zc    *zerocopy.Queue
	ts    *timestamp.Correlator

	tls       *tlspipeline.TlsPipeline
	tlsActive bool

	connMachine *connect.Machine

	wake     chan struct{}
	closed   bool
	closedCh chan struct{}

	// detaching/deferred implement the detach-then-complete ordering: while
	// a detach is in flight no further Shutdown/Close call acts immediately
	// — each defers onto this queue and replays, in arrival order, once the
	// reactor's detach callback runs.
	detaching bool
	deferred  []func()

	shutdownInitiated bool
	upgradeAnnounced  bool
	downgradeAnnounced bool
}

// New constructs an unconnected StreamSocket. Call Connect (or Accept, via
// the caller supplying an already-accepted net.Conn through Attach) before
// Send/Receive. manager is optional; omit it (or pass nil) for a socket that
// has no accept-side collaborator to report establishment/closure to.
func New(opts Options, session Session, manager ...Manager) *StreamSocket {
	opts = opts.withDefaults()
	if opts.Reactor == nil {
		opts.Reactor = reactor.NewLoopReactor(0)
	}
	if session == nil {
		session = NopSession{}
	}
	var mgr Manager = NopManager{}
	if len(manager) > 0 && manager[0] != nil {
		mgr = manager[0]
	}
	return &StreamSocket{
		opts:     opts,
		session:  session,
		manager:  mgr,
		sendQ:    sendqueue.New(opts.LowWatermark, opts.HighWatermark),
		recvQ:    receivequeue.New(opts.LowWatermark, opts.HighWatermark),
		shut:     shutdown.New(opts.KeepHalfOpen),
		flow:     flowcontrol.New(),
		zc:       zerocopy.New(),
		ts:       timestamp.New(),
		wake:     make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// Connect dials target via a connect.Machine (§4.7) and attaches the
// resulting net.Conn to the reactor once established.
func (s *StreamSocket) Connect(ctx context.Context, target connect.Target, copts config.ConnectOptions) error {
	dialer := connect.NetDialer{D: &net.Dialer{}}
	s.connMachine = connect.New(dialer, s.opts.Resolver, connect.Options{
		RetryCount:    copts.RetryCount,
		RetryInterval: copts.RetryInterval,
		Deadline:      copts.Deadline,
	})

	result := make(chan connect.Result, 1)
	s.connMachine.Start(ctx, target, func(r connect.Result) { result <- r })

	r := <-result
	if r.Err != nil {
		s.opts.Logger.Warnf("connect failed: %v", r.Err)
		return r.Err
	}
	s.Attach(r.Conn, target.Endpoint)
	return nil
}

// Attach wires an already-established net.Conn (from Connect, or from an
// external acceptor) into the reactor and starts the socket's pumps.
func (s *StreamSocket) Attach(conn net.Conn, remote protocol.Endpoint) {
	s.mu.Lock()
	s.conn = conn
	s.remoteEp = remote
	if local := conn.LocalAddr(); local != nil {
		s.localEp = endpointFromAddr(local)
	}
	s.handle = s.opts.Reactor.AttachSocket(conn, s.opts.ReadBufferHint, s.opts.Pool)
	s.mu.Unlock()

	s.manager.HandleSocketEstablished(s)

	go s.recvLoop()
	go s.sendLoop()
}

// CancelConnect aborts an in-flight Connect call.
func (s *StreamSocket) CancelConnect() {
	if s.connMachine != nil {
		s.connMachine.Cancel()
	}
}

// Upgrade starts a TLS handshake over the already-connected transport (§4.10).
func (s *StreamSocket) Upgrade(opts config.UpgradeOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return serr.New(serr.Invalid, "upgrade requires a connected socket", nil)
	}
	var prim tlspipeline.Primitive
	if opts.IsServer {
		prim = tlspipeline.NewServer(opts.TLS.ServerTLSConfig())
	} else {
		prim = tlspipeline.NewClient(opts.TLS.ClientTLSConfig())
	}
	s.tls = tlspipeline.New(prim)
	s.tlsActive = true
	return nil
}

// Downgrade starts the TLS close_notify exchange, reverting to plaintext
// once TlsPipeline reports the shutdown complete (§4.10 downgrade path).
// The downgrade's INITIATED event fires synchronously here; its COMPLETE
// event fires later, from the receive path, once the close_notify exchange
// actually finishes.
func (s *StreamSocket) Downgrade() error {
	s.mu.Lock()
	t := s.tls
	s.mu.Unlock()
	if t == nil {
		return serr.New(serr.Invalid, "socket is not tls-upgraded", nil)
	}
	if err := t.Downgrade(); err != nil {
		return err
	}
	s.session.HandleDowngrade(DowngradeInitiated)
	return nil
}

// Send enqueues data for transmission, per §6's Send operation. cb fires
// exactly once, when the entry is fully consumed, cancelled, or the socket
// tears down. Returns the assigned entry ID (usable with CancelSend).
func (s *StreamSocket) Send(data []byte, opts config.SendOptions, cb func(error)) (uint64, error) {
	s.mu.Lock()
	if !s.shut.CanSend() {
		s.mu.Unlock()
		return 0, serr.New(serr.Invalid, "send half already shut down", nil)
	}
	id := s.sendQ.NextID()
	entry := &sendqueue.Entry{ID: id, Data: data, Callback: sendqueue.Callback(cb), ZeroCopy: opts.ZeroCopy}
	if opts.HasToken {
		entry.Token, entry.HasToken = opts.Token, true
	}
	if opts.Deadline > 0 {
		entry.Deadline = time.Now().Add(opts.Deadline)
	}
	s.sendQ.PushEntry(entry)

	var announceHW, announceApplied bool
	if s.sendQ.AuthorizeHighWatermarkEvent(opts.OverrideHW) {
		s.opts.Metrics.IncHighWatermark()
		announceHW = true
		if action := s.flow.Apply(flowcontrol.Send, false); action.Changed {
			announceApplied = true
		}
	}
	s.mu.Unlock()

	if announceHW {
		go s.session.HandleQueueEvent(DirectionSend, HighWatermark)
	}
	if announceApplied {
		go s.session.HandleQueueEvent(DirectionSend, FlowControlApplied)
	}

	s.nudgeSendLoop()
	return id, nil
}

// CancelSend removes a still-queued entry by its assigned ID, firing its
// callback with errors.Cancelled.
func (s *StreamSocket) CancelSend(id uint64) bool {
	s.mu.Lock()
	cb, _, found := s.sendQ.RemoveEntryID(id)
	s.mu.Unlock()
	if found && cb != nil {
		cb(serr.New(serr.Cancelled, "send cancelled", nil))
	}
	return found
}

// CancelSendToken cancels a still-queued entry by its caller-supplied token.
func (s *StreamSocket) CancelSendToken(token uuid.UUID) bool {
	s.mu.Lock()
	cb, _, found := s.sendQ.RemoveEntryToken(token)
	s.mu.Unlock()
	if found && cb != nil {
		cb(serr.New(serr.Cancelled, "send cancelled", nil))
	}
	return found
}

// Receive registers a callback invoked once MinSize bytes have accumulated
// (consuming up to MaxSize), per §6's Receive operation. If data is already
// available the callback may fire before Receive returns.
func (s *StreamSocket) Receive(opts config.ReceiveOptions, cb func([]byte, error)) {
	s.mu.Lock()
	if !s.shut.CanReceive() {
		s.mu.Unlock()
		cb(nil, serr.New(serr.EOF, "receive half already shut down", nil))
		return
	}
	min, max := opts.MinSize, opts.MaxSize
	if max <= 0 {
		max = min
	}
	p := &receivequeue.PendingRead{MinSize: min, MaxSize: max, Callback: receivequeue.Callback(cb)}
	if opts.HasToken {
		p.Token, p.HasToken = opts.Token, true
	}
	s.recvQ.RegisterCallback(p)
	if opts.Deadline > 0 && !opts.HasToken {
		p.Token, p.HasToken = uuid.New(), true
	}
	s.recvQ.DispatchReady()
	deadline := opts.Deadline
	token := p.Token
	hasToken := p.HasToken
	s.mu.Unlock()

	if deadline > 0 {
		s.opts.Reactor.CreateTimer(deadline, func() {
			s.mu.Lock()
			pending, found := s.recvQ.CancelToken(token)
			_ = hasToken
			s.mu.Unlock()
			if found {
				pending.Callback(nil, serr.WouldBlockErr)
			}
		})
	}
}

// CancelReceive removes a still-pending receive registration by token,
// firing its callback with errors.Cancelled.
func (s *StreamSocket) CancelReceive(token uuid.UUID) bool {
	s.mu.Lock()
	p, found := s.recvQ.CancelToken(token)
	s.mu.Unlock()
	if found {
		p.Callback(nil, serr.New(serr.Cancelled, "receive cancelled", nil))
	}
	return found
}

// deferIfDetaching, called with s.mu held, reports whether a detach is
// currently in flight. If so it queues fn to replay once that detach's
// completion callback runs and returns true — the caller must stop without
// acting, per §4.11's "no reactor event is acted on while detaching".
func (s *StreamSocket) deferIfDetaching(fn func()) bool {
	if !s.detaching {
		return false
	}
	s.deferred = append(s.deferred, fn)
	return true
}

// announceShutdownInitiated fires ShutdownInitiated exactly once, the first
// time any shutdown sequence — a half-shutdown or a full close — begins.
func (s *StreamSocket) announceShutdownInitiated(origin shutdown.Origin) {
	s.mu.Lock()
	if s.shutdownInitiated {
		s.mu.Unlock()
		return
	}
	s.shutdownInitiated = true
	s.mu.Unlock()
	s.session.HandleShutdown(ShutdownInitiated, origin)
}

// ShutdownSend half-closes the send direction (§4.3): the still-queued send
// entries are discarded with Cancelled callbacks (a Discarded queue event
// on DirectionSend if any were), then the kernel write half is closed.
func (s *StreamSocket) ShutdownSend() {
	s.mu.Lock()
	if s.deferIfDetaching(s.ShutdownSend) {
		s.mu.Unlock()
		return
	}
	res := s.shut.TryShutdownSend()
	if !res.Initiated {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	discarded := s.sendQ.DrainAll()
	s.mu.Unlock()

	s.announceShutdownInitiated(shutdown.OriginLocal)
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	for _, e := range discarded {
		if e.Callback != nil {
			e.Callback(serr.New(serr.Cancelled, "send half shut down", nil))
		}
	}
	if len(discarded) > 0 {
		s.session.HandleQueueEvent(DirectionSend, Discarded)
	}
	s.session.HandleShutdown(ShutdownSendPhase, shutdown.OriginLocal)
	if res.Completed {
		s.session.HandleShutdown(ShutdownComplete, shutdown.OriginLocal)
		s.Close()
	}
}

// ShutdownReceive half-closes the receive direction (§4.3). origin records
// whether this is a locally requested shutdown or mirrors a remote EOF/RST.
// Pending receive registrations fail with EOF and a forced low-watermark
// event lets a polling caller observe it even without crossing the
// watermark itself.
func (s *StreamSocket) ShutdownReceive(origin shutdown.Origin) {
	s.mu.Lock()
	if s.deferIfDetaching(func() { s.ShutdownReceive(origin) }) {
		s.mu.Unlock()
		return
	}
	res := s.shut.TryShutdownReceive(origin)
	if !res.Initiated {
		s.mu.Unlock()
		return
	}
	pending := s.recvQ.DrainAll()
	s.mu.Unlock()

	s.announceShutdownInitiated(origin)
	for _, p := range pending {
		p.Callback(nil, serr.New(serr.EOF, "receive half shut down", nil))
	}
	s.session.HandleQueueEvent(DirectionReceive, LowWatermark)
	s.session.HandleShutdown(ShutdownReceivePhase, origin)
	if res.Completed {
		s.session.HandleShutdown(ShutdownComplete, origin)
		s.Close()
	}
}

// Shutdown tears down mode, per §6.
func (s *StreamSocket) Shutdown(mode ShutdownMode) {
	switch mode {
	case ShutdownSendOnly:
		s.ShutdownSend()
	case ShutdownReceiveOnly:
		s.ShutdownReceive(shutdown.OriginLocal)
	case ShutdownBoth:
		s.ShutdownSend()
		s.ShutdownReceive(shutdown.OriginLocal)
	case ShutdownImmediate:
		s.mu.Lock()
		s.shut.ForceComplete()
		s.mu.Unlock()
		s.Close()
	}
}

// Close detaches the socket from the reactor and tears down both halves,
// per §6's close([callback]). cb, if given, fires once detachment and
// teardown are fully complete. Idempotent: a Close (or Shutdown) that
// arrives while a detach from an earlier Close is already in flight defers
// instead of acting twice, replaying once that detach's callback runs.
func (s *StreamSocket) Close(cb ...func()) error {
	var done func()
	if len(cb) > 0 {
		done = cb[0]
	}

	s.mu.Lock()
	if s.deferIfDetaching(func() { s.Close(cb...) }) {
		s.mu.Unlock()
		return nil
	}
	if s.closed {
		s.mu.Unlock()
		if done != nil {
			done()
		}
		return nil
	}
	s.closed = true
	s.detaching = true
	handle := s.handle
	s.mu.Unlock()

	close(s.closedCh)

	finish := func() { s.completeTeardown(done) }
	if handle != nil {
		s.opts.Reactor.DetachSocket(handle, finish)
	} else {
		finish()
	}
	return nil
}

// completeTeardown runs once the reactor confirms the handle is detached:
// it discards both queues (send entries Cancelled, receive registrations
// Cancelled), announces the full INITIATED/SEND/RECEIVE/COMPLETE sequence,
// closes the transport, tells Manager the socket is gone, then replays
// whatever Shutdown/Close calls arrived while the detach was in flight.
func (s *StreamSocket) completeTeardown(cb func()) {
	s.announceShutdownInitiated(shutdown.OriginLocal)

	s.mu.Lock()
	conn := s.conn
	s.shut.ForceComplete()
	discardedSend := s.sendQ.DrainAll()
	pendingRecv := s.recvQ.DrainAll()
	s.mu.Unlock()

	for _, e := range discardedSend {
		if e.Callback != nil {
			e.Callback(serr.New(serr.Cancelled, "socket closed", nil))
		}
	}
	if len(discardedSend) > 0 {
		s.session.HandleQueueEvent(DirectionSend, Discarded)
	}
	s.session.HandleShutdown(ShutdownSendPhase, shutdown.OriginLocal)

	for _, p := range pendingRecv {
		p.Callback(nil, serr.New(serr.Cancelled, "socket closed", nil))
	}
	s.session.HandleQueueEvent(DirectionReceive, LowWatermark)
	s.session.HandleShutdown(ShutdownReceivePhase, shutdown.OriginLocal)

	s.session.HandleShutdown(ShutdownComplete, shutdown.OriginLocal)

	if conn != nil {
		_ = conn.Close()
	}
	s.manager.HandleSocketClosed(s)

	s.mu.Lock()
	s.detaching = false
	deferred := s.deferred
	s.deferred = nil
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
	for _, fn := range deferred {
		fn()
	}
}

// ProcessZeroCopyNotification applies a kernel zero-copy completion report
// (§4.2) and dispatches any callbacks it completes. Go offers no portable
// zero-copy send API, so callers that plug in a platform-specific sender
// drive this method from that sender's completion queue.
func (s *StreamSocket) ProcessZeroCopyNotification(n zerocopy.Notification) {
	s.mu.Lock()
	s.zc.Update(n)
	var fired []func()
	for s.zc.HasDone() {
		data, cb, ok := s.zc.Pop()
		if !ok {
			break
		}
		if cb != nil {
			fired = append(fired, func() { cb(data, nil) })
		}
	}
	s.mu.Unlock()
	for _, f := range fired {
		f()
	}
}

func (s *StreamSocket) nudgeSendLoop() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// sendLoop drains sendQ against the reactor's write pump until the queue
// empties or the send half shuts down, per §4.8.
func (s *StreamSocket) sendLoop() {
	for {
		select {
		case <-s.closedCh:
			return
		case <-s.wake:
		}
		s.drainSendQueue()
	}
}

func (s *StreamSocket) drainSendQueue() {
	for {
		s.mu.Lock()
		if s.closed || s.sendQ.Empty() || !s.flow.Wants(flowcontrol.Send) {
			s.mu.Unlock()
			return
		}
		var bufs [][]byte
		var wireErr error
		if s.tlsActive {
			front := s.sendQ.Front()
			if front == nil {
				s.mu.Unlock()
				return
			}
			if err := s.tls.SendPlaintext(front.Data); err != nil {
				wireErr = err
			} else {
				out, _ := s.tls.DrainCiphertext()
				if len(out) > 0 {
					bufs = [][]byte{out}
				}
			}
		} else {
			bufs, _ = s.sendQ.BatchNext(sendqueue.BatchOptions{MaxBuffers: defaultBatchMaxBuffers, MaxBytes: defaultBatchMaxBytes})
		}
		handle := s.handle
		limiter := s.opts.Limiter
		s.mu.Unlock()

		if wireErr != nil {
			s.failFrontSend(wireErr)
			continue
		}
		if len(bufs) == 0 {
			return
		}
		total := 0
		for _, b := range bufs {
			total += len(b)
		}
		if !limiter.Allow(total) {
			s.opts.Metrics.IncRateLimitApplied()
			wait := limiter.SubmitTime(total)
			d := time.Until(wait)
			if d < 0 {
				d = 0
			}
			s.session.HandleQueueEvent(DirectionSend, RateLimitApplied)
			s.opts.Reactor.CreateTimer(d, func() {
				s.session.HandleQueueEvent(DirectionSend, RateLimitRelaxed)
				s.nudgeSendLoop()
			})
			return
		}

		done := make(chan reactor.WriteResult, 1)
		s.opts.Reactor.Writes(handle) <- reactor.WriteRequest{Bufs: bufs, Done: done}
		res := <-done

		s.mu.Lock()
		front := s.sendQ.Front()
		zeroCopyEntry := front != nil && front.ZeroCopy && !s.tlsActive
		if zeroCopyEntry && res.Err == nil {
			// A zero-copy send's completion is reported later, by the
			// kernel's zero-copy notification queue, not by the write
			// itself finishing — see ProcessZeroCopyNotification.
			s.zc.Push(front.ID, front, zerocopy.Callback(func(_ interface{}, err error) { front.Callback(err) }))
			s.zc.Frame(front.ID)
			s.sendQ.PopEntry()
		} else if s.tlsActive {
			if res.Err == nil {
				s.sendQ.PopEntry()
			}
		} else {
			s.sendQ.PopSize(res.N)
		}
		var announceLW, announceRelaxed bool
		if s.sendQ.AuthorizeLowWatermarkEvent() {
			s.opts.Metrics.IncLowWatermark()
			announceLW = true
			if action := s.flow.Relax(flowcontrol.Send, false); action.Changed {
				announceRelaxed = true
			}
		}
		s.opts.Metrics.AddBytesSent(res.N)
		s.mu.Unlock()

		if announceLW {
			go s.session.HandleQueueEvent(DirectionSend, LowWatermark)
		}
		if announceRelaxed {
			go s.session.HandleQueueEvent(DirectionSend, FlowControlRelaxed)
		}

		if res.Err != nil {
			s.routeTransportError(res.Err)
			return
		}
		s.fireCompletedSendCallbacks()
	}
}

// fireCompletedSendCallbacks invokes callbacks for entries PopSize/PopEntry
// fully drained. sendqueue already discards consumed entries; tracking which
// callbacks are now owed is done by popping the front only once its Data is
// empty, so this pass just looks at whether the front changed to empty Data.
func (s *StreamSocket) fireCompletedSendCallbacks() {
	for {
		s.mu.Lock()
		front := s.sendQ.Front()
		if front == nil || len(front.Data) > 0 {
			s.mu.Unlock()
			return
		}
		s.sendQ.PopEntry()
		s.mu.Unlock()
		if front.Callback != nil {
			front.Callback(nil)
		}
	}
}

func (s *StreamSocket) failFrontSend(err error) {
	s.mu.Lock()
	e := s.sendQ.PopEntry()
	s.mu.Unlock()
	if e != nil && e.Callback != nil {
		e.Callback(err)
	}
}

// recvLoop consumes the reactor's read pump and feeds the receive pipeline,
// per §4.9.
func (s *StreamSocket) recvLoop() {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	for {
		select {
		case <-s.closedCh:
			return
		case res, ok := <-s.opts.Reactor.Reads(handle):
			if !ok {
				return
			}
			s.processRead(res)
			if res.Err != nil {
				return
			}
		}
	}
}

func (s *StreamSocket) processRead(res reactor.ReadResult) {
	now := time.Now()
	var announceHW, announceUpgrade, announceDowngrade bool
	var peerCert *x509.Certificate

	s.mu.Lock()
	if len(res.Data) > 0 {
		s.opts.Metrics.AddBytesReceived(len(res.Data))
		if s.tlsActive {
			if err := s.tls.FeedCiphertext(res.Data); err != nil {
				s.mu.Unlock()
				s.routeTransportError(err)
				return
			}
			if !s.upgradeAnnounced && s.tls.IsEstablished() {
				s.upgradeAnnounced = true
				announceUpgrade = true
				peerCert = s.tls.PeerCertificate()
			}
			plain, err := s.tls.DrainPlaintext()
			if err != nil {
				s.mu.Unlock()
				s.routeTransportError(err)
				return
			}
			if len(plain) > 0 {
				s.recvQ.Append(plain, now)
			}
			if !s.downgradeAnnounced && s.tls.IsClosed() {
				s.downgradeAnnounced = true
				announceDowngrade = true
			}
		} else {
			s.recvQ.Append(res.Data, now)
		}
		s.recvQ.DispatchReady()
		if s.recvQ.AuthorizeHighWatermarkEvent() {
			s.opts.Metrics.IncHighWatermark()
			announceHW = true
		}
	}
	readErr := res.Err
	s.mu.Unlock()

	if announceUpgrade {
		s.session.HandleUpgradeComplete(peerCert)
	}
	if announceDowngrade {
		s.session.HandleDowngrade(DowngradeComplete)
	}
	if announceHW {
		go s.session.HandleQueueEvent(DirectionReceive, HighWatermark)
	}

	if readErr == nil {
		return
	}
	if readErr == io.EOF {
		s.ShutdownReceive(shutdown.OriginRemote)
		return
	}
	s.routeTransportError(readErr)
}

// routeTransportError classifies a kernel read/write error and either masks
// it as a symmetric graceful shutdown (ConnectionDead/ConnectionReset — the
// race between a peer's TLS close_notify and its TCP FIN/RST landing first,
// or an outright RST) or surfaces it to the session as a terminal error.
func (s *StreamSocket) routeTransportError(err error) {
	switch serr.ClassifyTransport(err) {
	case serr.ConnectionDead, serr.ConnectionReset:
		s.ShutdownReceive(shutdown.OriginRemote)
		s.ShutdownSend()
	default:
		s.handleTransportError(err)
	}
}

func (s *StreamSocket) handleTransportError(err error) {
	s.opts.Logger.Errorf("transport error: %v", err)
	s.session.HandleError(err)
	s.Close()
}

// LocalEndpoint and RemoteEndpoint report the addresses this socket is bound
// to, once connected/attached.
func (s *StreamSocket) LocalEndpoint() protocol.Endpoint  { return s.localEp }
func (s *StreamSocket) RemoteEndpoint() protocol.Endpoint { return s.remoteEp }

// IsConnected reports whether the socket currently has a live transport.
func (s *StreamSocket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}
