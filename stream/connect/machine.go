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

// Package connect implements the attempt/wait/retry loop of §4.7: a bare
// endpoint dials directly, a name goes through the resolver collaborator
// first, and either path is retried up to RetryCount times, spaced by
// RetryInterval, bounded by an overall deadline.
package connect

import (
	"context"
	"net"
	"sync"
	"time"

	serr "github.com/sabouaram/ntstream/errors"
	"github.com/sabouaram/ntstream/network/protocol"
	"github.com/sabouaram/ntstream/resolver"
)

// Target is what ConnectMachine dials: either a concrete Endpoint, or a
// hostname+port pair that must first go through the resolver.
type Target struct {
	Endpoint protocol.Endpoint
	Name     string // non-empty selects name-resolution path
	Port     int
}

// Dialer abstracts net.Dialer so tests can substitute a fake.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Result is delivered to Callback once the machine reaches a terminal state.
type Result struct {
	Conn net.Conn
	Err  error
}

// Callback receives the terminal connect outcome.
type Callback func(Result)

// Options configures the retry loop, grounded on config.ConnectOptions but
// kept independent to avoid an import cycle with the top-level config package.
type Options struct {
	RetryCount    int
	RetryInterval time.Duration
	Deadline      time.Duration
}

// Machine runs one connect attempt sequence. It is single-use: construct one
// per connect operation.
type Machine struct {
	dialer   Dialer
	resolver resolver.Resolver
	opts     Options

	mu        sync.Mutex
	cancelled bool
	attempt   int
	cancel    context.CancelFunc
	deadline  *time.Timer
}

// New builds a Machine. resolver may be nil if target.Name is never used.
func New(dialer Dialer, res resolver.Resolver, opts Options) *Machine {
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	return &Machine{dialer: dialer, resolver: res, opts: opts}
}

// Start begins the attempt/wait/retry loop and invokes cb exactly once,
// either with a live net.Conn or a terminal error.
func (m *Machine) Start(ctx context.Context, target Target, cb Callback) {
	if target.Name == "" && target.Endpoint.IsTriviallyInvalid() {
		cb(Result{Err: serr.New(serr.Invalid, "trivially invalid endpoint", nil)})
		return
	}

	var cancel context.CancelFunc
	if m.opts.Deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.opts.Deadline)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go m.loop(ctx, target, cb)
}

// Cancel aborts the in-flight attempt sequence; the pending Callback (if
// any) still fires, reporting errors.Cancelled.
func (m *Machine) Cancel() {
	m.mu.Lock()
	m.cancelled = true
	cancel := m.cancel
	if m.deadline != nil {
		m.deadline.Stop()
	}
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Machine) loop(ctx context.Context, target Target, cb Callback) {
	defer func() {
		m.mu.Lock()
		if m.deadline != nil {
			m.deadline.Stop()
		}
		m.mu.Unlock()
	}()

	var lastErr error
	for attempt := 0; attempt <= m.opts.RetryCount; attempt++ {
		m.mu.Lock()
		m.attempt = attempt
		cancelled := m.cancelled
		m.mu.Unlock()
		if cancelled {
			cb(Result{Err: serr.New(serr.Cancelled, "connect cancelled", lastErr)})
			return
		}
		select {
		case <-ctx.Done():
			cb(Result{Err: m.terminalFromCtx(ctx, lastErr)})
			return
		default:
		}

		conn, err := m.attemptOnce(ctx, target)
		if err == nil {
			m.mu.Lock()
			cancelled := m.cancelled
			m.mu.Unlock()
			if cancelled {
				_ = conn.Close()
				cb(Result{Err: serr.New(serr.Cancelled, "connect cancelled", nil)})
				return
			}
			cb(Result{Conn: conn})
			return
		}
		lastErr = err

		if attempt == m.opts.RetryCount {
			break
		}
		if m.opts.RetryInterval > 0 {
			t := time.NewTimer(m.opts.RetryInterval)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				cb(Result{Err: m.terminalFromCtx(ctx, lastErr)})
				return
			}
		}
	}

	cb(Result{Err: serr.New(serr.Transport, "connect retries exhausted", lastErr)})
}

func (m *Machine) terminalFromCtx(ctx context.Context, cause error) error {
	m.mu.Lock()
	cancelled := m.cancelled
	m.mu.Unlock()
	if cancelled {
		return serr.New(serr.Cancelled, "connect cancelled", cause)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return serr.New(serr.WouldBlock, "connect deadline exceeded", cause)
	}
	return serr.New(serr.Cancelled, "connect aborted", cause)
}

func (m *Machine) attemptOnce(ctx context.Context, target Target) (net.Conn, error) {
	ep := target.Endpoint
	if target.Name != "" {
		resolved, err := m.resolveOnce(ctx, target.Name, target.Port)
		if err != nil {
			return nil, err
		}
		ep = resolved
	}
	if ep.IsTriviallyInvalid() {
		return nil, serr.New(serr.Invalid, "trivially invalid resolved endpoint", nil)
	}
	network := ep.Transport.String()
	conn, err := m.dialer.DialContext(ctx, network, ep.String())
	if err != nil {
		return nil, serr.New(serr.Transport, "dial failed", err)
	}
	return conn, nil
}

func (m *Machine) resolveOnce(ctx context.Context, name string, port int) (protocol.Endpoint, error) {
	if m.resolver == nil {
		return protocol.Endpoint{}, serr.New(serr.Invalid, "no resolver configured for name-based connect", nil)
	}
	type outcome struct {
		ep  protocol.Endpoint
		err error
	}
	ch := make(chan outcome, 1)
	m.resolver.Resolve(ctx, name, port, func(ep protocol.Endpoint, _ string, err error) {
		ch <- outcome{ep: ep, err: err}
	})
	select {
	case o := <-ch:
		if o.err != nil {
			return protocol.Endpoint{}, serr.New(serr.Transport, "name resolution failed", o.err)
		}
		return o.ep, nil
	case <-ctx.Done():
		return protocol.Endpoint{}, m.terminalFromCtx(ctx, nil)
	}
}

// NetDialer adapts *net.Dialer to the Dialer interface.
type NetDialer struct {
	D *net.Dialer
}

func (n NetDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d := n.D
	if d == nil {
		d = &net.Dialer{}
	}
	return d.DialContext(ctx, network, address)
}
