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

// Package tlspipeline implements the §4.10 upgrade/downgrade bridge: a
// push/pop primitive sits between the plaintext application stream and the
// ciphertext kernel stream, so TlsPipeline can feed it bytes already read
// off the wire and pull bytes to write back, without handing the kernel
// socket itself to crypto/tls.
package tlspipeline

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"sync"
	"time"

	serr "github.com/sabouaram/ntstream/errors"
)

// Primitive is the push/pop contract a TLS engine exposes to TlsPipeline.
type Primitive interface {
	// PushCiphertextIn feeds bytes read from the kernel into the engine.
	PushCiphertextIn(b []byte) error
	// PopPlaintextOut drains application bytes the engine has decrypted.
	PopPlaintextOut() ([]byte, error)
	// PushPlaintextDown feeds application bytes to be encrypted.
	PushPlaintextDown(b []byte) error
	// PopCiphertextOut drains bytes ready to write to the kernel.
	PopCiphertextOut() ([]byte, error)
	// IsHandshakeComplete reports whether the handshake has finished.
	IsHandshakeComplete() bool
	// IsShutdownComplete reports whether the close_notify exchange finished.
	IsShutdownComplete() bool
	// Shutdown requests a close_notify be queued for output.
	Shutdown() error
}

// pipeConn is the net.Conn half of an in-memory pipe that feeds bytes pushed
// in by TlsPipeline to whatever reads from it (here, a *tls.Conn), and
// queues bytes written by the peer for TlsPipeline to pop out.
type pipeConn struct {
	mu       sync.Mutex
	cond     *sync.Cond
	inbox    bytes.Buffer
	outbox   bytes.Buffer
	closed   bool
	readDead time.Time
}

func newPipeConn() *pipeConn {
	p := &pipeConn{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pipeConn) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.inbox.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.inbox.Len() == 0 && p.closed {
		return 0, io.EOF
	}
	return p.inbox.Read(b)
}

func (p *pipeConn) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, net.ErrClosed
	}
	n, err := p.outbox.Write(b)
	p.cond.Broadcast()
	return n, err
}

func (p *pipeConn) feedIn(b []byte) {
	p.mu.Lock()
	p.inbox.Write(b)
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *pipeConn) drainOut() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outbox.Len() == 0 {
		return nil
	}
	out := make([]byte, p.outbox.Len())
	p.outbox.Read(out)
	return out
}

func (p *pipeConn) Close() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	return nil
}

func (p *pipeConn) LocalAddr() net.Addr                { return pipeAddr{} }
func (p *pipeConn) RemoteAddr() net.Addr               { return pipeAddr{} }
func (p *pipeConn) SetDeadline(time.Time) error        { return nil }
func (p *pipeConn) SetReadDeadline(time.Time) error    { return nil }
func (p *pipeConn) SetWriteDeadline(time.Time) error   { return nil }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "tls-pipe" }
func (pipeAddr) String() string  { return "tls-pipe" }

// StdPrimitive bridges a real *tls.Conn to the Primitive interface using an
// in-memory pipeConn as the transport the tls.Conn believes it owns.
type StdPrimitive struct {
	conn   *tls.Conn
	bridge *pipeConn

	mu           sync.Mutex
	handshakeErr error
	handshakeOK  bool
	shutdownOK   bool
	plaintextIn  bytes.Buffer
	readErrOut   error
}

// NewClient builds a StdPrimitive performing the client side of the
// handshake once PushCiphertextIn/PopCiphertextOut start driving it.
func NewClient(cfg *tls.Config) *StdPrimitive {
	return newStdPrimitive(cfg, false)
}

// NewServer builds a StdPrimitive performing the server side of the handshake.
func NewServer(cfg *tls.Config) *StdPrimitive {
	return newStdPrimitive(cfg, true)
}

func newStdPrimitive(cfg *tls.Config, isServer bool) *StdPrimitive {
	bridge := newPipeConn()
	var conn *tls.Conn
	if isServer {
		conn = tls.Server(bridge, cfg)
	} else {
		conn = tls.Client(bridge, cfg)
	}
	p := &StdPrimitive{conn: conn, bridge: bridge}
	go p.pump()
	return p
}

// pump drives the handshake and continuously copies decrypted application
// bytes from the tls.Conn into the internal plaintext buffer, since
// crypto/tls only exposes a blocking Read.
func (p *StdPrimitive) pump() {
	if err := p.conn.Handshake(); err != nil {
		p.mu.Lock()
		p.handshakeErr = err
		p.mu.Unlock()
		return
	}
	p.mu.Lock()
	p.handshakeOK = true
	p.mu.Unlock()

	buf := make([]byte, 32*1024)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.plaintextIn.Write(buf[:n])
			p.mu.Unlock()
		}
		if err != nil {
			p.mu.Lock()
			if err == io.EOF {
				p.shutdownOK = true
			} else {
				p.readErrOut = err
			}
			p.mu.Unlock()
			return
		}
	}
}

func (p *StdPrimitive) PushCiphertextIn(b []byte) error {
	p.bridge.feedIn(b)
	return nil
}

func (p *StdPrimitive) PopPlaintextOut() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plaintextIn.Len() == 0 {
		if p.readErrOut != nil {
			return nil, serr.New(serr.Transport, "tls read failed", p.readErrOut)
		}
		return nil, nil
	}
	out := make([]byte, p.plaintextIn.Len())
	p.plaintextIn.Read(out)
	return out, nil
}

func (p *StdPrimitive) PushPlaintextDown(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := p.conn.Write(b)
	if err != nil {
		return serr.New(serr.Transport, "tls write failed", err)
	}
	return nil
}

func (p *StdPrimitive) PopCiphertextOut() ([]byte, error) {
	return p.bridge.drainOut(), nil
}

func (p *StdPrimitive) IsHandshakeComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handshakeOK
}

func (p *StdPrimitive) IsShutdownComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdownOK
}

func (p *StdPrimitive) Shutdown() error {
	return p.conn.CloseWrite()
}

// HandshakeErr returns the handshake failure, if any.
func (p *StdPrimitive) HandshakeErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handshakeErr
}

// PeerCertificate returns the leaf certificate the peer presented during
// the handshake, or nil if none was presented (or the handshake has not
// completed yet).
func (p *StdPrimitive) PeerCertificate() *x509.Certificate {
	certs := p.conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil
	}
	return certs[0]
}
