package tlspipeline

import (
	"crypto/x509"
	"sync"

	serr "github.com/sabouaram/ntstream/errors"
)

// certificateSource is implemented by Primitives that can report the peer's
// leaf certificate (StdPrimitive, backed by crypto/tls). A test double that
// does not implement it simply has no peer certificate to report.
type certificateSource interface {
	PeerCertificate() *x509.Certificate
}

// Phase tracks where the upgrade/downgrade sequence is.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseHandshaking
	PhaseEstablished
	PhaseShuttingDown
	PhaseClosed
)

// TlsPipeline drives a Primitive across an upgrade, steady-state traffic, and
// an eventual downgrade (close_notify exchange), per §4.10. It owns no
// socket I/O itself: StreamSocket feeds it kernel-read ciphertext and pulls
// ciphertext to submit to the kernel.
type TlsPipeline struct {
	mu    sync.Mutex
	prim  Primitive
	phase Phase
}

// New wraps an already-constructed Primitive (client or server) as a
// pipeline in the handshaking phase.
func New(prim Primitive) *TlsPipeline {
	return &TlsPipeline{prim: prim, phase: PhaseHandshaking}
}

// Phase reports the current upgrade/downgrade phase.
func (t *TlsPipeline) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// FeedCiphertext hands kernel-read bytes to the underlying engine and
// advances the phase to Established the first time the handshake completes.
func (t *TlsPipeline) FeedCiphertext(b []byte) error {
	if err := t.prim.PushCiphertextIn(b); err != nil {
		return err
	}
	t.mu.Lock()
	if t.phase == PhaseHandshaking && t.prim.IsHandshakeComplete() {
		t.phase = PhaseEstablished
	}
	t.mu.Unlock()
	return nil
}

// DrainCiphertext pulls bytes ready to submit to the kernel socket.
func (t *TlsPipeline) DrainCiphertext() ([]byte, error) {
	return t.prim.PopCiphertextOut()
}

// DrainPlaintext pulls application bytes decrypted so far.
func (t *TlsPipeline) DrainPlaintext() ([]byte, error) {
	out, err := t.prim.PopPlaintextOut()
	t.mu.Lock()
	if t.phase == PhaseShuttingDown && t.prim.IsShutdownComplete() {
		t.phase = PhaseClosed
	}
	t.mu.Unlock()
	return out, err
}

// SendPlaintext queues application bytes for encryption; callers must then
// DrainCiphertext to obtain the kernel-bound bytes.
func (t *TlsPipeline) SendPlaintext(b []byte) error {
	t.mu.Lock()
	phase := t.phase
	t.mu.Unlock()
	if phase != PhaseEstablished {
		return serr.New(serr.Invalid, "tls pipeline not established", nil)
	}
	return t.prim.PushPlaintextDown(b)
}

// Downgrade starts the close_notify handshake (§4.10 downgrade path).
func (t *TlsPipeline) Downgrade() error {
	t.mu.Lock()
	t.phase = PhaseShuttingDown
	t.mu.Unlock()
	return t.prim.Shutdown()
}

// PeerCertificate returns the peer's leaf certificate, if the underlying
// Primitive can report one and the handshake presented one.
func (t *TlsPipeline) PeerCertificate() *x509.Certificate {
	if src, ok := t.prim.(certificateSource); ok {
		return src.PeerCertificate()
	}
	return nil
}

// IsEstablished reports whether the handshake has completed.
func (t *TlsPipeline) IsEstablished() bool {
	return t.Phase() == PhaseEstablished
}

// IsClosed reports whether the downgrade close_notify exchange finished.
func (t *TlsPipeline) IsClosed() bool {
	return t.Phase() == PhaseClosed
}
