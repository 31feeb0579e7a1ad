package stream

import (
	"crypto/x509"

	"github.com/sabouaram/ntstream/network/protocol"
	"github.com/sabouaram/ntstream/stream/shutdown"
)

// QueueDirection distinguishes a socket's send half from its receive half
// for the queue events below.
type QueueDirection uint8

const (
	DirectionSend QueueDirection = iota
	DirectionReceive
)

// QueueEvent is one queue-state transition announced to the Session, per
// §6's Observability list: watermark crossings, flow-control and rate-limit
// state changes, and outright queue discards (on shutdown/close).
type QueueEvent uint8

const (
	LowWatermark QueueEvent = iota
	HighWatermark
	FlowControlApplied
	FlowControlRelaxed
	RateLimitApplied
	RateLimitRelaxed
	Discarded
)

// ShutdownPhase is where a shutdown sequence currently stands. It mirrors
// the four-value taxonomy a socket's teardown sequence passes through:
// INITIATED fires once, at the start of any shutdown (half or full); SEND
// fires once the send half's teardown work (queue discard, CloseWrite) is
// done; RECEIVE fires once the receive half's teardown (pending reads
// failed with EOF, a forced low-watermark so a poller observes it) is done;
// COMPLETE fires once both halves are torn down.
type ShutdownPhase uint8

const (
	ShutdownInitiated ShutdownPhase = iota
	ShutdownSendPhase
	ShutdownReceivePhase
	ShutdownComplete
)

// DowngradePhase marks progress through a TLS close_notify exchange.
type DowngradePhase uint8

const (
	DowngradeInitiated DowngradePhase = iota
	DowngradeComplete
)

// Session receives the asynchronous events §6 describes: queue state
// changes, shutdown/downgrade phase transitions, upgrade completion (with
// the peer certificate, if any was presented), and terminal transport
// errors. A socket's Session is set once, at construction, and never
// swapped.
type Session interface {
	HandleQueueEvent(dir QueueDirection, event QueueEvent)
	HandleShutdown(phase ShutdownPhase, origin shutdown.Origin)
	HandleDowngrade(phase DowngradePhase)
	HandleUpgradeComplete(peerCert *x509.Certificate)
	HandleError(err error)
}

// NopSession discards every event; used by callers that only poll.
type NopSession struct{}

func (NopSession) HandleQueueEvent(QueueDirection, QueueEvent)   {}
func (NopSession) HandleShutdown(ShutdownPhase, shutdown.Origin) {}
func (NopSession) HandleDowngrade(DowngradePhase)                {}
func (NopSession) HandleUpgradeComplete(*x509.Certificate)       {}
func (NopSession) HandleError(error)                             {}

// Manager is the accept-side collaborator §6 describes: given a freshly
// accepted endpoint, it supplies the Session the new StreamSocket should
// report events to, and is in turn told when that socket becomes live and
// when it finally closes.
type Manager interface {
	SessionFor(ep protocol.Endpoint) Session
	HandleSocketEstablished(sock *StreamSocket)
	HandleSocketClosed(sock *StreamSocket)
}

// NopManager hands out NopSession and ignores the established/closed
// lifecycle hooks; the default for callers that only poll and never Bind a
// listener of their own.
type NopManager struct{}

func (NopManager) SessionFor(protocol.Endpoint) Session   { return NopSession{} }
func (NopManager) HandleSocketEstablished(*StreamSocket) {}
func (NopManager) HandleSocketClosed(*StreamSocket)      {}

// ShutdownMode selects which half(s) of the socket Shutdown tears down.
type ShutdownMode uint8

const (
	ShutdownSendOnly ShutdownMode = iota
	ShutdownReceiveOnly
	ShutdownBoth
	ShutdownImmediate
)
