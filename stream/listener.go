package stream

import (
	"net"

	"github.com/sabouaram/ntstream/network/protocol"
)

// Listener accepts inbound connections and wires each into a fresh
// StreamSocket, handing the new socket's Session off to Manager — the
// accept-side counterpart to Connect, per §6's Bind/Listen contract.
type Listener struct {
	ln      net.Listener
	opts    Options
	manager Manager
}

// NewListener wraps an already-bound net.Listener (TCP or Unix).
func NewListener(ln net.Listener, opts Options, manager Manager) *Listener {
	return &Listener{ln: ln, opts: opts, manager: manager}
}

// Accept blocks for one inbound connection, builds its StreamSocket, and
// returns it already attached and running.
func (l *Listener) Accept() (*StreamSocket, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	remote := endpointFromAddr(conn.RemoteAddr())
	session := l.manager.SessionFor(remote)
	sock := New(l.opts, session, l.manager)
	sock.Attach(conn, remote)
	return sock, nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func endpointFromAddr(addr net.Addr) protocol.Endpoint {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return protocol.Endpoint{Transport: protocol.TransportTCP}
	}
	transport := protocol.TransportTCP4
	if tcpAddr.IP.To4() == nil {
		transport = protocol.TransportTCP6
	}
	return protocol.Endpoint{Transport: transport, Host: tcpAddr.IP.String(), Port: tcpAddr.Port}
}
