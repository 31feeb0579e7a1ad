package protocol

import (
	"net"
	"strconv"
)

// Endpoint is an address (IPv4/IPv6 + port) or a local-domain path, per §3.
type Endpoint struct {
	Transport Transport
	Host      string // empty for Unix: use Path
	Port      int
	Path      string // populated only for TransportUnix
}

// String renders the endpoint the way net.Dial expects it as an address.
func (e Endpoint) String() string {
	if e.Transport == TransportUnix {
		return e.Path
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsTriviallyInvalid rejects the unspecified address (0.0.0.0/::) or port 0,
// the trivial-validity check applied before a connect attempt is dialed.
func (e Endpoint) IsTriviallyInvalid() bool {
	if e.Transport == TransportUnix {
		return e.Path == ""
	}
	if e.Port == 0 {
		return true
	}
	ip := net.ParseIP(e.Host)
	if ip != nil && ip.IsUnspecified() {
		return true
	}
	return false
}
