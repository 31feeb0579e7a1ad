package config

import (
	"fmt"
	"time"

	"github.com/sabouaram/ntstream/network/protocol"
)

// ConnectOptions mirrors §6's connect options: retryCount, retryInterval,
// deadline.
type ConnectOptions struct {
	RetryCount    int
	RetryInterval time.Duration
	Deadline      time.Duration
}

// BindOptions mirrors §6's bind options.
type BindOptions struct {
	Deadline time.Duration
	Recurse  bool
}

// SendOptions mirrors §6's send options.
type SendOptions struct {
	Deadline      time.Duration
	Token         [16]byte
	HasToken      bool
	HighWatermark int
	OverrideHW    bool
	Recurse       bool
	ZeroCopy      bool
}

// ReceiveOptions mirrors §6's receive options (both polling and callback forms).
type ReceiveOptions struct {
	MinSize  int
	MaxSize  int
	Deadline time.Duration
	Token    [16]byte
	HasToken bool
	Recurse  bool
}

// UpgradeOptions mirrors §6's upgrade options.
type UpgradeOptions struct {
	Deadline time.Duration
	TLS      TLSConfig
	IsServer bool
}

// Endpoint re-exports protocol.Endpoint for configuration-surface convenience.
type Endpoint = protocol.Endpoint

// Validate checks the trivial address-shape constraints a socket config
// package enforces: the protocol is set and the endpoint is not trivially
// invalid (zero port, unspecified IP, or an empty Unix path). An empty host
// on a non-Unix endpoint is not rejected here.
func Validate(ep Endpoint) error {
	if ep.Transport == protocol.TransportEmpty {
		return fmt.Errorf("socket config: network protocol not set")
	}
	if ep.IsTriviallyInvalid() {
		return fmt.Errorf("socket config: trivially invalid endpoint %q", ep.String())
	}
	return nil
}
