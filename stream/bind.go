package stream

import (
	"context"

	"github.com/sabouaram/ntstream/config"
	serr "github.com/sabouaram/ntstream/errors"
	"github.com/sabouaram/ntstream/network/protocol"
	"github.com/sabouaram/ntstream/stream/connect"
)

// BindResult is delivered to a BindCallback once a bind completes. Endpoint
// is always the concrete address bound to. Name/NameServer are populated
// only when the bind went through name resolution first (target.Name set).
type BindResult struct {
	Endpoint   protocol.Endpoint
	Name       string
	NameServer string
}

// BindCallback receives the terminal bind outcome.
type BindCallback func(BindResult, error)

// Bind assigns the socket's local address before Connect/Accept uses it,
// per §6's bind(endpoint|name, options, callback). A bare Endpoint in
// target binds directly; a Name goes through the resolver collaborator
// first, and the endpoint it resolves to is what actually gets bound —
// the result then also reports Name and, if the resolver named one,
// NameServer. Unless opts.Recurse is set, cb is dispatched through the
// reactor's executor rather than invoked inline, so a caller already
// holding its own lock is never reentered synchronously.
func (s *StreamSocket) Bind(ctx context.Context, target connect.Target, opts config.BindOptions, cb BindCallback) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return serr.New(serr.Invalid, "bind requires an unconnected socket", nil)
	}
	s.mu.Unlock()

	deliver := func(res BindResult, err error) {
		if opts.Recurse {
			cb(res, err)
			return
		}
		s.opts.Reactor.Execute(func() { cb(res, err) })
	}

	if target.Name == "" {
		s.bindEndpoint(target.Endpoint, BindResult{}, deliver)
		return nil
	}
	s.bindName(ctx, target.Name, target.Port, deliver)
	return nil
}

func (s *StreamSocket) bindName(ctx context.Context, name string, port int, deliver BindCallback) {
	s.opts.Resolver.Resolve(ctx, name, port, func(ep protocol.Endpoint, nameServer string, err error) {
		if err != nil {
			deliver(BindResult{Name: name}, serr.New(serr.Transport, "bind name resolution failed", err))
			return
		}
		s.bindEndpoint(ep, BindResult{Name: name, NameServer: nameServer}, deliver)
	})
}

func (s *StreamSocket) bindEndpoint(ep protocol.Endpoint, partial BindResult, deliver BindCallback) {
	if err := config.Validate(ep); err != nil {
		deliver(BindResult{}, serr.New(serr.Invalid, "bind endpoint invalid", err))
		return
	}
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		deliver(BindResult{}, serr.New(serr.Invalid, "socket connected concurrently with bind", nil))
		return
	}
	s.localEp = ep
	s.mu.Unlock()

	res := partial
	res.Endpoint = ep
	deliver(res, nil)
}
