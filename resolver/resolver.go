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

// Package resolver is the DNS name-resolution collaborator §1/§6 treat as
// external to the core: StreamSocket calls it and resumes from an async
// callback, never blocking its own strand on a lookup.
package resolver

import (
	"context"
	"net"

	"golang.org/x/sync/singleflight"

	"github.com/sabouaram/ntstream/network/protocol"
)

// Callback delivers the resolved endpoint, or err if resolution failed.
type Callback func(ep protocol.Endpoint, nameServer string, err error)

// Resolver resolves a hostname+port to a concrete endpoint asynchronously.
type Resolver interface {
	Resolve(ctx context.Context, name string, port int, cb Callback)
}

// NetResolver wraps net.DefaultResolver (or a caller-supplied *net.Resolver),
// invoking cb on a background goroutine once the lookup completes — the
// asynchronous contract ConnectMachine's retry timer relies on (§4.7).
type NetResolver struct {
	R  *net.Resolver
	sf singleflight.Group
}

// NewNetResolver builds a NetResolver using net.DefaultResolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{R: net.DefaultResolver}
}

// Resolve looks up name, collapsing concurrent lookups of the same host
// (from sockets connecting to the same peer at once) into one underlying
// LookupHost call via singleflight.
func (n *NetResolver) Resolve(ctx context.Context, name string, port int, cb Callback) {
	r := n.R
	if r == nil {
		r = net.DefaultResolver
	}
	go func() {
		v, err, _ := n.sf.Do(name, func() (interface{}, error) {
			addrs, lookupErr := r.LookupHost(ctx, name)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if len(addrs) == 0 {
				return nil, &net.DNSError{Err: "no addresses found", Name: name}
			}
			return addrs[0], nil
		})
		if err != nil {
			cb(protocol.Endpoint{}, "", err)
			return
		}
		cb(protocol.Endpoint{Transport: protocol.TransportTCP, Host: v.(string), Port: port}, "", nil)
	}()
}
