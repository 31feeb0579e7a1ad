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

package stream

import (
	"github.com/sabouaram/ntstream/bufferpool"
	"github.com/sabouaram/ntstream/internal/logext"
	"github.com/sabouaram/ntstream/metrics"
	"github.com/sabouaram/ntstream/ratelimit"
	"github.com/sabouaram/ntstream/resolver"
	"github.com/sabouaram/ntstream/stream/reactor"
)

// Options bundles the external collaborators §6 lists: a reactor, a DNS
// resolver, a buffer pool, a rate limiter, a metrics registry, and a logger.
// Every field is optional; a nil Reactor, Resolver, Pool, Limiter or Logger
// falls back to an unshared default (New creates a LoopReactor for each
// socket whose Reactor is nil, so sockets share a loop only when given the
// same Reactor instance, per §5). A nil Metrics records no metrics.
type Options struct {
	Reactor reactor.Reactor
	Resolver resolver.Resolver
	Pool     bufferpool.Pool
	Limiter  ratelimit.Limiter
	Metrics  *metrics.Registry
	Logger   logext.Logger

	LowWatermark    int
	HighWatermark   int
	ReadBufferHint  int
	KeepHalfOpen    bool
}

func (o Options) withDefaults() Options {
	if o.Pool == nil {
		o.Pool = bufferpool.NewSyncPool()
	}
	if o.Limiter == nil {
		o.Limiter = ratelimit.Unlimited{}
	}
	if o.Logger == nil {
		o.Logger = logext.Nop()
	}
	if o.Resolver == nil {
		o.Resolver = resolver.NewNetResolver()
	}
	if o.HighWatermark <= 0 {
		o.HighWatermark = 1 << 20
	}
	if o.ReadBufferHint <= 0 {
		o.ReadBufferHint = 64 * 1024
	}
	return o
}
