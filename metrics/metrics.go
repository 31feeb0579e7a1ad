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

// Package metrics is the observability collaborator of §6, grounded on
// nabbar-golib's prometheus/metrics registry: counters for bytes
// transferred and watermark/rate-limit crossings, injected at construction
// rather than reached for through a process-wide singleton (§9).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the set of counters StreamSocket updates. A nil *Registry is
// valid and all methods become no-ops, so metrics remain optional.
type Registry struct {
	BytesSent        prometheus.Counter
	BytesReceived    prometheus.Counter
	HighWatermarks   prometheus.Counter
	LowWatermarks    prometheus.Counter
	RateLimitApplied prometheus.Counter
}

// NewRegistry builds counters registered under the given namespace/subsystem.
func NewRegistry(namespace, subsystem string) *Registry {
	mk := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	return &Registry{
		BytesSent:        mk("bytes_sent_total", "total bytes sent on the stream"),
		BytesReceived:    mk("bytes_received_total", "total bytes received on the stream"),
		HighWatermarks:   mk("high_watermark_total", "high watermark crossings announced"),
		LowWatermarks:    mk("low_watermark_total", "low watermark crossings announced"),
		RateLimitApplied: mk("rate_limit_applied_total", "rate limit applications"),
	}
}

// Collectors returns every counter for registration with a prometheus.Registerer.
func (r *Registry) Collectors() []prometheus.Collector {
	if r == nil {
		return nil
	}
	return []prometheus.Collector{r.BytesSent, r.BytesReceived, r.HighWatermarks, r.LowWatermarks, r.RateLimitApplied}
}

func (r *Registry) AddBytesSent(n int) {
	if r == nil {
		return
	}
	r.BytesSent.Add(float64(n))
}

func (r *Registry) AddBytesReceived(n int) {
	if r == nil {
		return
	}
	r.BytesReceived.Add(float64(n))
}

func (r *Registry) IncHighWatermark() {
	if r == nil {
		return
	}
	r.HighWatermarks.Inc()
}

func (r *Registry) IncLowWatermark() {
	if r == nil {
		return
	}
	r.LowWatermarks.Inc()
}

func (r *Registry) IncRateLimitApplied() {
	if r == nil {
		return
	}
	r.RateLimitApplied.Inc()
}
