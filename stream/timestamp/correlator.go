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

// Package timestamp matches outgoing TX timestamp notifications (scheduled,
// sent, acked) back to the send-time of the originating write, per §4.9 step 4.
package timestamp

import "time"

// Kind distinguishes the three TX timestamp phases the kernel reports.
type Kind uint8

const (
	Scheduled Kind = iota
	Sent
	Acked
)

// Sample is one correlated measurement: the latency from the recorded
// pre-send instant to the kernel-reported phase.
type Sample struct {
	Counter  uint64
	Kind     Kind
	Recorded time.Time
	Reported time.Time
}

// Latency reports Reported - Recorded.
func (s Sample) Latency() time.Duration {
	return s.Reported.Sub(s.Recorded)
}

// Correlator tracks the pre-send timestamp for each outgoing byte counter and
// resolves kernel notifications against it. Entries are dropped only once
// the Acked phase resolves them; it has no size limit, so counters that
// never receive an Acked notification stay recorded.
type Correlator struct {
	recorded map[uint64]time.Time
}

// New constructs an empty Correlator.
func New() *Correlator {
	return &Correlator{recorded: make(map[uint64]time.Time)}
}

// Record stores the pre-send instant for counter, per §4.8 step 4.
func (c *Correlator) Record(counter uint64, at time.Time) {
	c.recorded[counter] = at
}

// Resolve matches a kernel TX timestamp notification back to its recorded
// pre-send instant. Acked notifications also forget the counter.
func (c *Correlator) Resolve(counter uint64, kind Kind, reported time.Time) (Sample, bool) {
	recorded, ok := c.recorded[counter]
	if !ok {
		return Sample{}, false
	}
	if kind == Acked {
		delete(c.recorded, counter)
	}
	return Sample{Counter: counter, Kind: kind, Recorded: recorded, Reported: reported}, true
}

// Pending reports how many counters are still awaiting a final (Acked)
// notification.
func (c *Correlator) Pending() int {
	return len(c.recorded)
}
