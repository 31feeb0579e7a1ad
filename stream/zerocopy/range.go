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

// Package zerocopy correlates outstanding kernel zero-copy notification IDs
// with the user send callbacks that own the underlying buffers.
package zerocopy

// Range is a half-open interval [Min, Max) over a monotonic 64-bit counter.
type Range struct {
	Min uint64
	Max uint64
}

// Empty reports whether the range contains no counters.
func (r Range) Empty() bool {
	return r.Max <= r.Min
}

// Len reports how many counters the range covers.
func (r Range) Len() uint64 {
	if r.Empty() {
		return 0
	}
	return r.Max - r.Min
}

// Intersect returns the overlap of a and b, or the zero Range if disjoint.
func Intersect(a, b Range) Range {
	lo := a.Min
	if b.Min > lo {
		lo = b.Min
	}
	hi := a.Max
	if b.Max < hi {
		hi = b.Max
	}
	if hi <= lo {
		return Range{}
	}
	return Range{Min: lo, Max: hi}
}

// Difference returns up to two pieces of lhs not covered by rhs: the
// "result" piece and an "overflow" piece. When the leading piece is empty
// but the trailing one is not, they are swapped so result is always valid
// whenever the difference is non-empty (per §4.1).
func Difference(lhs, rhs Range) (result, overflow Range) {
	inter := Intersect(lhs, rhs)
	if inter.Empty() {
		return lhs, Range{}
	}

	before := Range{Min: lhs.Min, Max: inter.Min}
	after := Range{Min: inter.Max, Max: lhs.Max}

	if before.Empty() && !after.Empty() {
		return after, Range{}
	}
	return before, after
}
