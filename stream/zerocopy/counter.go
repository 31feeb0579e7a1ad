package zerocopy

import "math"

// CounterGenerator issues monotonic 64-bit send counters and converts the
// kernel's 32-bit (from, thru) inclusive notification pairs into 64-bit
// half-open ranges, detecting 32-bit wraparound per §4.1.
type CounterGenerator struct {
	next       uint64
	bias       uint64
	generation uint64
}

// Next allocates and returns the next monotonic counter for a new send.
func (g *CounterGenerator) Next() uint64 {
	c := g.next
	g.next++
	return c
}

// Generation reports how many 32-bit wraps have been observed so far.
func (g *CounterGenerator) Generation() uint64 {
	return g.generation
}

// Convert maps a kernel-reported inclusive (from, thru) 32-bit pair to a
// 64-bit half-open Range, bumping the bias/generation on wraparound.
func (g *CounterGenerator) Convert(from, thru uint32) Range {
	// offset, not bias alone: bias only accumulates 2^32-1 per wrap, so the
	// generation count has to be added back to reach the true 2^32 shift.
	offset := g.bias + g.generation
	wrapsWithin := from > thru
	atBoundary := thru == math.MaxUint32

	var r Range
	if wrapsWithin {
		size := uint64(math.MaxUint32-from) + uint64(thru) + 2
		r = Range{Min: offset + uint64(from), Max: offset + uint64(from) + size}
	} else {
		r = Range{Min: offset + uint64(from), Max: offset + uint64(thru) + 1}
	}

	if wrapsWithin || atBoundary {
		g.bias += uint64(math.MaxUint32)
		g.generation++
	}

	return r
}
