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

// Package bufferpool is the blob/buffer pool collaborator of §6: the
// receive path reserves capacity here before each kernel read, sizing the
// next reservation from the prior read's fill ratio (§4.9 step 2).
package bufferpool

import "sync"

// Pool hands out reusable byte slices.
type Pool interface {
	Get(hint int) []byte
	Put(b []byte)
}

// SyncPool is a Pool backed by sync.Pool, bucketed by power-of-two size.
type SyncPool struct {
	pools [33]sync.Pool // bucket i holds slices of capacity 1<<i
}

// NewSyncPool constructs an empty SyncPool.
func NewSyncPool() *SyncPool {
	return &SyncPool{}
}

func bucketFor(n int) int {
	b := 0
	for (1 << b) < n {
		b++
	}
	if b > 32 {
		b = 32
	}
	return b
}

func (p *SyncPool) Get(hint int) []byte {
	if hint <= 0 {
		hint = 4096
	}
	b := bucketFor(hint)
	if v := p.pools[b].Get(); v != nil {
		buf := v.([]byte)
		return buf[:0]
	}
	return make([]byte, 0, 1<<b)
}

func (p *SyncPool) Put(b []byte) {
	if cap(b) == 0 {
		return
	}
	bk := bucketFor(cap(b))
	if 1<<bk > cap(b) {
		bk--
	}
	p.pools[bk].Put(b[:0]) //nolint:staticcheck
}

// AdaptiveSize computes the next reservation hint from how full the
// previous kernel read filled the buffer it was given, per §4.9 step 2:
// a read that filled the buffer grows the next reservation; one that
// under-filled it shrinks it, within [min, max].
func AdaptiveSize(prevCap, prevFilled, min, max int) int {
	if prevCap <= 0 {
		return min
	}
	ratio := float64(prevFilled) / float64(prevCap)
	next := prevCap
	switch {
	case ratio > 0.9:
		next = prevCap * 2
	case ratio < 0.25:
		next = prevCap / 2
	}
	if next < min {
		next = min
	}
	if next > max {
		next = max
	}
	return next
}
