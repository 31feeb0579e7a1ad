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

// Package ratelimit is the rate limiter primitive §6 treats as an external
// collaborator, shareable across sockets. TokenBucket wraps
// golang.org/x/time/rate, the limiter used elsewhere in the retrieval pack
// for byte-budgeted throughput control.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the contract StreamSocket's send path consults before
// submitting bytes (§4.8 step 2); the receive path does not consult it.
type Limiter interface {
	// Allow reports whether n bytes may be submitted now.
	Allow(n int) bool
	// SubmitTime returns the instant at which n bytes would be allowed,
	// used to schedule the rate timer when Allow returns false.
	SubmitTime(n int) time.Time
	// Submit records that n bytes were actually sent/received.
	Submit(n int)
}

// TokenBucket is a Limiter backed by rate.Limiter, thread-safe by
// construction (may be shared across sockets, per §5).
type TokenBucket struct {
	lim *rate.Limiter
}

// NewTokenBucket builds a limiter allowing bytesPerSec sustained with the
// given burst, in bytes.
func NewTokenBucket(bytesPerSec float64, burst int) *TokenBucket {
	return &TokenBucket{lim: rate.NewLimiter(rate.Limit(bytesPerSec), burst)}
}

func (t *TokenBucket) Allow(n int) bool {
	return t.lim.AllowN(time.Now(), n)
}

func (t *TokenBucket) SubmitTime(n int) time.Time {
	r := t.lim.ReserveN(time.Now(), n)
	if !r.OK() {
		return time.Now()
	}
	delay := r.Delay()
	r.Cancel()
	return time.Now().Add(delay)
}

func (t *TokenBucket) Submit(n int) {
	// Tokens are already accounted for by Allow's AllowN call; Submit does
	// not adjust the bucket, so bytes allowed but not written (e.g. after a
	// partial kernel write) are not credited back.
}

// Unlimited is a Limiter that never throttles, used when no limiter is
// configured.
type Unlimited struct{}

func (Unlimited) Allow(int) bool              { return true }
func (Unlimited) SubmitTime(int) time.Time    { return time.Now() }
func (Unlimited) Submit(int)                  {}
