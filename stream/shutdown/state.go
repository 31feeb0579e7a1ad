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

// Package shutdown tracks which half of a stream socket (send/receive) is
// live, closed, or in progress, per §3/§4.3. Transitions are monotonic: once
// a half is shut down it cannot reopen.
package shutdown

// Origin identifies who initiated a half-shutdown.
type Origin uint8

const (
	OriginLocal Origin = iota
	OriginRemote
)

// Result reports the outcome of a shutdown request: whether this call is the
// one that initiated it, and whether the socket as a whole is now completed.
type Result struct {
	Initiated bool
	Completed bool
}

// State holds canSend/canReceive plus the half-open policy. completed latches
// once per §4.3 and is never cleared.
type State struct {
	canSend      bool
	canReceive   bool
	keepHalfOpen bool
	completed    bool
}

// New constructs a State with both halves live.
func New(keepHalfOpen bool) *State {
	return &State{canSend: true, canReceive: true, keepHalfOpen: keepHalfOpen}
}

// CanSend reports whether the send half is still live.
func (s *State) CanSend() bool { return s.canSend }

// CanReceive reports whether the receive half is still live.
func (s *State) CanReceive() bool { return s.canReceive }

// Completed reports whether a prior TryShutdown* call has marked the socket
// fully completed. With keepHalfOpen=true, neither TryShutdownSend nor
// TryShutdownReceive completes the socket, even once both halves are
// closed; only ForceComplete does.
func (s *State) Completed() bool {
	return s.completed
}

// TryShutdownSend marks the send half closed if it is still live. Per §4.3:
// if keepHalfOpen is false and the receive half is already closed, the
// socket is marked fully completed.
func (s *State) TryShutdownSend() Result {
	if !s.canSend {
		return Result{Initiated: false, Completed: s.completed}
	}
	s.canSend = false
	if !s.keepHalfOpen && !s.canReceive {
		s.completed = true
	}
	return Result{Initiated: true, Completed: s.completed}
}

// TryShutdownReceive is the receive-half analogue of TryShutdownSend. origin
// is carried by the caller into the announced shutdown event, not stored
// here (the state itself does not need to remember who asked).
func (s *State) TryShutdownReceive(origin Origin) Result {
	_ = origin
	if !s.canReceive {
		return Result{Initiated: false, Completed: s.completed}
	}
	s.canReceive = false
	if !s.keepHalfOpen && !s.canSend {
		s.completed = true
	}
	return Result{Initiated: true, Completed: s.completed}
}

// ForceComplete marks the socket completed unconditionally — used by an
// explicit BOTH/IMMEDIATE shutdown regardless of the half-open policy.
func (s *State) ForceComplete() {
	s.canSend = false
	s.canReceive = false
	s.completed = true
}
