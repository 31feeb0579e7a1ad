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

// Package flowcontrol tracks, per direction, whether the reactor is
// currently asked to signal readability/writability, with a reentrant
// relax/apply pair and a lock that prevents relaxation until unlocked, §4.4.
package flowcontrol

// Direction is one side of the socket: send (writable) or receive (readable).
type Direction uint8

const (
	Send Direction = iota
	Receive
)

// Action reports which direction(s) the caller must tell the reactor to
// show/hide events for. Zero value means "no change needed".
type Action struct {
	Dir     Direction
	Enable  bool
	Changed bool
}

type perDirection struct {
	wantEnable bool
	locked     bool
}

// State holds the per-direction flow-control flags for one stream socket.
type State struct {
	dirs [2]perDirection
}

// New constructs a State with both directions wanting events and unlocked.
func New() *State {
	s := &State{}
	s.dirs[Send] = perDirection{wantEnable: true}
	s.dirs[Receive] = perDirection{wantEnable: true}
	return s
}

// Wants reports whether dir currently wants reactor events.
func (s *State) Wants(dir Direction) bool {
	return s.dirs[dir].wantEnable
}

// Locked reports whether dir is currently locked against relaxation.
func (s *State) Locked(dir Direction) bool {
	return s.dirs[dir].locked
}

// Relax clears the lock if unlock is true, then — if not locked and
// currently disabled — flips to wanting events again, per §4.4.
func (s *State) Relax(dir Direction, unlock bool) Action {
	d := &s.dirs[dir]
	if unlock {
		d.locked = false
	}
	if d.locked || d.wantEnable {
		return Action{Dir: dir, Enable: true, Changed: false}
	}
	d.wantEnable = true
	return Action{Dir: dir, Enable: true, Changed: true}
}

// Apply sets the lock if lock is true (preventing future Relax without
// unlock), then flips to not wanting events, per §4.4.
func (s *State) Apply(dir Direction, lock bool) Action {
	d := &s.dirs[dir]
	if lock {
		d.locked = true
	}
	if !d.wantEnable {
		return Action{Dir: dir, Enable: false, Changed: false}
	}
	d.wantEnable = false
	return Action{Dir: dir, Enable: false, Changed: true}
}
