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

// Package protocol enumerates the transports a stream socket can bind to.
package protocol

// Transport identifies the kernel address family/semantics a stream socket
// attaches to. Only stream-capable transports are modelled; datagram
// transports are out of this core's scope.
type Transport uint8

const (
	TransportEmpty Transport = iota
	TransportTCP
	TransportTCP4
	TransportTCP6
	TransportUnix
)

func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportTCP4:
		return "tcp4"
	case TransportTCP6:
		return "tcp6"
	case TransportUnix:
		return "unix"
	default:
		return ""
	}
}

// Int returns the transport as a small integer, for callers that carry it
// that way (configuration, metrics labels).
func (t Transport) Int() int {
	switch t {
	case TransportTCP:
		return 1
	case TransportTCP4:
		return 2
	case TransportTCP6:
		return 3
	case TransportUnix:
		return 4
	default:
		return 0
	}
}

// IsStream reports whether this transport supports a byte-stream socket
// (always true for the transports enumerated above).
func (t Transport) IsStream() bool {
	return t != TransportEmpty
}
