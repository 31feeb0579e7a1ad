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

// Package errors models the failure taxonomy of the stream socket core as a
// small tagged-variant CodeError rather than Go's open-ended error values,
// so callers can switch on "kind" without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"runtime"
	"syscall"
)

// CodeError classifies a failure the way ntcr_streamsocket's error taxonomy does:
// a closed set of semantic kinds, not a typename per failure site.
type CodeError uint8

const (
	// Unknown is the zero value; never returned deliberately.
	Unknown CodeError = iota
	// WouldBlock means retry later; never surfaced to a user callback except as a
	// deadline/cancel result.
	WouldBlock
	// EOF means the peer closed its send half.
	EOF
	// Cancelled means the operation was cancelled by token or by teardown.
	Cancelled
	// ConnectionDead means the peer hard-closed; treated as symmetric shutdown.
	ConnectionDead
	// ConnectionReset mirrors ConnectionDead for an RST instead of a FIN.
	ConnectionReset
	// Invalid means the operation is not valid in the current state.
	Invalid
	// Limit means a handle reservation or other resource limit was exhausted.
	Limit
	// NotImplemented means a platform feature is absent (e.g. TX timestamps on non-Linux).
	NotImplemented
	// Transport is any other kernel/transport error, surfaced to the session.
	Transport
)

func (c CodeError) String() string {
	switch c {
	case WouldBlock:
		return "would-block"
	case EOF:
		return "eof"
	case Cancelled:
		return "cancelled"
	case ConnectionDead:
		return "connection-dead"
	case ConnectionReset:
		return "connection-reset"
	case Invalid:
		return "invalid"
	case Limit:
		return "limit"
	case NotImplemented:
		return "not-implemented"
	case Transport:
		return "transport"
	default:
		return "unknown"
	}
}

// StreamError is the concrete error type returned across the public API.
// It carries the semantic code plus the originating cause and call site.
type StreamError struct {
	code  CodeError
	msg   string
	cause error
	file  string
	line  int
}

func (e *StreamError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.code, e.msg, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *StreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Code reports the semantic kind of this error.
func (e *StreamError) Code() CodeError {
	if e == nil {
		return Unknown
	}
	return e.code
}

// Is reports whether e carries code. It takes a CodeError rather than an
// error, so the standard errors.Is does not consult it; use Code or this
// method to compare kinds.
func (e *StreamError) Is(code CodeError) bool {
	return e != nil && e.code == code
}

// New builds a StreamError, capturing the immediate caller's file/line.
func New(code CodeError, msg string, cause error) *StreamError {
	_, file, line, _ := runtime.Caller(1)
	return &StreamError{code: code, msg: msg, cause: cause, file: file, line: line}
}

// WouldBlockErr is a shared, allocation-free instance for the hot path.
var WouldBlockErr = New(WouldBlock, "operation would block", nil)

// IsWouldBlock reports whether err is (or wraps) a WouldBlock StreamError.
func IsWouldBlock(err error) bool {
	var se *StreamError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Is(WouldBlock)
}

// Code extracts the CodeError from err, or Unknown if err is not a StreamError.
func Code(err error) CodeError {
	if e, ok := err.(*StreamError); ok && e != nil {
		return e.code
	}
	return Unknown
}

// ClassifyTransport maps a raw kernel I/O error to the taxonomy's transport
// codes, per the ConnectionDead/ConnectionReset distinction §4.12 names: a
// peer RST classifies as ConnectionReset, a write past a half the kernel
// already tore down (the race between a peer's TLS close_notify and the
// TCP FIN/RST landing first) classifies as ConnectionDead, and everything
// else is a plain Transport error. io.EOF is not classified here — callers
// handle it as the read-half's graceful end before ever reaching this.
func ClassifyTransport(err error) CodeError {
	if err == nil || err == io.EOF {
		return Unknown
	}
	if stderrors.Is(err, syscall.ECONNRESET) {
		return ConnectionReset
	}
	if stderrors.Is(err, syscall.EPIPE) {
		return ConnectionDead
	}
	return Transport
}
