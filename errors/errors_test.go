package errors_test

import (
	stderrs "errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	liberr "github.com/sabouaram/ntstream/errors"
)

func TestCodeErrorString(t *testing.T) {
	cases := []struct {
		code liberr.CodeError
		want string
	}{
		{liberr.Unknown, "unknown"},
		{liberr.WouldBlock, "would-block"},
		{liberr.EOF, "eof"},
		{liberr.Cancelled, "cancelled"},
		{liberr.ConnectionDead, "connection-dead"},
		{liberr.ConnectionReset, "connection-reset"},
		{liberr.Invalid, "invalid"},
		{liberr.Limit, "limit"},
		{liberr.NotImplemented, "not-implemented"},
		{liberr.Transport, "transport"},
		{liberr.CodeError(255), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.code.String(); got != tc.want {
			t.Errorf("CodeError(%d).String() = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestNewAndUnwrap(t *testing.T) {
	cause := stderrs.New("underlying")
	err := liberr.New(liberr.Transport, "send failed", cause)

	if err.Code() != liberr.Transport {
		t.Fatalf("Code() = %v, want Transport", err.Code())
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty Error() message")
	}
}

func TestIsWouldBlock(t *testing.T) {
	if !liberr.IsWouldBlock(liberr.WouldBlockErr) {
		t.Fatalf("expected WouldBlockErr to be WouldBlock")
	}
	if liberr.IsWouldBlock(stderrs.New("plain")) {
		t.Fatalf("plain stdlib error must not be WouldBlock")
	}
	if liberr.IsWouldBlock(nil) {
		t.Fatalf("nil error must not be WouldBlock")
	}
}

func TestCodeHelper(t *testing.T) {
	if liberr.Code(nil) != liberr.Unknown {
		t.Fatalf("Code(nil) should be Unknown")
	}
	err := liberr.New(liberr.Cancelled, "cancelled by token", nil)
	if liberr.Code(err) != liberr.Cancelled {
		t.Fatalf("Code(err) = %v, want Cancelled", liberr.Code(err))
	}
}

func TestClassifyTransport(t *testing.T) {
	wrap := func(errno syscall.Errno) error {
		return &net.OpError{Op: "write", Err: &os.SyscallError{Syscall: "write", Err: errno}}
	}

	if got := liberr.ClassifyTransport(nil); got != liberr.Unknown {
		t.Fatalf("ClassifyTransport(nil) = %v, want Unknown", got)
	}
	if got := liberr.ClassifyTransport(io.EOF); got != liberr.Unknown {
		t.Fatalf("ClassifyTransport(io.EOF) = %v, want Unknown (handled separately)", got)
	}
	if got := liberr.ClassifyTransport(wrap(syscall.ECONNRESET)); got != liberr.ConnectionReset {
		t.Fatalf("ClassifyTransport(ECONNRESET) = %v, want ConnectionReset", got)
	}
	if got := liberr.ClassifyTransport(wrap(syscall.EPIPE)); got != liberr.ConnectionDead {
		t.Fatalf("ClassifyTransport(EPIPE) = %v, want ConnectionDead", got)
	}
	if got := liberr.ClassifyTransport(stderrs.New("boom")); got != liberr.Transport {
		t.Fatalf("ClassifyTransport(plain) = %v, want Transport", got)
	}
}
