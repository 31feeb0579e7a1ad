package connect

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	serr "github.com/sabouaram/ntstream/errors"
	"github.com/sabouaram/ntstream/network/protocol"
	"github.com/sabouaram/ntstream/resolver"
)

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (net.Conn, error)
}

func (f *fakeDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call)
}

func pipeConn() net.Conn {
	a, b := net.Pipe()
	go b.Close()
	return a
}

func TestMachineSucceedsFirstAttempt(t *testing.T) {
	d := &fakeDialer{fn: func(int) (net.Conn, error) { return pipeConn(), nil }}
	m := New(d, nil, Options{RetryCount: 2, RetryInterval: time.Millisecond})

	resCh := make(chan Result, 1)
	m.Start(context.Background(), Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "127.0.0.1", Port: 80}}, func(r Result) {
		resCh <- r
	})

	select {
	case r := <-resCh:
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		if d.calls != 1 {
			t.Fatalf("expected 1 dial attempt, got %d", d.calls)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestMachineRetriesThenSucceeds(t *testing.T) {
	d := &fakeDialer{fn: func(call int) (net.Conn, error) {
		if call < 3 {
			return nil, errors.New("refused")
		}
		return pipeConn(), nil
	}}
	m := New(d, nil, Options{RetryCount: 5, RetryInterval: time.Millisecond})

	resCh := make(chan Result, 1)
	m.Start(context.Background(), Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "127.0.0.1", Port: 80}}, func(r Result) {
		resCh <- r
	})

	select {
	case r := <-resCh:
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		if d.calls != 3 {
			t.Fatalf("expected 3 dial attempts, got %d", d.calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestMachineExhaustsRetries(t *testing.T) {
	d := &fakeDialer{fn: func(int) (net.Conn, error) { return nil, errors.New("refused") }}
	m := New(d, nil, Options{RetryCount: 2, RetryInterval: time.Millisecond})

	resCh := make(chan Result, 1)
	m.Start(context.Background(), Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "127.0.0.1", Port: 80}}, func(r Result) {
		resCh <- r
	})

	select {
	case r := <-resCh:
		if r.Err == nil {
			t.Fatal("expected error")
		}
		if d.calls != 3 {
			t.Fatalf("expected 3 dial attempts (1 + 2 retries), got %d", d.calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestMachineRejectsTriviallyInvalidEndpoint(t *testing.T) {
	d := &fakeDialer{fn: func(int) (net.Conn, error) { return pipeConn(), nil }}
	m := New(d, nil, Options{})

	resCh := make(chan Result, 1)
	m.Start(context.Background(), Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "0.0.0.0", Port: 80}}, func(r Result) {
		resCh <- r
	})

	r := <-resCh
	if r.Err == nil || serr.Code(r.Err) != serr.Invalid {
		t.Fatalf("expected Invalid code, got %v", r.Err)
	}
	if d.calls != 0 {
		t.Fatalf("dialer should never be called for a trivially invalid endpoint, got %d calls", d.calls)
	}
}

func TestMachineCancelDeliversCancelled(t *testing.T) {
	block := make(chan struct{})
	d := &fakeDialer{fn: func(int) (net.Conn, error) {
		<-block
		return pipeConn(), nil
	}}
	m := New(d, nil, Options{RetryCount: 3, RetryInterval: time.Millisecond})

	resCh := make(chan Result, 1)
	m.Start(context.Background(), Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "127.0.0.1", Port: 80}}, func(r Result) {
		resCh <- r
	})

	time.Sleep(20 * time.Millisecond)
	m.Cancel()
	close(block)

	select {
	case r := <-resCh:
		if r.Err == nil || serr.Code(r.Err) != serr.Cancelled {
			t.Fatalf("expected Cancelled, got %v", r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestMachineNameResolutionPath(t *testing.T) {
	d := &fakeDialer{fn: func(int) (net.Conn, error) { return pipeConn(), nil }}
	res := fakeResolver{ep: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "10.0.0.1", Port: 443}}
	m := New(d, res, Options{})

	resCh := make(chan Result, 1)
	m.Start(context.Background(), Target{Name: "example.internal", Port: 443}, func(r Result) {
		resCh <- r
	})

	r := <-resCh
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
}

type fakeResolver struct {
	ep  protocol.Endpoint
	err error
}

func (f fakeResolver) Resolve(_ context.Context, _ string, _ int, cb resolver.Callback) {
	go cb(f.ep, "", f.err)
}
