package stream

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sabouaram/ntstream/config"
	serr "github.com/sabouaram/ntstream/errors"
	"github.com/sabouaram/ntstream/network/protocol"
	"github.com/sabouaram/ntstream/ratelimit"
	"github.com/sabouaram/ntstream/stream/connect"
	"github.com/sabouaram/ntstream/stream/zerocopy"
)

type fixedManager struct{ session Session }

func (m fixedManager) SessionFor(protocol.Endpoint) Session   { return m.session }
func (m fixedManager) HandleSocketEstablished(*StreamSocket) {}
func (m fixedManager) HandleSocketClosed(*StreamSocket)      {}

func newLoopbackPair(t *testing.T) (*StreamSocket, *StreamSocket) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan *StreamSocket, 1)
	go func() {
		listener := NewListener(ln, Options{HighWatermark: 1 << 20}, fixedManager{session: NopSession{}})
		sock, err := listener.Accept()
		if err != nil {
			return
		}
		accepted <- sock
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	client := New(Options{HighWatermark: 1 << 20}, NopSession{})
	target := connect.Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "127.0.0.1", Port: port}}
	if err := client.Connect(context.Background(), target, config.ConnectOptions{}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	var server *StreamSocket
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}

	t.Cleanup(func() { client.Close(); server.Close() })
	return client, server
}

func TestEchoRoundTrip(t *testing.T) {
	client, server := newLoopbackPair(t)

	message := []byte("0123456789abcdef0123456789abcde") // 32 bytes
	if len(message) != 32 {
		t.Fatalf("fixture message must be 32 bytes, got %d", len(message))
	}

	serverGotIt := make(chan struct{})
	server.Receive(config.ReceiveOptions{MinSize: len(message), MaxSize: len(message)}, func(data []byte, err error) {
		if err != nil {
			t.Errorf("server receive error: %v", err)
			return
		}
		if _, sendErr := server.Send(data, config.SendOptions{}, func(error) {}); sendErr != nil {
			t.Errorf("server echo send error: %v", sendErr)
		}
		close(serverGotIt)
	})

	echoed := make(chan []byte, 1)
	client.Receive(config.ReceiveOptions{MinSize: len(message), MaxSize: len(message)}, func(data []byte, err error) {
		if err != nil {
			t.Errorf("client receive error: %v", err)
			return
		}
		echoed <- data
	})

	if _, err := client.Send(message, config.SendOptions{}, func(error) {}); err != nil {
		t.Fatalf("client send: %v", err)
	}

	select {
	case <-serverGotIt:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}

	select {
	case got := <-echoed:
		if string(got) != string(message) {
			t.Fatalf("echoed %q, want %q", got, message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client never received the echo")
	}
}

func TestReceiveDeadlineFiresWouldBlock(t *testing.T) {
	client, _ := newLoopbackPair(t)

	start := time.Now()
	result := make(chan error, 1)
	client.Receive(config.ReceiveOptions{MinSize: 1024, MaxSize: 1024, Deadline: 150 * time.Millisecond}, func(_ []byte, err error) {
		result <- err
	})

	select {
	case err := <-result:
		elapsed := time.Since(start)
		if serr.Code(err) != serr.WouldBlock {
			t.Fatalf("expected WouldBlock, got %v", err)
		}
		if elapsed < 100*time.Millisecond {
			t.Fatalf("fired too early: %v", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
}

func TestCancelSendByToken(t *testing.T) {
	client, _ := newLoopbackPair(t)

	// Artificially throttle so the flush never wins the race against Cancel.
	client.opts.Limiter = ratelimit.NewTokenBucket(1, 1)

	token := uuid.New()
	var mu sync.Mutex
	var gotErr error
	done := make(chan struct{})
	id, err := client.Send(make([]byte, 4096), config.SendOptions{HasToken: true, Token: token}, func(err error) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
		close(done)
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	_ = id

	if !client.CancelSendToken(token) {
		t.Fatal("expected CancelSendToken to find the entry")
	}

	select {
	case <-done:
		mu.Lock()
		defer mu.Unlock()
		if serr.Code(gotErr) != serr.Cancelled {
			t.Fatalf("expected Cancelled, got %v", gotErr)
		}
	case <-time.After(time.Second):
		t.Fatal("cancel callback never fired")
	}
}

func TestConnectMachineCancelDuringBlockedDial(t *testing.T) {
	block := make(chan struct{})
	dialer := blockingDialer{block: block}
	m := connect.New(dialer, nil, connect.Options{RetryCount: 3, RetryInterval: 10 * time.Millisecond})

	resCh := make(chan connect.Result, 1)
	m.Start(context.Background(), connect.Target{Endpoint: protocol.Endpoint{Transport: protocol.TransportTCP, Host: "127.0.0.1", Port: 80}}, func(r connect.Result) {
		resCh <- r
	})

	time.Sleep(20 * time.Millisecond)
	m.Cancel()
	close(block)

	select {
	case r := <-resCh:
		if serr.Code(r.Err) != serr.Cancelled {
			t.Fatalf("expected Cancelled, got %v", r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

type blockingDialer struct{ block <-chan struct{} }

func (b blockingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	select {
	case <-b.block:
		a, bb := net.Pipe()
		go bb.Close()
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestZeroCopyNotificationFiresCallbackInFifoOrder(t *testing.T) {
	client, _ := newLoopbackPair(t)

	var mu sync.Mutex
	var order []int
	wait := make(chan struct{})

	for i := 0; i < 3; i++ {
		i := i
		_, err := client.Send([]byte{byte(i)}, config.SendOptions{ZeroCopy: true}, func(error) {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(wait)
			}
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	// Give the send loop a moment to submit all three writes to the kernel
	// and register them with the zero-copy queue before notifications arrive.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		client.ProcessZeroCopyNotification(zerocopy.Notification{From: uint32(i), Thru: uint32(i)})
	}

	select {
	case <-wait:
		mu.Lock()
		defer mu.Unlock()
		for i, v := range order {
			if v != i {
				t.Fatalf("callbacks fired out of order: %v", order)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("zero-copy callbacks never all fired")
	}
}
