package reactor

import (
	"net"
	"testing"
	"time"

	"github.com/sabouaram/ntstream/bufferpool"
)

func TestLoopReactorEchoesReadsAndWrites(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	r := NewLoopReactor(0)
	h := r.AttachSocket(server, 1024, nil)
	defer r.DetachSocket(h, nil)

	go func() {
		client.Write([]byte("hello"))
	}()

	select {
	case res := <-r.Reads(h):
		if res.Err != nil {
			t.Fatalf("unexpected read error: %v", res.Err)
		}
		if string(res.Data) != "hello" {
			t.Fatalf("got %q want %q", res.Data, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for read")
	}

	done := make(chan WriteResult, 1)
	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := client.Read(buf)
		readDone <- buf[:n]
	}()
	r.Writes(h) <- WriteRequest{Bufs: [][]byte{[]byte("world")}, Done: done}

	select {
	case res := <-done:
		if res.Err != nil || res.N != 5 {
			t.Fatalf("write result = %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write completion")
	}

	select {
	case got := <-readDone:
		if string(got) != "world" {
			t.Fatalf("got %q want %q", got, "world")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for peer read")
	}
}

func TestLoopReactorReadsWithPooledBuffer(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	r := NewLoopReactor(0)
	pool := bufferpool.NewSyncPool()
	h := r.AttachSocket(server, 8, pool)
	defer r.DetachSocket(h, nil)

	go func() {
		client.Write([]byte("pooled-read"))
	}()

	select {
	case res := <-r.Reads(h):
		if res.Err != nil {
			t.Fatalf("unexpected read error: %v", res.Err)
		}
		if string(res.Data) != "pooled-read" {
			t.Fatalf("got %q want %q", res.Data, "pooled-read")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pooled read")
	}
}

func TestHandleReservationSemaphore(t *testing.T) {
	r := NewLoopReactor(1)
	if !r.AcquireHandleReservation() {
		t.Fatal("first acquire should succeed")
	}
	if r.AcquireHandleReservation() {
		t.Fatal("second acquire should fail at capacity 1")
	}
	r.ReleaseHandleReservation()
	if !r.AcquireHandleReservation() {
		t.Fatal("acquire after release should succeed")
	}
}

func TestCreateTimerFires(t *testing.T) {
	r := NewLoopReactor(0)
	fired := make(chan struct{})
	r.CreateTimer(10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
