package udp

import (
	"net"
	"testing"
	"time"
)

func openPair(t *testing.T) (a, b *Queue) {
	t.Helper()
	a, err := Open("127.0.0.1:0", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	b, err = Open("127.0.0.1:0", "127.0.0.1:0")
	if err != nil {
		a.Close()
		t.Fatalf("open b: %v", err)
	}
	// Point each socket at the other's ephemeral listen port.
	a.addr = b.conn.LocalAddr().(*net.UDPAddr)
	b.addr = a.conn.LocalAddr().(*net.UDPAddr)
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func recvWithin(t *testing.T, q *Queue, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f, ok, err := q.Recv(); err == nil && ok {
			return f
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a datagram")
	return nil
}

func TestSendRecvRoundTrip(t *testing.T) {
	a, b := openPair(t)
	frame := []byte{1, 2, 3, 4}
	if err := a.Send(frame); err != nil {
		t.Fatal(err)
	}
	got := recvWithin(t, b, time.Second)
	if string(got) != string(frame) {
		t.Fatalf("frame = %v, want %v", got, frame)
	}
}

func TestRecvEmptyIsFalse(t *testing.T) {
	a, _ := openPair(t)
	if _, ok, err := a.Recv(); err != nil || ok {
		t.Fatalf("Recv() on idle socket = %v, %v, want false, nil", ok, err)
	}
}

func TestOpenRejectsBadAddr(t *testing.T) {
	if _, err := Open("not-an-addr", "127.0.0.1:0"); err == nil {
		t.Fatal("expected an error for an unparseable listen address")
	}
}

func TestCloseStopsReadLoop(t *testing.T) {
	a, b := openPair(t)
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Send([]byte{1}); err != nil {
		t.Fatal(err)
	}
	// a is closed; nothing should panic or deadlock draining it.
	if _, ok, _ := a.Recv(); ok {
		t.Fatal("expected no frames from a closed queue")
	}
}
