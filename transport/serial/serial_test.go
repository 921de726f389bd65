package serial

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

// newTestQueue wires a Queue to one end of a net.Pipe, standing in for
// the UART the production Open path dials through github.com/tarm/
// serial; the test drives the other end directly.
func newTestQueue(t *testing.T) (*Queue, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	q := &Queue{port: a, recv: make(chan []byte, 64), errs: make(chan error, 1), done: make(chan struct{})}
	go q.readLoop()
	t.Cleanup(func() { q.Close() })
	return q, b
}

func TestSendWritesLengthPrefixedFrame(t *testing.T) {
	q, peer := newTestQueue(t)
	frame := []byte{1, 2, 3, 4, 5}

	done := make(chan error, 1)
	go func() { done <- q.Send(frame) }()

	var lenBuf [frameLenBytes]byte
	if _, err := io.ReadFull(peer, lenBuf[:]); err != nil {
		t.Fatal(err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n != uint32(len(frame)) {
		t.Fatalf("length prefix = %d, want %d", n, len(frame))
	}
	got := make([]byte, n)
	if _, err := io.ReadFull(peer, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(frame) {
		t.Fatalf("frame = %v, want %v", got, frame)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send() = %v", err)
	}
}

func TestRecvDecodesIncomingFrame(t *testing.T) {
	q, peer := newTestQueue(t)
	frame := []byte{0xaa, 0xbb, 0xcc}

	var lenBuf [frameLenBytes]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	go func() {
		peer.Write(lenBuf[:])
		peer.Write(frame)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, ok, err := q.Recv(); err == nil && ok {
			if string(got) != string(frame) {
				t.Fatalf("frame = %v, want %v", got, frame)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for Recv() to surface the frame")
}

func TestRecvSurfacesReadErrorAfterClose(t *testing.T) {
	q, peer := newTestQueue(t)
	peer.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, ok, err := q.Recv()
		if err != nil {
			return
		}
		if ok {
			t.Fatal("expected no frame, only an error, after the peer closes")
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for the read error to surface")
}
