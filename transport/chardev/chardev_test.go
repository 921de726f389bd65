//go:build linux

package chardev

import (
	"bytes"
	"testing"

	"wrtd.dev/internal/regwin"
)

func newTestQueue(depth, width uint32) *Queue {
	perRing := ringHeader + depth*(width+1)
	return openWindow(regwin.NewMem(perRing*2), depth, width)
}

func TestSendRecvRoundTrip(t *testing.T) {
	q := newTestQueue(4, 8)
	frame := []byte{1, 2, 3, 4, 5}
	if err := q.Send(frame); err != nil {
		t.Fatal(err)
	}
	// Send writes the outgoing ring and Recv reads the incoming one, so
	// the frame is read back through a peer view of the same window
	// with the two rings swapped, standing in for the card side.
	peer := &Queue{win: q.win, depth: q.depth, width: q.width, out: q.in, in: q.out}
	got, ok, err := peer.Recv()
	if err != nil || !ok {
		t.Fatalf("Recv() = %v, %v, %v", got, ok, err)
	}
	// Recv pads the frame out to a whole number of words.
	if !bytes.Equal(got[:len(frame)], frame) {
		t.Fatalf("frame = %v, want prefix %v", got, frame)
	}
}

func TestSendFullRingErrors(t *testing.T) {
	q := newTestQueue(2, 4)
	if err := q.Send([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := q.Send([]byte{2}); err != nil {
		t.Fatal(err)
	}
	if err := q.Send([]byte{3}); err == nil {
		t.Fatal("expected an error once the outgoing ring is at depth")
	}
}

func TestRecvEmptyIsFalse(t *testing.T) {
	q := newTestQueue(4, 8)
	_, ok, err := q.Recv()
	if err != nil || ok {
		t.Fatalf("Recv() on empty ring = %v, %v, want false, nil", ok, err)
	}
}

func TestSendFrameTooWideErrors(t *testing.T) {
	q := newTestQueue(4, 2) // 2 words = 8 bytes
	if err := q.Send(make([]byte, 16)); err == nil {
		t.Fatal("expected an error for a frame wider than the slot")
	}
}

// Send writes the outgoing ring (q.out) and Recv reads the incoming
// ring (q.in); this test writes directly into the "in" ring the way
// the card side would.
func TestIncomingRing(t *testing.T) {
	q := newTestQueue(4, 4)
	base := q.slotBase(q.in, 0)
	q.win.WriteWord(base, 1)
	q.win.WriteWord(base+1, 0xdeadbeef)
	q.win.WriteWord(q.in+1, 1) // tail
	q.win.WriteWord(q.in+2, 1) // count

	frame, ok, err := q.Recv()
	if err != nil || !ok {
		t.Fatalf("Recv() = %v, %v, %v", frame, ok, err)
	}
	want := []byte{0xef, 0xbe, 0xad, 0xde}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %x, want %x", frame, want)
	}
}
