//go:build linux

// Package chardev implements the production transport.Queue backend:
// the kernel character device's mmap'd slot window, consumed through
// internal/regwin.OpenMmap exactly as the out-of-scope kernel driver's
// ioctl/mmap surface intends (spec.md §1, §4.8). Only the consumer
// side is modeled here; the driver itself is out of scope.
//
// The mapped window holds two independent rings, one per direction,
// laid out as [head, tail, count, slot0, slot1, ...] words — the same
// shape as internal/mqueue.Loopback's shared-memory queue, but sized
// to the frame width this host negotiates with the card instead of a
// single fixed trigger.Entry record.
package chardev

import (
	"fmt"

	"wrtd.dev/internal/regwin"
	"wrtd.dev/transport"
)

const ringHeader = 3 // head, tail, count

// Queue is a transport.Queue backed by a memory-mapped character
// device window.
type Queue struct {
	win   regwin.Window
	depth uint32
	width uint32 // words per slot, excluding the length prefix
	out   uint32 // word offset of the outgoing ring
	in    uint32 // word offset of the incoming ring
}

// Open maps path (e.g. "/dev/wrtd-hmq0") and wraps it as a Queue with
// depth slots of width payload words each, in both directions. Slot
// geometry (depth, width) is normally read from the card at init the
// way regwin.OpenMmap's WindowSizeIoctl reports total window size;
// here it is a constructor argument so tests can exercise the ring
// logic without a real device.
func Open(path string, depth, width uint32) (*Queue, error) {
	perRing := ringHeader + depth*(width+1)
	win, err := regwin.OpenMmap(path, perRing*2, 0)
	if err != nil {
		return nil, fmt.Errorf("chardev: %w", err)
	}
	q := &Queue{win: win, depth: depth, width: width, out: 0, in: perRing}
	q.win.WriteWord(q.out+0, 0)
	q.win.WriteWord(q.out+1, 0)
	q.win.WriteWord(q.out+2, 0)
	return q, nil
}

func (q *Queue) slotBase(ringBase, slot uint32) uint32 {
	return ringBase + ringHeader + slot*(q.width+1)
}

// Send claims the next outgoing slot and writes frame into it,
// dropping and reporting an error if the ring is already at depth —
// never blocking (spec.md §4.1).
func (q *Queue) Send(frame []byte) error {
	nWords := (uint32(len(frame)) + 3) / 4
	if nWords > q.width {
		return fmt.Errorf("chardev: frame of %d words exceeds slot width %d", nWords, q.width)
	}
	count := q.win.ReadWord(q.out + 2)
	if count >= q.depth {
		return fmt.Errorf("chardev: outgoing ring full (depth %d)", q.depth)
	}
	tail := q.win.ReadWord(q.out + 1)
	base := q.slotBase(q.out, tail)
	q.win.WriteWord(base, nWords)
	for i := uint32(0); i < nWords; i++ {
		var w uint32
		for b := uint32(0); b < 4; b++ {
			idx := i*4 + b
			if int(idx) < len(frame) {
				w |= uint32(frame[idx]) << (8 * b)
			}
		}
		q.win.WriteWord(base+1+i, w)
	}
	q.win.WriteWord(q.out+1, (tail+1)%q.depth)
	q.win.WriteWord(q.out+2, count+1)
	return nil
}

// Recv reads the oldest pending frame from the incoming ring, if any.
func (q *Queue) Recv() ([]byte, bool, error) {
	count := q.win.ReadWord(q.in + 2)
	if count == 0 {
		return nil, false, nil
	}
	head := q.win.ReadWord(q.in + 0)
	base := q.slotBase(q.in, head)
	nWords := q.win.ReadWord(base)
	if nWords > q.width {
		return nil, false, fmt.Errorf("chardev: corrupt slot length %d", nWords)
	}
	frame := make([]byte, 4*nWords)
	for i := uint32(0); i < nWords; i++ {
		w := q.win.ReadWord(base + 1 + i)
		frame[4*i+0] = byte(w)
		frame[4*i+1] = byte(w >> 8)
		frame[4*i+2] = byte(w >> 16)
		frame[4*i+3] = byte(w >> 24)
	}
	q.win.WriteWord(q.in+0, (head+1)%q.depth)
	q.win.WriteWord(q.in+2, count-1)
	return frame, true, nil
}

// Close releases the underlying window, if it supports being closed
// (a regwin.Mem test double does not).
func (q *Queue) Close() error {
	if c, ok := q.win.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// openWindow builds a Queue directly over an already-open window,
// letting tests exercise the ring logic against a regwin.Mem in place
// of a real mmap'd character device (see Open's doc comment).
func openWindow(win regwin.Window, depth, width uint32) *Queue {
	perRing := ringHeader + depth*(width+1)
	q := &Queue{win: win, depth: depth, width: width, out: 0, in: perRing}
	q.win.WriteWord(q.out+0, 0)
	q.win.WriteWord(q.out+1, 0)
	q.win.WriteWord(q.out+2, 0)
	return q
}

var _ transport.Queue = (*Queue)(nil)
