// Package loop implements an in-memory transport.Queue pair used by
// unit tests and by cmd/listsim in place of real hardware. It keeps
// the same bounded, drop-on-full behavior as the other backends
// (spec.md §4.1) instead of the unbounded buffering a bare Go channel
// would otherwise give for free.
package loop

import (
	"errors"

	"wrtd.dev/transport"
)

// Capacity bounds each direction's backlog, matching the depth of a
// typical real HMQ/RMQ slot (spec.md §4.1).
const Capacity = 64

// ErrFull is returned by Send when the receiving side hasn't drained
// fast enough.
var ErrFull = errors.New("loop: queue full")

// Queue is one end of an in-memory, paired transport.Queue.
type Queue struct {
	out chan []byte
	in  chan []byte
}

// NewPair returns two Queues wired to each other: a Send on a is a
// Recv on b, and vice versa.
func NewPair() (a, b *Queue) {
	c1 := make(chan []byte, Capacity)
	c2 := make(chan []byte, Capacity)
	return &Queue{out: c1, in: c2}, &Queue{out: c2, in: c1}
}

// Send enqueues a copy of frame, or returns ErrFull without blocking
// if the peer hasn't drained the channel.
func (q *Queue) Send(frame []byte) error {
	cp := append([]byte(nil), frame...)
	select {
	case q.out <- cp:
		return nil
	default:
		return ErrFull
	}
}

// Recv returns the oldest pending frame without blocking.
func (q *Queue) Recv() ([]byte, bool, error) {
	select {
	case f := <-q.in:
		return f, true, nil
	default:
		return nil, false, nil
	}
}

// Close is a no-op; the backing channels are garbage collected once
// both ends are unreferenced.
func (q *Queue) Close() error { return nil }

var _ transport.Queue = (*Queue)(nil)
