package hostlib

import (
	"time"

	"wrtd.dev/internal/logstream"
	"wrtd.dev/transport"
)

// LogReader is the host-side consumer of a personality's dedicated
// HMQ-out log slot: it decodes logstream.EncodeWire records off a
// transport.Queue and hands them to Handle (spec.md §4.7).
type LogReader struct {
	q      transport.Queue
	Handle func(logstream.Entry)

	done chan struct{}
}

// NewLogReader wraps q. Call Run to start draining it.
func NewLogReader(q transport.Queue, handle func(logstream.Entry)) *LogReader {
	return &LogReader{q: q, Handle: handle, done: make(chan struct{})}
}

// Run polls q until Stop is called or q.Recv returns an error,
// decoding and dispatching one entry at a time (spec.md §4.1: never
// block, drain what's pending).
func (r *LogReader) Run(pollInterval time.Duration) error {
	for {
		select {
		case <-r.done:
			return nil
		default:
		}
		frame, ok, err := r.q.Recv()
		if err != nil {
			return wrap("logreader", err)
		}
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		e, err := logstream.DecodeWireEntry(frame)
		if err != nil {
			continue
		}
		if r.Handle != nil {
			r.Handle(e)
		}
	}
}

// Stop ends a running Run call.
func (r *LogReader) Stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}
