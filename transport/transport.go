// Package transport defines the host-side Queue interface used to
// reach a card's HMQ/RMQ slot pair (spec.md §4.1), and is implemented
// by each of this directory's subpackages: chardev (production),
// serial (bench/debug UART), udp (the RMQ network fabric), and loop
// (in-memory, for tests and the simulator).
package transport

// Queue is a bounded, non-blocking duplex byte-frame channel — one
// Send/Recv pair per HMQ-in/HMQ-out slot pair. A backend must never
// block: a full outgoing ring reports an error instead of waiting for
// space, and Recv reports ok=false rather than waiting when nothing
// is pending, the same drop-rather-than-block contract internal/mqueue
// gives the firmware side (spec.md §4.1).
type Queue interface {
	// Send transmits one encoded frame (a hostproto.Encode result).
	Send(frame []byte) error
	// Recv returns the oldest pending frame, if any.
	Recv() (frame []byte, ok bool, err error)
	Close() error
}
