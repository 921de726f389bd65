// Package mqueue implements the message-queue slot substrate
// (spec.md §4.1): the four primitives every HMQ/RMQ slot exposes
// (claim, ready, discard, purge) plus the poll word that reports, per
// slot, pending-data and has-space bits.
//
// Firmware is single-threaded and cooperative (spec.md §5), so the
// "between claim and ready no other code may claim the same slot"
// contract is trivially satisfied by construction: Slot itself does
// not need a lock, only a single "currently claimed" flag to catch
// programmer error.
package mqueue

import "fmt"

// Slot is one hardware FIFO: a bounded queue of fixed-width messages.
// Width is in 32-bit words, matching the host protocol's payload unit
// (spec.md §4.2).
type Slot struct {
	width   uint32
	depth   uint32
	pending [][]uint32
	claimed []uint32

	overflows uint64
}

// NewSlot returns a Slot holding up to depth messages of up to width
// words each. Both are read from a status register at init on real
// hardware (spec.md §4.1); here they are simply constructor
// arguments.
func NewSlot(width, depth uint32) *Slot {
	return &Slot{width: width, depth: depth}
}

// Width reports the slot's message width in words.
func (s *Slot) Width() uint32 { return s.width }

// Claim reserves the next outgoing buffer for writing and returns it.
// It panics if a buffer is already claimed: the single-threaded
// cooperative loop must always Ready or otherwise release a claim
// before claiming again (spec.md §4.1, §5: "every path that claims
// must ready").
func (s *Slot) Claim() []uint32 {
	if s.claimed != nil {
		panic("mqueue: Claim called while a buffer is already claimed")
	}
	s.claimed = make([]uint32, s.width)
	return s.claimed
}

// Ready commits the currently claimed buffer, handing its first
// nWords words to the queue. If the slot is already at depth, the
// message is dropped and counted as an overflow rather than blocking
// (spec.md §4.1: "firmware side drops and records overflow").
func (s *Slot) Ready(nWords uint32) {
	if s.claimed == nil {
		panic("mqueue: Ready called with no claimed buffer")
	}
	if nWords > s.width {
		panic(fmt.Sprintf("mqueue: Ready(%d) exceeds slot width %d", nWords, s.width))
	}
	msg := append([]uint32(nil), s.claimed[:nWords]...)
	s.claimed = nil
	if uint32(len(s.pending)) >= s.depth {
		s.overflows++
		return
	}
	s.pending = append(s.pending, msg)
}

// HasData reports whether an incoming message is ready to be read.
func (s *Slot) HasData() bool { return len(s.pending) > 0 }

// HasSpace reports whether the slot can accept another Ready'd
// message without overflowing.
func (s *Slot) HasSpace() bool { return uint32(len(s.pending)) < s.depth }

// Peek returns the oldest pending message without removing it. It
// returns nil if the slot is empty.
func (s *Slot) Peek() []uint32 {
	if len(s.pending) == 0 {
		return nil
	}
	return s.pending[0]
}

// Discard releases the current incoming buffer, making the next
// pending message (if any) visible to Peek.
func (s *Slot) Discard() {
	if len(s.pending) == 0 {
		return
	}
	s.pending = s.pending[1:]
}

// Purge drops all pending entries; used at init (spec.md §4.1).
func (s *Slot) Purge() {
	s.pending = nil
	s.claimed = nil
}

// Overflows reports how many Ready calls have been dropped because
// the slot was full.
func (s *Slot) Overflows() uint64 { return s.overflows }

// PollWord aggregates the pending/space status of a fixed set of
// named slots, as the firmware's single poll-word register does
// (spec.md §4.1).
type PollWord struct {
	slots []*Slot
}

// NewPollWord returns a PollWord over slots, indexed in the given
// order.
func NewPollWord(slots ...*Slot) *PollWord {
	return &PollWord{slots: slots}
}

// Pending returns a bitset with bit i set when slot i has pending
// data.
func (p *PollWord) Pending() uint32 {
	var bits uint32
	for i, s := range p.slots {
		if s.HasData() {
			bits |= 1 << uint(i)
		}
	}
	return bits
}

// Space returns a bitset with bit i set when slot i has room for
// another message.
func (p *PollWord) Space() uint32 {
	var bits uint32
	for i, s := range p.slots {
		if s.HasSpace() {
			bits |= 1 << uint(i)
		}
	}
	return bits
}
