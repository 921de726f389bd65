// Package pulse implements an FD output channel's pulse queue and
// scheduler state machine (spec.md §4.6): a bounded ring buffer of
// programmed pulses and the Idle/Armed/TestPending/ConditionHit state
// machine driving what gets enqueued and how it gets fired.
package pulse

import (
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

// QueueCapacity is the fixed per-output pulse queue depth (spec.md §3).
const QueueCapacity = 16

// Entry is a single programmed pulse: the adjusted fire time, the
// trigger identity and sequence that produced it, the originating
// cycles count (for latency accounting), a snapshot of the rule that
// enqueued it, and a back-reference (TableIdx, Output) to that rule's
// live slot in the routing table. The back-reference is an index
// rather than a pointer because routing.Table.allocate can grow its
// backing slice, which would invalidate a pointer taken earlier.
type Entry struct {
	TS           tai.Timestamp
	ID           trigger.ID
	Seq          uint32
	OriginCycles int32
	Rule         routing.OutputRule
	TableIdx     routing.EntryIndex
	Output       int
}

// Queue is a circular buffer of Entry, modeled on the teacher's
// knotBuffer ring buffer (stepper package): fixed capacity, Push
// panics on overflow, Pop panics on underflow. Overflow here is
// always checked by the caller first (Channel.Enqueue), which counts
// a full queue as a miss rather than letting Push panic.
type Queue struct {
	entries    [QueueCapacity]Entry
	start, len int
}

// Capacity returns the number of free slots.
func (q *Queue) Capacity() int {
	return QueueCapacity - q.len
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return q.len
}

// Push appends e to the tail of the queue.
func (q *Queue) Push(e Entry) {
	if q.Capacity() == 0 {
		panic("pulse: queue overflow")
	}
	idx := (q.start + q.len) % QueueCapacity
	q.entries[idx] = e
	q.len++
}

// Peek returns the head entry without removing it.
func (q *Queue) Peek() Entry {
	if q.len == 0 {
		panic("pulse: queue underflow")
	}
	return q.entries[q.start]
}

// Pop removes and returns the head entry.
func (q *Queue) Pop() Entry {
	e := q.Peek()
	q.start = (q.start + 1) % QueueCapacity
	q.len--
	return e
}

// Drop discards the head entry, a Pop with no return value — used by
// the scheduler when a programmed pulse is abandoned (spec.md
// §4.6.3's TIMEOUT and NO_WR drop paths).
func (q *Queue) Drop() {
	q.Pop()
}
