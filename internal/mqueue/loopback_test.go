package mqueue

import (
	"testing"

	"wrtd.dev/internal/smem"
	"wrtd.dev/internal/trigger"
)

func TestLoopbackOrderAndOverflow(t *testing.T) {
	b := smem.NewMemBackend(8)
	l := NewLoopback(b, 0)
	for i := 0; i < LoopbackCapacity; i++ {
		if !l.Push(trigger.Entry{Seq: uint32(i)}) {
			t.Fatalf("push %d unexpectedly dropped", i)
		}
	}
	if l.Push(trigger.Entry{Seq: 999}) {
		t.Fatal("17th push should be silently dropped")
	}
	for i := 0; i < LoopbackCapacity; i++ {
		e, ok := l.Pop()
		if !ok {
			t.Fatalf("pop %d: expected entry", i)
		}
		if e.Seq != uint32(i) {
			t.Fatalf("pop %d: seq = %d, want %d (push order not preserved)", i, e.Seq, i)
		}
	}
	if _, ok := l.Pop(); ok {
		t.Fatal("expected empty queue")
	}
}
