package logstream

import "testing"

func TestLevelsMask(t *testing.T) {
	var l Levels
	l = l.Set(Executed)
	if !l.Has(Executed) {
		t.Fatal("expected Executed set")
	}
	if l.Has(Missed) {
		t.Fatal("did not expect Missed set")
	}
	l = l.Clear(Executed)
	if l.Has(Executed) {
		t.Fatal("expected Executed cleared")
	}
}

func TestLoggerGatesByChannelLevel(t *testing.T) {
	log := NewLogger(2)
	log.ChannelLevel[0] = Levels(0).Set(Executed)

	log.Log(Entry{Type: Executed, Channel: 0})
	log.Log(Entry{Type: Missed, Channel: 0})
	log.Log(Entry{Type: Executed, Channel: 1})

	if log.Stream.Len() != 1 {
		t.Fatalf("Stream.Len() = %d, want 1", log.Stream.Len())
	}
	e, ok := log.Stream.Pop()
	if !ok || e.Type != Executed || e.Channel != 0 {
		t.Fatalf("Pop() = %+v, ok=%v", e, ok)
	}
}

func TestPromiscuousRequiresAnyChannelOptIn(t *testing.T) {
	log := NewLogger(2)
	log.Log(Entry{Type: Promisc})
	if log.Stream.Len() != 0 {
		t.Fatal("expected PROMISC dropped with no channel opted in")
	}

	log.ChannelLevel[1] = Levels(0).Set(Promisc)
	log.Log(Entry{Type: Promisc})
	if log.Stream.Len() != 1 {
		t.Fatal("expected PROMISC logged once a channel opts in")
	}
}

func TestStreamDropOnFull(t *testing.T) {
	var s Stream
	for i := 0; i < StreamCapacity; i++ {
		s.Push(Entry{Seq: uint32(i)})
	}
	s.Push(Entry{Seq: 999})
	if s.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", s.Dropped())
	}
	if s.Len() != StreamCapacity {
		t.Fatalf("Len() = %d, want %d", s.Len(), StreamCapacity)
	}
	e, ok := s.Pop()
	if !ok || e.Seq != 0 {
		t.Fatalf("Pop() = %+v, want Seq=0 (FIFO order preserved)", e)
	}
}
