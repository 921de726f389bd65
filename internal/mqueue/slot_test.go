package mqueue

import "testing"

func TestClaimReadyDiscard(t *testing.T) {
	s := NewSlot(4, 2)
	buf := s.Claim()
	copy(buf, []uint32{1, 2, 3})
	s.Ready(3)
	if !s.HasData() {
		t.Fatal("expected HasData after Ready")
	}
	got := s.Peek()
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Peek() = %v, want %v", got, want)
	}
	s.Discard()
	if s.HasData() {
		t.Fatal("expected no data after Discard")
	}
}

func TestReadyOverflowDrops(t *testing.T) {
	s := NewSlot(2, 1)
	s.Claim()
	s.Ready(1)
	if !s.HasData() || s.HasSpace() {
		t.Fatal("slot should be full after one Ready at depth 1")
	}
	s.Claim()
	s.Ready(1)
	if s.Overflows() != 1 {
		t.Fatalf("Overflows() = %d, want 1", s.Overflows())
	}
}

func TestPurge(t *testing.T) {
	s := NewSlot(1, 4)
	s.Claim()
	s.Ready(1)
	s.Purge()
	if s.HasData() {
		t.Fatal("expected no data after Purge")
	}
}

func TestClaimTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double claim")
		}
	}()
	s := NewSlot(1, 1)
	s.Claim()
	s.Claim()
}

func TestPollWord(t *testing.T) {
	a := NewSlot(1, 1)
	b := NewSlot(1, 1)
	pw := NewPollWord(a, b)
	if pw.Pending() != 0 {
		t.Fatalf("Pending() = %b, want 0", pw.Pending())
	}
	a.Claim()
	a.Ready(1)
	if pw.Pending() != 0b01 {
		t.Fatalf("Pending() = %b, want %b", pw.Pending(), 0b01)
	}
	if pw.Space() != 0b10 {
		t.Fatalf("Space() = %b, want %b", pw.Space(), 0b10)
	}
}
