package smem

import "testing"

func TestCellOps(t *testing.T) {
	b := NewMemBackend(4)
	c := NewCell(b, 1)
	c.Store(10)
	if got := c.Load(); got != 10 {
		t.Fatalf("Load() = %d, want 10", got)
	}
	if got := c.Add(5); got != 15 {
		t.Fatalf("Add() = %d, want 15", got)
	}
	if got := c.Sub(3); got != 12 {
		t.Fatalf("Sub() = %d, want 12", got)
	}
	c.Store(0b1010)
	if got := c.Or(0b0101); got != 0b1111 {
		t.Fatalf("Or() = %b, want %b", got, 0b1111)
	}
	if got := c.AndNot(0b0101); got != 0b1010 {
		t.Fatalf("AndNot() = %b, want %b", got, 0b1010)
	}
	if got := c.Xor(0b1111); got != 0b0101 {
		t.Fatalf("Xor() = %b, want %b", got, 0b0101)
	}
	other := NewCell(b, 2)
	other.Store(99)
	if c.Load() != 0b0101 {
		t.Fatalf("cell isolation violated: got %b", c.Load())
	}
}
