package trigger

import (
	"testing"

	"wrtd.dev/internal/tai"
)

func TestWireRoundTrip(t *testing.T) {
	p := &Packet{TransmitSeconds: 100, TransmitCycles: 200}
	for i := 0; i < 3; i++ {
		if err := p.Append(Entry{
			TS:  tai.Timestamp{Seconds: uint64(i), Ticks: int32(i * 10), Frac: int32(i)},
			ID:  ID{System: 1, SourcePort: 2, Trigger: uint32(i)},
			Seq: uint32(i),
		}); err != nil {
			t.Fatal(err)
		}
	}
	buf := p.EncodeWire()
	got, err := DecodeWire(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != p.Count || got.TransmitSeconds != p.TransmitSeconds || got.TransmitCycles != p.TransmitCycles {
		t.Fatalf("header mismatch: got %+v, want %+v", got, p)
	}
	for i := 0; i < p.Count; i++ {
		if got.Triggers[i] != p.Triggers[i] {
			t.Errorf("entry %d mismatch: got %+v, want %+v", i, got.Triggers[i], p.Triggers[i])
		}
	}
}

func TestAppendOverflow(t *testing.T) {
	p := &Packet{}
	for i := 0; i < CoalesceLimit; i++ {
		if err := p.Append(Entry{}); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}
	if err := p.Append(Entry{}); err != ErrPacketTooLarge {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := DecodeWire(make([]byte, 4)); err == nil {
		t.Fatal("expected error on short buffer")
	}
}
