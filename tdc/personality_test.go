package tdc

import (
	"testing"

	"wrtd.dev/internal/mqueue"
	"wrtd.dev/internal/smem"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/internal/wrlink"
)

type fixedSource struct {
	samples []Sample
	i       int
}

func (s *fixedSource) Next() (Sample, bool) {
	if s.i >= len(s.samples) {
		return Sample{}, false
	}
	sample := s.samples[s.i]
	s.i++
	return sample, true
}

type fixedTx struct {
	lb   *mqueue.Loopback
	slot *mqueue.Slot
}

func (t *fixedTx) Loopback() *mqueue.Loopback { return t.lb }
func (t *fixedTx) Slot() *mqueue.Slot         { return t.slot }

func alwaysSynced() *wrlink.Link {
	l := wrlink.New(noopLock{})
	in := &fakeInputsTDC{linkUp: true, timeValid: true, locked: true}
	for i := 0; i < 10; i++ {
		in.seconds = uint64(i)
		l.Update(in)
	}
	return l
}

type noopLock struct{}

func (noopLock) Enable()  {}
func (noopLock) Disable() {}

type fakeInputsTDC struct {
	linkUp, timeValid, locked bool
	seconds                   uint64
}

func (f *fakeInputsTDC) LinkUp() bool       { return f.linkUp }
func (f *fakeInputsTDC) TimeValid() bool    { return f.timeValid }
func (f *fakeInputsTDC) Locked() bool       { return f.locked }
func (f *fakeInputsTDC) Now() tai.Timestamp { return tai.Timestamp{Seconds: f.seconds} }

func TestDecodeFineTime(t *testing.T) {
	meta := uint32(2)<<channelShift | 0x1000
	ts, ch := decode(Sample{Seconds: 1, Ticks: 100, Meta: meta})
	if ch != 2 {
		t.Fatalf("channel = %d, want 2", ch)
	}
	// 0x1000 fine-time bins * 5308 >> 7 = 169856 frac = 41 whole ticks + 1920.
	if ts.Seconds != 1 || ts.Ticks != 141 {
		t.Fatalf("ts = %+v, want seconds=1 ticks=141 (frac folded in)", ts)
	}
}

func TestDoInputHappyPath(t *testing.T) {
	p := NewPersonality(alwaysSynced(), func() tai.Timestamp { return tai.Timestamp{Seconds: 5} })
	p.Channels[0].ID = trigger.ID{Trigger: 42}
	setFlag(&p.Channels[0].Flags, FlagTriggerAssigned)
	p.Channels[0].Arm()

	backend := smem.NewMemBackend(8)
	lb := mqueue.NewLoopback(backend, 0)
	slot := mqueue.NewSlot(64, 4)
	p.Tx = &fixedTx{lb: lb, slot: slot}

	meta := uint32(0)<<channelShift | 0
	p.Source = &fixedSource{samples: []Sample{{Seconds: 1, Ticks: 10, Meta: meta}}}

	pkt := p.DoInput()
	if pkt.Count != 1 {
		t.Fatalf("pkt.Count = %d, want 1", pkt.Count)
	}
	if lb.Len() != 1 {
		t.Fatalf("loopback Len() = %d, want 1", lb.Len())
	}
	if p.Channels[0].SentPulses != 1 {
		t.Fatalf("SentPulses = %d, want 1", p.Channels[0].SentPulses)
	}
	if !slot.HasData() {
		t.Fatal("expected RMQ-out slot to have a ready message")
	}
}

func TestDoInputDropsWithoutArm(t *testing.T) {
	p := NewPersonality(alwaysSynced(), func() tai.Timestamp { return tai.Timestamp{} })
	p.Channels[0].ID = trigger.ID{Trigger: 42}
	// Not armed, not assigned.
	p.Source = &fixedSource{samples: []Sample{{Seconds: 1, Ticks: 10, Meta: 0}}}

	pkt := p.DoInput()
	if pkt.Count != 0 {
		t.Fatalf("pkt.Count = %d, want 0 (channel not armed)", pkt.Count)
	}
	if p.Channels[0].TotalPulses != 1 {
		t.Fatalf("TotalPulses = %d, want 1 (raw tagging still counted)", p.Channels[0].TotalPulses)
	}
}

func TestSingleModeClearsArmed(t *testing.T) {
	p := NewPersonality(alwaysSynced(), func() tai.Timestamp { return tai.Timestamp{} })
	setFlag(&p.Channels[0].Flags, FlagTriggerAssigned)
	p.Channels[0].Mode = ModeSingle
	p.Channels[0].Arm()
	p.Source = &fixedSource{samples: []Sample{{Seconds: 1, Ticks: 10, Meta: 0}}}

	p.DoInput()
	if FlagArmed.in(p.Channels[0].Flags) {
		t.Fatal("expected ARMED cleared after Single-mode fire")
	}
	if !FlagTriggered.in(p.Channels[0].Flags) {
		t.Fatal("expected TRIGGERED set")
	}
}

func TestSoftwareTrigger(t *testing.T) {
	p := NewPersonality(alwaysSynced(), func() tai.Timestamp { return tai.Timestamp{Seconds: 10} })
	backend := smem.NewMemBackend(8)
	lb := mqueue.NewLoopback(backend, 0)
	p.Tx = &fixedTx{lb: lb}
	p.Channels[1].ID = trigger.ID{Trigger: 7}

	entry, err := p.SoftwareTrigger(1, tai.Timestamp{Ticks: 500})
	if err != nil {
		t.Fatal(err)
	}
	if entry.TS.Seconds != 10 || entry.TS.Ticks != 500 {
		t.Fatalf("entry.TS = %+v", entry.TS)
	}
	if lb.Len() != 1 {
		t.Fatalf("loopback Len() = %d, want 1", lb.Len())
	}
}

func TestSetDeadTimeBounds(t *testing.T) {
	p := NewPersonality(alwaysSynced(), func() tai.Timestamp { return tai.Timestamp{} })
	if err := p.SetDeadTime(0, 5); err != ErrInvalidDeadTime {
		t.Fatalf("SetDeadTime(too low) = %v, want ErrInvalidDeadTime", err)
	}
	if err := p.SetDeadTime(0, 20_000_000); err != ErrInvalidDeadTime {
		t.Fatalf("SetDeadTime(too high) = %v, want ErrInvalidDeadTime", err)
	}
	if err := p.SetDeadTime(0, 50_000); err != nil {
		t.Fatal(err)
	}
}
