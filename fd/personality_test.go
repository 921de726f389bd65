package fd

import (
	"testing"

	"wrtd.dev/internal/mqueue"
	"wrtd.dev/internal/pulse"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/smem"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/internal/wrlink"
)

type fakeGenerator struct {
	triggered bool
	disarmed  bool
	programs  int
}

func (g *fakeGenerator) Program(start, end tai.Timestamp) { g.programs++ }
func (g *fakeGenerator) Triggered() bool                  { return g.triggered }
func (g *fakeGenerator) Disarm()                          { g.disarmed = true }

type noopLock struct{}

func (noopLock) Enable()  {}
func (noopLock) Disable() {}

type fakeInputsFD struct {
	linkUp, timeValid, locked bool
	seconds                   uint64
}

func (f *fakeInputsFD) LinkUp() bool       { return f.linkUp }
func (f *fakeInputsFD) TimeValid() bool    { return f.timeValid }
func (f *fakeInputsFD) Locked() bool       { return f.locked }
func (f *fakeInputsFD) Now() tai.Timestamp { return tai.Timestamp{Seconds: f.seconds} }

func alwaysSynced() *wrlink.Link {
	l := wrlink.New(noopLock{})
	in := &fakeInputsFD{linkUp: true, timeValid: true, locked: true}
	for i := 0; i < 10; i++ {
		in.seconds = uint64(i)
		l.Update(in)
	}
	return l
}

func newTestPersonality() (*Personality, *mqueue.Loopback) {
	table := routing.NewTable()
	clock := func() tai.Timestamp { return tai.Timestamp{Seconds: 5} }
	p := NewPersonality(table, alwaysSynced(), clock)
	for i := range p.Channels {
		p.Channels[i].Enabled = true
	}
	backend := smem.NewMemBackend(8)
	lb := mqueue.NewLoopback(backend, 0)
	p.In.Loopback = lb
	return p, lb
}

func TestDoRxDirectFanOut(t *testing.T) {
	p, lb := newTestPersonality()
	id := trigger.ID{Trigger: 42}
	if _, err := p.Table.Assign(id, 0, routing.OutputRule{State: routing.Direct}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Table.Assign(id, 1, routing.OutputRule{State: routing.Direct}); err != nil {
		t.Fatal(err)
	}
	p.Channels[0].State = pulse.Armed
	p.Channels[1].State = pulse.Armed

	entry := trigger.Entry{ID: id, TS: tai.Timestamp{Seconds: 1, Ticks: 1000}, Seq: 3}
	if !lb.Push(entry) {
		t.Fatal("expected loopback push to succeed")
	}

	p.DoRx()

	if p.Channels[0].Queue.Len() != 1 {
		t.Fatalf("channel 0 Queue.Len() = %d, want 1", p.Channels[0].Queue.Len())
	}
	if p.Channels[1].Queue.Len() != 1 {
		t.Fatalf("channel 1 Queue.Len() = %d, want 1", p.Channels[1].Queue.Len())
	}
	if p.LastReceived.ID != id {
		t.Fatalf("LastReceived.ID = %+v, want %+v", p.LastReceived.ID, id)
	}
}

func TestDoRxUnknownIDIsIgnored(t *testing.T) {
	p, lb := newTestPersonality()
	lb.Push(trigger.Entry{ID: trigger.ID{Trigger: 99}})

	p.DoRx()

	for i := range p.Channels {
		if p.Channels[i].Queue.Len() != 0 {
			t.Fatalf("channel %d Queue.Len() = %d, want 0 for unrouted id", i, p.Channels[i].Queue.Len())
		}
	}
}

func TestDoOutputProgramsAndFires(t *testing.T) {
	p, lb := newTestPersonality()
	id := trigger.ID{Trigger: 1}
	if _, err := p.Table.Assign(id, 0, routing.OutputRule{State: routing.Direct}); err != nil {
		t.Fatal(err)
	}
	p.Channels[0].State = pulse.Armed
	p.Channels[0].WidthCycles = 5

	lb.Push(trigger.Entry{ID: id, TS: tai.Timestamp{Seconds: 1, Ticks: 1000}, Seq: 1})
	p.DoRx()

	gen := &fakeGenerator{}
	p.Generators[0] = gen
	p.DoOutput()
	if gen.programs != 1 {
		t.Fatalf("expected generator programmed once, got %d", gen.programs)
	}

	gen.triggered = true
	p.DoOutput()
	if p.Channels[0].Stats.Hits != 1 {
		t.Fatalf("Hits = %d, want 1", p.Channels[0].Stats.Hits)
	}
}

func TestConditionalAssignAndFire(t *testing.T) {
	p, lb := newTestPersonality()
	condID := trigger.ID{Trigger: 10}
	conditionalID := trigger.ID{Trigger: 11}
	if err := p.TrigAssignConditional(2, condID, conditionalID, routing.OutputRule{}); err != nil {
		t.Fatal(err)
	}
	p.Channels[2].State = pulse.Armed

	lb.Push(trigger.Entry{ID: condID, TS: tai.Timestamp{Seconds: 1}, Seq: 1})
	p.DoRx()
	if p.Channels[2].State != pulse.ConditionHit {
		t.Fatalf("state after Condition match = %v, want ConditionHit", p.Channels[2].State)
	}

	lb.Push(trigger.Entry{ID: conditionalID, TS: tai.Timestamp{Seconds: 1, Ticks: 10}, Seq: 2})
	p.DoRx()
	if p.Channels[2].State != pulse.Armed {
		t.Fatalf("state after Conditional match = %v, want Armed", p.Channels[2].State)
	}
	if p.Channels[2].Queue.Len() != 1 {
		t.Fatalf("Queue.Len() = %d, want 1", p.Channels[2].Queue.Len())
	}
}

func TestTrigEnableDisableSuppressesWithoutLosingCounters(t *testing.T) {
	p, lb := newTestPersonality()
	id := trigger.ID{Trigger: 5}
	if err := p.TrigAssign(0, id, routing.OutputRule{}); err != nil {
		t.Fatal(err)
	}
	p.Channels[0].State = pulse.Armed

	lb.Push(trigger.Entry{ID: id, TS: tai.Timestamp{Seconds: 1}, Seq: 1})
	p.DoRx()
	if p.Channels[0].Queue.Len() != 1 {
		t.Fatalf("Queue.Len() = %d, want 1 before disable", p.Channels[0].Queue.Len())
	}

	if err := p.TrigEnable(0, id, false); err != nil {
		t.Fatal(err)
	}
	state, err := p.TrigGetState(0, id)
	if err != nil {
		t.Fatal(err)
	}
	if state.State != routing.Disabled {
		t.Fatalf("state = %v, want Disabled", state.State)
	}

	lb.Push(trigger.Entry{ID: id, TS: tai.Timestamp{Seconds: 2}, Seq: 2})
	p.DoRx()
	if p.Channels[0].Queue.Len() != 1 {
		t.Fatalf("Queue.Len() = %d, want still 1 after disable", p.Channels[0].Queue.Len())
	}
	state, err = p.TrigGetState(0, id)
	if err != nil {
		t.Fatal(err)
	}
	if state.Misses != 1 {
		t.Fatalf("Misses = %d, want 1 (disabled enqueue still counted)", state.Misses)
	}
}

func TestReadHashIteratesSortedOrder(t *testing.T) {
	p, _ := newTestPersonality()
	ids := []trigger.ID{{Trigger: 3}, {Trigger: 1}, {Trigger: 2}}
	for _, id := range ids {
		if err := p.TrigAssign(0, id, routing.OutputRule{}); err != nil {
			t.Fatal(err)
		}
	}
	var seen []trigger.ID
	p.ReadHash(func(e routing.Entry) { seen = append(seen, e.ID) })
	if len(seen) != 3 {
		t.Fatalf("len(seen) = %d, want 3", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if !seen[i-1].Less(seen[i]) {
			t.Fatalf("ReadHash not sorted: %+v before %+v", seen[i-1], seen[i])
		}
	}
}
