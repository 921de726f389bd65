package pulse

import (
	"testing"

	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

type fakeGenerator struct {
	triggered bool
	disarmed  bool
	programs  int
}

func (g *fakeGenerator) Program(start, end tai.Timestamp) { g.programs++ }
func (g *fakeGenerator) Triggered() bool                  { return g.triggered }
func (g *fakeGenerator) Disarm()                          { g.disarmed = true }

func TestQueueRingBuffer(t *testing.T) {
	var q Queue
	for i := 0; i < QueueCapacity; i++ {
		q.Push(Entry{Seq: uint32(i)})
	}
	if q.Capacity() != 0 {
		t.Fatalf("Capacity() = %d, want 0", q.Capacity())
	}
	for i := 0; i < QueueCapacity; i++ {
		e := q.Pop()
		if e.Seq != uint32(i) {
			t.Fatalf("Pop() seq = %d, want %d", e.Seq, i)
		}
	}
}

func TestQueueOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overflow")
		}
	}()
	var q Queue
	for i := 0; i <= QueueCapacity; i++ {
		q.Push(Entry{})
	}
}

func TestEnqueueDirectHappyPath(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed
	c.DeadTime = tai.Timestamp{Ticks: 100}

	table := routing.NewTable()
	id := trigger.ID{Trigger: 1}
	tableIdx, err := table.Assign(id, 0, routing.OutputRule{State: routing.Direct})
	if err != nil {
		t.Fatal(err)
	}
	rule := &table.EntryAt(tableIdx).Ocfg[0]

	ts := tai.Timestamp{Seconds: 1, Ticks: 1000}
	reason := c.Enqueue(rule, tableIdx, 0, id, ts, 7, true)
	if reason != MissNone {
		t.Fatalf("Enqueue() = %v, want MissNone", reason)
	}
	if c.Queue.Len() != 1 {
		t.Fatalf("Queue.Len() = %d, want 1", c.Queue.Len())
	}
	if rule.Hits != 0 {
		t.Fatalf("rule.Hits = %d, want 0 before the pulse actually fires", rule.Hits)
	}

	gen := &fakeGenerator{}
	if _, executed := c.Step(table, gen, ts, true); executed {
		t.Fatal("did not expect execution during the program phase")
	}
	gen.triggered = true
	reason, executed := c.Step(table, gen, ts, true)
	if reason != MissNone || !executed {
		t.Fatalf("Step() fire phase = %v, executed=%v, want MissNone, true", reason, executed)
	}
	if rule.Hits != 1 {
		t.Fatalf("rule.Hits = %d, want 1 once the pulse fires", rule.Hits)
	}
}

func TestEnqueueDeadTimeMiss(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed
	c.DeadTime = tai.Timestamp{Ticks: 1_000_000}
	c.PrevPulse = tai.Timestamp{Seconds: 1, Ticks: 1000}

	rule := routing.OutputRule{State: routing.Direct}
	ts := tai.Timestamp{Seconds: 1, Ticks: 1100}
	reason := c.Enqueue(&rule, 0, 0, trigger.ID{Trigger: 1}, ts, 1, true)
	if reason != MissDeadTime {
		t.Fatalf("Enqueue() = %v, want MissDeadTime", reason)
	}
	if c.Stats.MissDeadtime != 1 {
		t.Fatalf("MissDeadtime = %d, want 1", c.Stats.MissDeadtime)
	}
}

func TestEnqueueNoTimingMiss(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed

	rule := routing.OutputRule{State: routing.Direct}
	reason := c.Enqueue(&rule, 0, 0, trigger.ID{Trigger: 1}, tai.Timestamp{Seconds: 1}, 1, false)
	if reason != MissNoTiming {
		t.Fatalf("Enqueue() = %v, want MissNoTiming", reason)
	}
}

func TestConditionalSequence(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed
	c.Mode = ModeAuto

	condRule := routing.OutputRule{State: routing.Condition}
	conditionalRule := routing.OutputRule{State: routing.Conditional, CondPtr: 0, HasCondPtr: true}

	// A Conditional match while Armed, before its Condition has hit,
	// shouldn't alter state; then exercise
	// Condition -> ConditionHit -> Conditional -> Armed explicitly.
	if r := c.Enqueue(&conditionalRule, 0, 0, trigger.ID{Trigger: 2}, tai.Timestamp{Seconds: 1}, 1, true); r != MissNone {
		t.Fatalf("premature Conditional match should be a no-op, got %v", r)
	}
	if c.State != Armed {
		t.Fatalf("state = %v, want Armed (Conditional ignored before Condition)", c.State)
	}

	if r := c.Enqueue(&condRule, 0, 0, trigger.ID{Trigger: 1}, tai.Timestamp{Seconds: 1}, 2, true); r != MissNone {
		t.Fatalf("Condition match error: %v", r)
	}
	if c.State != ConditionHit {
		t.Fatalf("state = %v, want ConditionHit", c.State)
	}

	if r := c.Enqueue(&conditionalRule, 0, 0, trigger.ID{Trigger: 2}, tai.Timestamp{Seconds: 1, Ticks: 10}, 3, true); r != MissNone {
		t.Fatalf("Conditional match error: %v", r)
	}
	if c.State != Armed {
		t.Fatalf("state = %v, want Armed after Auto-mode Conditional fire", c.State)
	}
	if c.Queue.Len() != 1 {
		t.Fatalf("Queue.Len() = %d, want 1", c.Queue.Len())
	}
}

func TestSchedulerProgramAndExecute(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed
	c.WidthCycles = 5

	rule := routing.OutputRule{State: routing.Direct}
	ts := tai.Timestamp{Seconds: 1, Ticks: 1000}
	c.Enqueue(&rule, 0, 0, trigger.ID{Trigger: 1}, ts, 9, true)

	gen := &fakeGenerator{}
	if r, executed := c.Step(nil, gen, ts, true); r != MissNone || executed {
		t.Fatalf("Step() program phase = %v, executed=%v", r, executed)
	}
	if gen.programs != 1 {
		t.Fatalf("expected generator programmed once, got %d", gen.programs)
	}
	if c.Idle {
		t.Fatal("expected Idle=false while armed pulse is pending")
	}

	gen.triggered = true
	r, executed := c.Step(nil, gen, ts, true)
	if r != MissNone || !executed {
		t.Fatalf("Step() fire phase = %v, executed=%v", r, executed)
	}
	if !c.Idle {
		t.Fatal("expected Idle=true after firing")
	}
	if c.Stats.Hits != 1 {
		t.Fatalf("Hits = %d, want 1", c.Stats.Hits)
	}
}

func TestSchedulerTimeout(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed
	c.WidthCycles = 5

	rule := routing.OutputRule{State: routing.Direct}
	ts := tai.Timestamp{Seconds: 1, Ticks: 1000}
	c.Enqueue(&rule, 0, 0, trigger.ID{Trigger: 1}, ts, 1, true)

	gen := &fakeGenerator{}
	c.Step(nil, gen, ts, true)

	future := tai.Timestamp{Seconds: 2}
	r, executed := c.Step(nil, gen, future, true)
	if executed {
		t.Fatal("did not expect execution on a timed-out pulse")
	}
	if r != MissTimeout {
		t.Fatalf("Step() = %v, want MissTimeout", r)
	}
	if !gen.disarmed {
		t.Fatal("expected generator disarmed on timeout")
	}
	if c.Stats.MissTimeout != 1 {
		t.Fatalf("MissTimeout = %d, want 1", c.Stats.MissTimeout)
	}
}

func TestEnqueueOverflow(t *testing.T) {
	c := NewChannel()
	c.Enabled = true
	c.State = Armed
	c.Mode = ModeAuto

	for i := 0; i < QueueCapacity; i++ {
		rule := routing.OutputRule{State: routing.Direct}
		ts := tai.Timestamp{Seconds: 1, Ticks: int32(1000 * (i + 1))}
		if r := c.Enqueue(&rule, 0, 0, trigger.ID{Trigger: 1}, ts, uint32(i), true); r != MissNone {
			t.Fatalf("Enqueue(%d) = %v, want MissNone", i, r)
		}
	}
	rule := routing.OutputRule{State: routing.Direct}
	ts := tai.Timestamp{Seconds: 1, Ticks: int32(1000 * (QueueCapacity + 1))}
	r := c.Enqueue(&rule, 0, 0, trigger.ID{Trigger: 1}, ts, 99, true)
	if r != MissOverflow {
		t.Fatalf("Enqueue() on full queue = %v, want MissOverflow", r)
	}
	if c.Stats.MissOverflow != 1 {
		t.Fatalf("MissOverflow = %d, want 1", c.Stats.MissOverflow)
	}
}
