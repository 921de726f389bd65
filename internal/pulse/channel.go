package pulse

import (
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

// State is the per-output scheduler state (spec.md §4.6.1).
type State uint8

const (
	Idle State = iota
	Armed
	TestPending
	ConditionHit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Armed:
		return "Armed"
	case TestPending:
		return "TestPending"
	case ConditionHit:
		return "ConditionHit"
	default:
		return "State(?)"
	}
}

// Mode selects whether a Direct/Conditional match re-arms (Auto) or
// disarms (Single) after firing (spec.md §4.6.1).
type Mode uint8

const (
	ModeAuto Mode = iota
	ModeSingle
)

// MissReason names why an entry did not end up firing, for stats and
// logging (spec.md §4.6.2, §4.6.3).
type MissReason uint8

const (
	MissNone MissReason = iota
	MissDeadTime
	MissNoTiming
	MissOverflow
	MissTimeout
	MissNoWR
)

// Stats mirrors the runtime counters of spec.md §3: hits, per-reason
// misses, and the latency histogram bookkeeping of §4.6.3.
type Stats struct {
	Hits              uint64
	MissTimeout       uint64
	MissDeadtime      uint64
	MissOverflow      uint64
	MissNoTiming      uint64
	LatencyWorst      int64
	LatencyAvgSum     int64
	LatencyAvgNSample uint64
}

// latencyResetThreshold bounds LatencyAvgSum to avoid overflow
// (spec.md §4.6.3, "reset when sum > 2e9").
const latencyResetThreshold = 2_000_000_000

// pulseArmMargin is added to the programmed start time to produce the
// watchdog deadline (spec.md §4.6.3, "+1000 cycles ≈ 8 µs").
const pulseArmMargin = 1000

// Channel is one FD output's full runtime state: queue, scheduler
// state, dead-time gate, and stats (spec.md §3's "runtime" block).
type Channel struct {
	Queue Queue

	State     State
	Enabled   bool
	Mode      Mode
	Idle      bool // pulse generator ready for a new program
	DeadTime  tai.Timestamp
	PrevPulse tai.Timestamp
	WidthCycles int32

	pendingTrig      routing.EntryIndex
	hasPending       bool
	lastProgrammedAt tai.Timestamp

	LastEnqueued Entry
	LastExecuted Entry
	LastLost     Entry

	Stats Stats
}

// NewChannel returns a disabled, idle channel.
func NewChannel() *Channel {
	return &Channel{Idle: true}
}

// Generator is the hardware pulse-generator interface the scheduler
// drives: issuing the arm/enable command sequence and reporting back
// whether a previously programmed pulse has fired (spec.md §4.6.3).
type Generator interface {
	Program(start, end tai.Timestamp)
	Triggered() bool
	Disarm()
}

// Enqueue implements enqueue_trigger (spec.md §4.6.2): apply the
// rule's delay and dead-time/timing gates, drive the Armed/
// ConditionHit state machine, and push onto the queue. rule is
// mutated in place so its miss counters, visible through the routing
// table, stay accurate for FD_TRIG_GET_STATE. tableIdx and output
// identify rule's slot so Step can credit the hit back to it once the
// pulse actually fires, rather than here at enqueue time.
func (c *Channel) Enqueue(rule *routing.OutputRule, tableIdx routing.EntryIndex, output int, id trigger.ID, ts tai.Timestamp, seq uint32, timingOK bool) MissReason {
	if rule.State == routing.Disabled {
		rule.Misses++
		return MissNone
	}
	if !c.Enabled {
		return MissNone
	}

	adjusted := tai.Add(ts, tai.Timestamp{Ticks: rule.DelayCycles, Frac: rule.DelayFrac})

	delta := tai.Sub(adjusted, c.PrevPulse)
	if tai.Before(delta, c.DeadTime) {
		c.Stats.MissDeadtime++
		rule.Misses++
		c.LastLost = Entry{TS: adjusted, ID: id, Seq: seq, Rule: *rule}
		return MissDeadTime
	}

	if !timingOK {
		c.Stats.MissNoTiming++
		rule.Misses++
		c.LastLost = Entry{TS: adjusted, ID: id, Seq: seq, Rule: *rule}
		return MissNoTiming
	}

	switch rule.State {
	case routing.Direct:
		switch c.State {
		case Armed:
			if c.Mode == ModeSingle {
				c.State = Idle
			}
		default:
			return MissNone
		}
	case routing.Condition:
		if c.State != Armed {
			return MissNone
		}
		c.State = ConditionHit
		if rule.HasCondPtr {
			c.pendingTrig, c.hasPending = rule.CondPtr, true
		}
		return MissNone
	case routing.Conditional:
		if c.State != ConditionHit {
			return MissNone
		}
		if c.Mode == ModeSingle {
			c.State = Idle
		} else {
			c.State = Armed
		}
		c.hasPending = false
	default:
		return MissNone
	}

	if c.Queue.Capacity() == 0 {
		c.Stats.MissOverflow++
		rule.Misses++
		c.LastLost = Entry{TS: adjusted, ID: id, Seq: seq, Rule: *rule}
		return MissOverflow
	}
	c.Queue.Push(Entry{TS: adjusted, ID: id, Seq: seq, OriginCycles: ts.Ticks, Rule: *rule, TableIdx: tableIdx, Output: output})
	c.PrevPulse = adjusted
	c.LastEnqueued = Entry{TS: adjusted, ID: id, Seq: seq, Rule: *rule, TableIdx: tableIdx, Output: output}
	return MissNone
}

// Step implements do_output for one iteration (spec.md §4.6.3). The
// second return value reports whether a pulse actually fired this
// call (gen.Triggered() branch below), distinct from MissNone's
// ordinary "nothing to report" meaning, so the caller can log EXECUTED
// only on a real fire. table resolves an executed entry's TableIdx/
// Output back to its live routing rule to credit the hit there
// (spec.md §4.6.3, "increment ocfg[output].hits on execution, not on
// enqueue"); it may be nil where no routing table backs the channel.
func (c *Channel) Step(table *routing.Table, gen Generator, now tai.Timestamp, timingOK bool) (MissReason, bool) {
	if !c.Idle {
		switch {
		case !timingOK:
			gen.Disarm()
			c.Queue.Drop()
			c.Idle = true
			c.Stats.MissNoTiming++
			return MissNoWR, false
		case !gen.Triggered() && tai.Before(c.lastProgrammed(), now):
			gen.Disarm()
			c.Queue.Drop()
			c.Idle = true
			c.Stats.MissTimeout++
			return MissTimeout, false
		case gen.Triggered():
			e := c.Queue.Pop()
			c.Stats.Hits++
			c.LastExecuted = e
			c.Idle = true
			if table != nil {
				table.EntryAt(e.TableIdx).Ocfg[e.Output].Hits++
			}
			return MissNone, true
		}
		return MissNone, false
	}

	if c.Queue.Len() == 0 {
		return MissNone, false
	}
	head := c.Queue.Peek()
	if !timingOK {
		c.Queue.Drop()
		c.Stats.MissNoTiming++
		return MissNoWR, false
	}

	end := tai.Add(head.TS, tai.Timestamp{Ticks: c.WidthCycles})
	gen.Program(head.TS, end)
	c.lastProgrammedAt = tai.Add(head.TS, tai.Timestamp{Ticks: pulseArmMargin})
	c.Idle = false

	latency := int64(now.Ticks-head.OriginCycles) % tai.TicksPerSecond
	c.Stats.LatencyAvgSum += latency
	c.Stats.LatencyAvgNSample++
	if c.Stats.LatencyAvgSum > latencyResetThreshold {
		c.Stats.LatencyAvgSum = 0
		c.Stats.LatencyAvgNSample = 0
	}
	if latency > c.Stats.LatencyWorst {
		c.Stats.LatencyWorst = latency
	}
	return MissNone, false
}

func (c *Channel) lastProgrammed() tai.Timestamp { return c.lastProgrammedAt }
