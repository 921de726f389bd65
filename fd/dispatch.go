package fd

import (
	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/pulse"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

func (p *Personality) channel(idx int) (*Channel, error) {
	if idx < 0 || idx >= NumChannels {
		return nil, &hostproto.NackError{Kind: hostproto.KindInvalidChannel}
	}
	return &p.Channels[idx], nil
}

// TrigAssign implements FD_TRIG_ASSIGN: bind id to output's rule as a
// Direct rule (spec.md §4.5). Condition/Conditional pairs are created
// by TrigAssignConditional.
func (p *Personality) TrigAssign(output int, id trigger.ID, rule routing.OutputRule) error {
	if _, err := p.channel(output); err != nil {
		return err
	}
	rule.State = routing.Direct
	_, err := p.Table.Assign(id, output, rule)
	return asTableNack(err)
}

// TrigAssignConditional implements FD_TRIG_ASSIGN with a condition:
// create (or reuse) the Condition/Conditional pair atomically.
func (p *Personality) TrigAssignConditional(output int, conditionID, conditionalID trigger.ID, rule routing.OutputRule) error {
	if _, err := p.channel(output); err != nil {
		return err
	}
	return asTableNack(p.Table.AssignConditionPair(output, conditionID, conditionalID, rule))
}

// asTableNack turns routing.ErrTableFull into the NACK kind host
// callers expect (spec.md §7, kind TableFull); every other error
// (including nil) passes through unchanged.
func asTableNack(err error) error {
	if err == routing.ErrTableFull {
		return &hostproto.NackError{Kind: hostproto.KindTableFull}
	}
	return err
}

// TrigRemove implements FD_TRIG_REMOVE.
func (p *Personality) TrigRemove(output int, id trigger.ID) error {
	if _, err := p.channel(output); err != nil {
		return err
	}
	return p.Table.Remove(id, output)
}

// TrigEnable implements FD_TRIG_ENABLE: toggle a rule's Disabled bit
// without touching its hit/miss counters (spec.md §4.5: "Disabled
// suppresses enqueue but preserves hits/misses counters").
func (p *Personality) TrigEnable(output int, id trigger.ID, enable bool) error {
	if _, err := p.channel(output); err != nil {
		return err
	}
	_, entry, ok := p.Table.Lookup(id)
	if !ok {
		return &hostproto.NackError{Kind: hostproto.KindTriggerNotFound}
	}
	rule := &entry.Ocfg[output]
	if enable {
		if rule.State == routing.Disabled {
			rule.State = routing.Direct
		}
	} else {
		rule.State = routing.Disabled
	}
	return nil
}

// TrigSetDelay implements FD_TRIG_SET_DELAY.
func (p *Personality) TrigSetDelay(output int, id trigger.ID, cycles, frac int32) error {
	if _, err := p.channel(output); err != nil {
		return err
	}
	if cycles < 0 || cycles >= tai.TicksPerSecond || frac < 0 || frac >= tai.FracPerTick {
		return &hostproto.NackError{Kind: hostproto.KindInvalidDelay}
	}
	_, entry, ok := p.Table.Lookup(id)
	if !ok {
		return &hostproto.NackError{Kind: hostproto.KindTriggerNotFound}
	}
	entry.Ocfg[output].DelayCycles = cycles
	entry.Ocfg[output].DelayFrac = frac
	return nil
}

// TrigGetByID implements FD_TRIG_GET_BY_ID.
func (p *Personality) TrigGetByID(id trigger.ID) (routing.Entry, error) {
	_, entry, ok := p.Table.Lookup(id)
	if !ok {
		return routing.Entry{}, &hostproto.NackError{Kind: hostproto.KindTriggerNotFound}
	}
	return *entry, nil
}

// TrigGetState implements FD_TRIG_GET_STATE: the per-output rule for
// id, including its hit/miss/latency counters.
func (p *Personality) TrigGetState(output int, id trigger.ID) (routing.OutputRule, error) {
	if _, err := p.channel(output); err != nil {
		return routing.OutputRule{}, err
	}
	_, entry, ok := p.Table.Lookup(id)
	if !ok {
		return routing.OutputRule{}, &hostproto.NackError{Kind: hostproto.KindTriggerNotFound}
	}
	return entry.Ocfg[output], nil
}

// ChanResetCounters implements FD_CHAN_RESET_COUNTERS.
func (p *Personality) ChanResetCounters(output int) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	c.Stats = pulse.Stats{}
	return nil
}

// ChanEnable implements FD_CHAN_ENABLE. Disabling resets the pulse
// queue, returns the scheduler to Idle (which clears the armed state)
// and marks the generator ready for a new program (spec.md §4.6.5).
func (p *Personality) ChanEnable(output int, enable bool) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	c.Enabled = enable
	if !enable {
		c.Queue = pulse.Queue{}
		c.State = pulse.Idle
		c.Idle = true
	}
	return nil
}

// ChanSetMode implements FD_CHAN_SET_MODE. Switching to Single
// additionally forces Idle and clears ARMED (spec.md §4.6.5).
func (p *Personality) ChanSetMode(output int, mode pulse.Mode) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	c.Mode = mode
	if mode == pulse.ModeSingle {
		c.State = pulse.Idle
	}
	return nil
}

// ChanArm implements FD_CHAN_ARM.
func (p *Personality) ChanArm(output int) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	c.State = pulse.Armed
	return nil
}

// ChanState is a host-readable snapshot answered by FD_CHAN_GET_STATE.
type ChanState struct {
	State    pulse.State
	Enabled  bool
	Mode     pulse.Mode
	QueueLen int
	Stats    pulse.Stats
}

// ChanGetState implements FD_CHAN_GET_STATE.
func (p *Personality) ChanGetState(output int) (ChanState, error) {
	c, err := p.channel(output)
	if err != nil {
		return ChanState{}, err
	}
	return ChanState{
		State:    c.State,
		Enabled:  c.Enabled,
		Mode:     c.Mode,
		QueueLen: c.Queue.Len(),
		Stats:    c.Stats,
	}, nil
}

// ChanSetLogLevel implements FD_CHAN_SET_LOG_LEVEL.
func (p *Personality) ChanSetLogLevel(output int, level logstream.Levels) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	c.LogLevel = level
	p.Logger.ChannelLevel[output] = level
	return nil
}

// ChanSetWidth implements FD_CHAN_SET_WIDTH.
func (p *Personality) ChanSetWidth(output int, ticks int32) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	return c.SetWidth(ticks)
}

// ChanDeadTime implements FD_CHAN_DEAD_TIME.
func (p *Personality) ChanDeadTime(output int, ticks int32) error {
	c, err := p.channel(output)
	if err != nil {
		return err
	}
	return c.SetDeadTime(ticks)
}

// ReadHash implements FD_READ_HASH: iterate every valid routing entry.
func (p *Personality) ReadHash(visit func(routing.Entry)) {
	p.Table.Each(visit)
}

// BaseTime implements FD_BASE_TIME.
func (p *Personality) BaseTime() tai.Timestamp { return p.Clock() }

// Ping implements FD_PING.
func (p *Personality) Ping() error { return nil }

// Version implements FD_VERSION.
func (p *Personality) Version() hostproto.Version { return p.version }
