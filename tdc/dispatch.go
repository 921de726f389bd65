package tdc

import (
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

// State is a host-readable snapshot of one channel, answered by
// GET_STATE (spec.md §4.4).
type State struct {
	Flags        Flag
	Mode         Mode
	Seq          uint32
	TotalPulses  uint64
	SentPulses   uint64
	MissNoTiming uint64
	LastTagged   tai.Timestamp
	LastSent     trigger.Entry
}

func (p *Personality) channel(idx int) (*Channel, error) {
	if idx < 0 || idx >= NumChannels {
		return nil, ErrInvalidChannel
	}
	return &p.Channels[idx], nil
}

// ChanEnable implements TDC_CHAN_ENABLE.
func (p *Personality) ChanEnable(idx int, enable bool) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	if enable {
		setFlag(&c.Flags, FlagEnabled)
	} else {
		clearFlag(&c.Flags, FlagEnabled)
	}
	return nil
}

// SetDeadTime implements SET_DEAD_TIME.
func (p *Personality) SetDeadTime(idx int, ticks int64) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	return c.SetDeadTime(ticks)
}

// SetDelay implements SET_DELAY.
func (p *Personality) SetDelay(idx int, delay tai.Timestamp) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	if delay.Seconds != 0 || delay.Ticks < 0 || delay.Ticks >= tai.TicksPerSecond {
		return ErrInvalidDelay
	}
	c.Delay = delay
	return nil
}

// SetTimebaseOffset implements SET_TIMEBASE_OFFSET.
func (p *Personality) SetTimebaseOffset(idx int, offset tai.Timestamp) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.TimebaseOffset = offset
	return nil
}

// GetState implements GET_STATE.
func (p *Personality) GetState(idx int) (State, error) {
	c, err := p.channel(idx)
	if err != nil {
		return State{}, err
	}
	return State{
		Flags:        c.Flags,
		Mode:         c.Mode,
		Seq:          c.Seq,
		TotalPulses:  c.TotalPulses,
		SentPulses:   c.SentPulses,
		MissNoTiming: c.MissNoTiming,
		LastTagged:   c.LastTagged,
		LastSent:     c.LastSent,
	}, nil
}

// AssignTrigger implements ASSIGN_TRIGGER: bind the channel to the
// trigger identity it emits and mark it TriggerAssigned.
func (p *Personality) AssignTrigger(idx int, id trigger.ID) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.ID = id
	setFlag(&c.Flags, FlagTriggerAssigned)
	return nil
}

// SetMode implements SET_MODE.
func (p *Personality) SetMode(idx int, mode Mode) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.Mode = mode
	return nil
}

// SetSeq implements SET_SEQ.
func (p *Personality) SetSeq(idx int, seq uint32) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.Seq = seq
	return nil
}

// SetLogLevel implements SET_LOG_LEVEL.
func (p *Personality) SetLogLevel(idx int, level logstream.Levels) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.LogLevel = level
	p.Logger.ChannelLevel[idx] = level
	return nil
}

// ResetCounters implements RESET_COUNTERS: clears the pulse/miss
// stats counters and leaves everything else, including Seq, untouched
// — the original's ctl_chan_reset_counters never resets the sequence
// number either, only the accounting fields.
func (p *Personality) ResetCounters(idx int) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.TotalPulses = 0
	c.SentPulses = 0
	c.MissNoTiming = 0
	return nil
}

// Ping implements PING: a liveness no-op, always succeeding.
func (p *Personality) Ping() error { return nil }

// Arm implements the ARM host command for channel idx.
func (p *Personality) Arm(idx int) error {
	c, err := p.channel(idx)
	if err != nil {
		return err
	}
	c.Arm()
	return nil
}
