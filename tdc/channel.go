// Package tdc implements the INPUT personality (spec.md §4.4): five
// physical timestamp-tagging channels, each converting raw
// timestamp-FIFO samples into TriggerEntry occurrences and emitting
// them onto the network and the loopback queue.
package tdc

import (
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

// NumChannels is the fixed TDC channel count (spec.md §3).
const NumChannels = 5

// Mode selects whether a channel re-arms after firing (Auto) or
// requires a fresh host ARM (Single).
type Mode uint8

const (
	ModeSingle Mode = iota
	ModeAuto
)

// Flag bits over Channel.Flags (spec.md §3).
type Flag uint8

const (
	FlagEnabled         Flag = 1 << 0
	FlagTriggerAssigned Flag = 1 << 1
	FlagLastValid       Flag = 1 << 2
	FlagArmed           Flag = 1 << 3
	FlagTriggered       Flag = 1 << 4
	FlagNoWR            Flag = 1 << 5
)

func (f Flag) in(bits Flag) bool    { return bits&f != 0 }
func setFlag(bits *Flag, f Flag)    { *bits |= f }
func clearFlag(bits *Flag, f Flag)  { *bits &^= f }

// minDeadTimeTicks and maxDeadTimeTicks bound Channel.DeadTime (spec.md §3).
const (
	minDeadTimeTicks = 10_000
	maxDeadTimeTicks = 10_000_000
)

// Channel is one physical input's configuration and runtime state
// (spec.md §3).
type Channel struct {
	ID             trigger.ID
	Delay          tai.Timestamp
	TimebaseOffset tai.Timestamp
	DeadTime       int64 // ticks
	Mode           Mode
	Flags          Flag
	LogLevel       logstream.Levels

	LastTagged   tai.Timestamp
	LastSent     trigger.Entry
	Seq          uint32
	TotalPulses  uint64
	SentPulses   uint64
	MissNoTiming uint64
}

// SetDeadTime validates and applies a dead-time value in ticks
// (spec.md §3 invariant: "dead_time >= 10_000 ticks and <= 10_000_000
// ticks").
func (c *Channel) SetDeadTime(ticks int64) error {
	if ticks < minDeadTimeTicks || ticks > maxDeadTimeTicks {
		return ErrInvalidDeadTime
	}
	c.DeadTime = ticks
	return nil
}

// Arm sets ARMED and clears TRIGGERED (spec.md §4.4, host command
// ARM).
func (c *Channel) Arm() {
	setFlag(&c.Flags, FlagArmed)
	clearFlag(&c.Flags, FlagTriggered)
}
