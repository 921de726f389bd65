// Package fd implements the OUTPUT personality (spec.md §4.6): four
// physical output channels, each with its own bounded pulse queue and
// scheduler state machine (internal/pulse), matched against the
// shared routing table.
package fd

import (
	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/pulse"
	"wrtd.dev/internal/tai"
)

// NumChannels is the fixed FD output channel count (spec.md §3).
const NumChannels = 4

// widthCyclesMin and widthCyclesMax bound Channel.WidthCycles
// (spec.md §3: "width >= 250 ns and < 1 s"); 8 ns/tick.
const (
	widthCyclesMin = (250 + 7) / 8 // ceil(250ns / 8ns)
	widthCyclesMax = tai.TicksPerSecond
)

// Channel wraps a pulse.Channel with the config fields spec.md §3
// lists for an FD output: mode, flags, log level, dead time, pulse
// width.
type Channel struct {
	pulse.Channel
	LogLevel logstream.Levels
}

// NewChannel returns a disabled, idle output channel.
func NewChannel() *Channel {
	return &Channel{Channel: *pulse.NewChannel()}
}

// SetWidth validates and applies the pulse width in ticks (spec.md
// §3: "width >= 250 ns and < 1 s").
func (c *Channel) SetWidth(ticks int32) error {
	if ticks < widthCyclesMin || ticks >= widthCyclesMax {
		return &hostproto.NackError{Kind: hostproto.KindInvalidPulseWidth}
	}
	c.WidthCycles = ticks
	return nil
}

// SetDeadTime validates and applies the dead-time gate in ticks,
// reusing the same [10_000, 10_000_000] bound spec.md §3 states for
// TDC input channels — the output side's dead-time gate guards the
// same physical constraint (generator recovery time).
func (c *Channel) SetDeadTime(ticks int32) error {
	const min, max = 10_000, 10_000_000
	if ticks < min || ticks > max {
		return &hostproto.NackError{Kind: hostproto.KindInvalidDeadTime}
	}
	c.DeadTime = tai.Timestamp{Ticks: ticks}
	return nil
}
