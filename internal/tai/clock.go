package tai

import "time"

// Epoch is the wall-clock instant that maps to Timestamp{} (TAI
// second zero), fixed so a bench run and a real card can agree on
// what "now" means without exchanging more than a single offset
// (spec.md §6.2, the bench simulator's host-driven clock).
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock converts a wall-clock reading into a Timestamp, the role a
// real card's WR PTP core normally plays. It is only ever wired into
// the bench simulator (cmd/listsim); production personalities receive
// their clock from wrlink.Inputs.Now instead.
type Clock struct {
	// Now returns the current wall-clock time; defaults to time.Now if
	// left nil by NewClock's caller.
	Now func() time.Time
}

// NewClock returns a Clock driven by time.Now.
func NewClock() *Clock {
	return &Clock{Now: time.Now}
}

// Read samples the clock and quantizes it to a normalized Timestamp.
func (c *Clock) Read() Timestamp {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	d := now.Sub(Epoch)
	if d < 0 {
		return Timestamp{}
	}
	ns := d.Nanoseconds()
	secs := uint64(ns / 1_000_000_000)
	rem := ns % 1_000_000_000
	ticks := int32(rem / 8)
	fracNs := rem % 8
	frac := int32(fracNs * FracPerTick / 8)
	return Timestamp{Seconds: secs, Ticks: ticks, Frac: frac}
}
