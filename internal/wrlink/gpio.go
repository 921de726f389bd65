package wrlink

import (
	"periph.io/x/conn/v3/gpio"

	"wrtd.dev/internal/tai"
)

// debounceReads is how many consecutive identical polls are required
// before a pin's reported level changes, the non-blocking analogue of
// driver/wshat's WaitForEdge-based debounce (that driver can afford to
// block a goroutine per button; a soft-CPU's cooperative loop cannot
// block at all, so debouncing here is a read counter, polled once per
// Update instead of driven by an edge interrupt).
const debounceReads = 3

// debouncedPin tracks a gpio.PinIn's stable level across repeated
// non-blocking polls.
type debouncedPin struct {
	pin     gpio.PinIn
	stable  bool
	pending bool
	run     int
}

func (d *debouncedPin) poll() bool {
	lvl := d.pin.Read() == gpio.High
	if lvl != d.pending {
		d.pending = lvl
		d.run = 0
	}
	d.run++
	if d.run >= debounceReads {
		d.stable = d.pending
	}
	return d.stable
}

// GPIOInputs implements Inputs by sampling three debounced GPIO pins
// on a host running periph.io/x/host, for bench rigs that expose WR
// link-up/time-valid/locked status on discrete pins rather than a
// hardware status register (spec.md §4.9, SPEC_FULL.md). It is a
// bench/demo backend only; production firmware reads the same three
// bits out of a status register through internal/regwin.
type GPIOInputs struct {
	linkUp    debouncedPin
	timeValid debouncedPin
	locked    debouncedPin
	clock     func() tai.Timestamp
}

// NewGPIOInputs returns an Inputs sampling linkUp, timeValid and
// locked, using clock for Now(). All three pins must already be
// configured for input (see driver/wshat.Open for the periph.io
// in-direction setup this mirrors).
func NewGPIOInputs(linkUp, timeValid, locked gpio.PinIn, clock func() tai.Timestamp) *GPIOInputs {
	return &GPIOInputs{
		linkUp:    debouncedPin{pin: linkUp},
		timeValid: debouncedPin{pin: timeValid},
		locked:    debouncedPin{pin: locked},
		clock:     clock,
	}
}

func (g *GPIOInputs) LinkUp() bool    { return g.linkUp.poll() }
func (g *GPIOInputs) TimeValid() bool { return g.timeValid.poll() }
func (g *GPIOInputs) Locked() bool    { return g.locked.poll() }
func (g *GPIOInputs) Now() tai.Timestamp {
	return g.clock()
}
