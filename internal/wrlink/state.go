// Package wrlink implements the White Rabbit link state machine
// (spec.md §4.3) that gates every timing-critical operation in both
// personalities. The poll loop here is modeled on the teacher's
// nfc/poller.Poller: a small Device-like interface sampled once per
// iteration, with internal state surviving across calls.
package wrlink

import "wrtd.dev/internal/tai"

// State is one of the five WR link states.
type State int

const (
	Offline State = iota
	Online
	Syncing
	TdcWait
	Synced
)

func (s State) String() string {
	switch s {
	case Offline:
		return "Offline"
	case Online:
		return "Online"
	case Syncing:
		return "Syncing"
	case TdcWait:
		return "TdcWait"
	case Synced:
		return "Synced"
	default:
		return "Unknown"
	}
}

// tdcSettleTime is how long the state machine waits in TdcWait before
// declaring Synced, for the TDC mezzanine's timing plumbing to settle
// (spec.md §4.3).
const tdcSettleTime = 4 // seconds

// Inputs samples the three status bits the link FSM depends on, plus
// wall-clock TAI for debouncing the TdcWait->Synced transition.
type Inputs interface {
	LinkUp() bool
	TimeValid() bool
	Locked() bool
	Now() tai.Timestamp
}

// Lock is the optional callback used to enable/disable the WR PLL
// lock loop on the Online->Syncing and *->Offline transitions. A nil
// Lock is a no-op, which is sufficient for the bench simulator.
type Lock interface {
	Enable()
	Disable()
}

// Link holds the WR link state machine's runtime state.
type Link struct {
	state        State
	lock         Lock
	tdcWaitEntry tai.Timestamp
	syncedAt     tai.Timestamp
}

// New returns a Link starting Offline. lock may be nil.
func New(lock Lock) *Link {
	return &Link{state: Offline, lock: lock}
}

// State returns the current link state.
func (l *Link) State() State { return l.state }

// IsTimingOK reports whether the link is Synced: the only state in
// which timestamps may be produced or consumed (spec.md §4.3).
func (l *Link) IsTimingOK() bool { return l.state == Synced }

// Update runs one iteration of the link state machine against in.
func (l *Link) Update(in Inputs) {
	if !in.LinkUp() && l.state != Offline {
		l.disable()
		return
	}
	switch l.state {
	case Offline:
		if in.LinkUp() {
			l.state = Online
		}
	case Online:
		if in.TimeValid() {
			if l.lock != nil {
				l.lock.Enable()
			}
			l.state = Syncing
		}
	case Syncing:
		if in.Locked() {
			l.tdcWaitEntry = in.Now()
			l.state = TdcWait
		}
	case TdcWait:
		elapsed := tai.Sub(in.Now(), l.tdcWaitEntry)
		if elapsed.Seconds >= tdcSettleTime {
			l.syncedAt = in.Now()
			l.state = Synced
		}
	case Synced:
		// Nothing to do; stays Synced until link-up clears.
	}
}

func (l *Link) disable() {
	if l.lock != nil {
		l.lock.Disable()
	}
	l.state = Offline
}
