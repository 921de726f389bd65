// Package trigger defines the wire-level identity and entry types
// exchanged between the input and output personalities: the 96-bit
// trigger identity, a single timestamped trigger occurrence, and the
// coalesced packet that carries a batch of occurrences over the
// network fabric.
package trigger

import "fmt"

// ID is a 96-bit administrator-assigned trigger identity. It is
// opaque to the firmware: equality is purely field-wise.
type ID struct {
	System     uint32
	SourcePort uint32
	Trigger    uint32
}

// Equal reports whether a and b name the same trigger.
func (a ID) Equal(b ID) bool {
	return a == b
}

// Less provides the lexicographic (system, source_port, trigger) order
// the routing table is sorted under.
func (a ID) Less(b ID) bool {
	if a.System != b.System {
		return a.System < b.System
	}
	if a.SourcePort != b.SourcePort {
		return a.SourcePort < b.SourcePort
	}
	return a.Trigger < b.Trigger
}

func (a ID) String() string {
	return fmt.Sprintf("%08x:%08x:%08x", a.System, a.SourcePort, a.Trigger)
}
