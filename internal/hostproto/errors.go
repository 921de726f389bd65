package hostproto

import "fmt"

// ErrorKind is the firmware's validation error taxonomy (spec.md §7).
// Every value other than Timeout is carried as a single 32-bit code in
// a NACK payload; Timeout is host-side only and never crosses the
// wire.
type ErrorKind uint32

const (
	KindInvalidChannel ErrorKind = iota + 1
	KindInvalidDelay
	KindInvalidPulseWidth
	KindInvalidDeadTime
	KindTriggerNotFound
	KindNoTriggerCondition
	KindTableFull
	KindInvalidMessage
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidChannel:
		return "InvalidChannel"
	case KindInvalidDelay:
		return "InvalidDelay"
	case KindInvalidPulseWidth:
		return "InvalidPulseWidth"
	case KindInvalidDeadTime:
		return "InvalidDeadTime"
	case KindTriggerNotFound:
		return "TriggerNotFound"
	case KindNoTriggerCondition:
		return "NoTriggerCondition"
	case KindTableFull:
		return "TableFull"
	case KindInvalidMessage:
		return "InvalidMessage"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint32(k))
	}
}

// NackError is the Go representation of a NACK payload: a single
// error-kind code (spec.md §4.2, "NACK semantics").
type NackError struct {
	Kind ErrorKind
}

func (e *NackError) Error() string { return "wrtd: nack: " + e.Kind.String() }

func errShortFrame(n int) error {
	return fmt.Errorf("hostproto: %w: frame too short (%d bytes)", &NackError{KindInvalidMessage}, n)
}
