package tdc

import "wrtd.dev/internal/hostproto"

// Error values returned by Channel/Personality methods, each wrapping
// the NACK kind the host protocol reports for it (spec.md §7).
var (
	ErrInvalidChannel  = &hostproto.NackError{Kind: hostproto.KindInvalidChannel}
	ErrInvalidDelay    = &hostproto.NackError{Kind: hostproto.KindInvalidDelay}
	ErrInvalidDeadTime = &hostproto.NackError{Kind: hostproto.KindInvalidDeadTime}
)
