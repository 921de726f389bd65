// Package hostlib is the host-importable Go library over a card's
// control channel (spec.md §1, "a host-importable Go library"): the
// synchronous request/reply transaction, structured field/blob access,
// per-personality typed wrappers, and routing-table snapshotting.
package hostlib

import (
	"errors"
	"fmt"

	"wrtd.dev/internal/hostproto"
)

// AsNackKind unwraps err looking for a *hostproto.NackError, the way
// driver/wshat inspects a sentinel error with errors.As after wrapping
// it through several layers of fmt.Errorf("%w").
func AsNackKind(err error) (hostproto.ErrorKind, bool) {
	var nack *hostproto.NackError
	if errors.As(err, &nack) {
		return nack.Kind, true
	}
	return 0, false
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("hostlib: %s: %w", op, err)
}

func errShortReply(n int) error {
	return fmt.Errorf("short reply (%d words)", n)
}
