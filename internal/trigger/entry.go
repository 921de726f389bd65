package trigger

import "wrtd.dev/internal/tai"

// Entry is one timestamped trigger occurrence: who (ID), when (ts),
// and its per-input sequence number. Entries are immutable once
// created; loopback and RMQ delivery both preserve seq.
type Entry struct {
	TS  tai.Timestamp
	ID  ID
	Seq uint32
}
