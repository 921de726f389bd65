package logstream

import (
	"encoding/binary"
	"fmt"

	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

// wireWords is the fixed word width of one Entry on the wire: type,
// channel, miss_reason, seq, id{system,source_port,trigger},
// ts{seconds_hi,seconds_lo,ticks} (spec.md §4.7's LogEntry
// record, given a concrete wire layout here since the distillation
// names the fields but not their wire order). The timestamp's frac is
// not carried.
const wireWords = 10

// EncodeWire renders e as the fixed-width word record a host-side
// LogReader consumes from a dedicated HMQ-out slot.
func (e Entry) EncodeWire() []byte {
	buf := make([]byte, 4*wireWords)
	put := func(i int, v uint32) { binary.LittleEndian.PutUint32(buf[4*i:], v) }
	put(0, uint32(e.Type))
	put(1, uint32(e.Channel))
	put(2, uint32(e.MissReason))
	put(3, e.Seq)
	put(4, e.ID.System)
	put(5, e.ID.SourcePort)
	put(6, e.ID.Trigger)
	put(7, uint32(e.TS.Seconds>>32))
	put(8, uint32(e.TS.Seconds))
	put(9, uint32(e.TS.Ticks))
	return buf
}

// DecodeWireEntry parses a single EncodeWire record.
func DecodeWireEntry(buf []byte) (Entry, error) {
	if len(buf) < 4*wireWords {
		return Entry{}, fmt.Errorf("logstream: short wire entry: %d bytes", len(buf))
	}
	get := func(i int) uint32 { return binary.LittleEndian.Uint32(buf[4*i:]) }
	return Entry{
		Type:       Type(get(0)),
		Channel:    int(get(1)),
		MissReason: MissReason(get(2)),
		Seq:        get(3),
		ID: trigger.ID{
			System:     get(4),
			SourcePort: get(5),
			Trigger:    get(6),
		},
		TS: tai.Timestamp{
			Seconds: uint64(get(7))<<32 | uint64(get(8)),
			Ticks:   int32(get(9)),
		},
	}, nil
}
