package trigger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"wrtd.dev/internal/tai"
)

// CoalesceLimit is the fixed maximum number of entries batched into a
// single wire packet (spec.md §3, "coalesce limit").
const CoalesceLimit = 5

const (
	wireTargetIP     = 0xFFFFFFFF
	wireTargetPort   = 0xEBD0
	wireTargetOffset = 0x4000

	entryWireWords = 8 // ts{hi,lo,ticks,frac} + id{sys,port,trig} + seq
	headerWords    = 6 // target_ip, target_port, target_offset, tx_seconds, tx_cycles, count
)

// Packet is a coalesced batch of up to CoalesceLimit trigger entries,
// plus the transmit-time origin stamp used only for latency tracing at
// the receiver (spec.md §4.4: "it does not participate in scheduling").
type Packet struct {
	TransmitSeconds uint32
	TransmitCycles  uint32
	Count           int
	Triggers        [CoalesceLimit]Entry
}

// ErrPacketTooLarge is returned by Append once CoalesceLimit entries
// have already been coalesced into the packet.
var ErrPacketTooLarge = errors.New("trigger: packet already holds CoalesceLimit entries")

// Append adds e to the packet, returning ErrPacketTooLarge if the
// packet is already full.
func (p *Packet) Append(e Entry) error {
	if p.Count >= CoalesceLimit {
		return ErrPacketTooLarge
	}
	p.Triggers[p.Count] = e
	p.Count++
	return nil
}

// EncodeWire renders the packet in the broadcast wire format of
// spec.md §6 (target_ip/port/offset header, little-endian 32-bit
// words throughout, full 64-bit seconds transmitted as (hi, lo)).
func (p *Packet) EncodeWire() []byte {
	buf := make([]byte, 4*(headerWords+entryWireWords*p.Count))
	putU32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	putU32(0, wireTargetIP)
	putU32(4, wireTargetPort)
	putU32(8, wireTargetOffset)
	putU32(12, p.TransmitSeconds)
	putU32(16, p.TransmitCycles)
	putU32(20, uint32(p.Count))
	off := 24
	for i := 0; i < p.Count; i++ {
		e := p.Triggers[i]
		putU32(off+0, uint32(e.TS.Seconds>>32))
		putU32(off+4, uint32(e.TS.Seconds))
		putU32(off+8, uint32(e.TS.Ticks))
		putU32(off+12, uint32(e.TS.Frac))
		putU32(off+16, e.ID.System)
		putU32(off+20, e.ID.SourcePort)
		putU32(off+24, e.ID.Trigger)
		putU32(off+28, e.Seq)
		off += 4 * entryWireWords
	}
	return buf
}

// DecodeWire parses a broadcast trigger packet. It does not require
// the target_ip/port/offset fields to carry their canonical broadcast
// values since loopback and test fixtures may reuse the same codec
// with a unicast destination; it does require count <= CoalesceLimit
// and a buffer long enough to hold that many entries.
func DecodeWire(buf []byte) (*Packet, error) {
	if len(buf) < 4*headerWords {
		return nil, fmt.Errorf("trigger: packet too short: %d bytes", len(buf))
	}
	getU32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }
	count := int(getU32(20))
	if count < 0 || count > CoalesceLimit {
		return nil, fmt.Errorf("trigger: invalid entry count %d", count)
	}
	need := 4 * (headerWords + entryWireWords*count)
	if len(buf) < need {
		return nil, fmt.Errorf("trigger: packet truncated: need %d bytes, got %d", need, len(buf))
	}
	p := &Packet{
		TransmitSeconds: getU32(12),
		TransmitCycles:  getU32(16),
		Count:           count,
	}
	off := 24
	for i := 0; i < count; i++ {
		seconds := uint64(getU32(off))<<32 | uint64(getU32(off+4))
		p.Triggers[i] = Entry{
			TS: tai.Timestamp{
				Seconds: seconds,
				Ticks:   int32(getU32(off + 8)),
				Frac:    int32(getU32(off + 12)),
			},
			ID: ID{
				System:     getU32(off + 16),
				SourcePort: getU32(off + 20),
				Trigger:    getU32(off + 24),
			},
			Seq: getU32(off + 28),
		}
		off += 4 * entryWireWords
	}
	return p, nil
}
