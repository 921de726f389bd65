// Package hostproto implements the framed host<->core protocol
// (spec.md §4.2): the fixed header, its quirky first-word byte swap,
// synchronous request/reply sequence matching, and structured
// variable/blob access. It is shared by both personalities and by the
// host-side library (hostlib).
package hostproto

import "encoding/binary"

// Flag bits carried in Header.Flags.
const (
	FlagRemote     uint8 = 1 << 0
	FlagSync       uint8 = 1 << 1
	FlagRPC        uint8 = 1 << 2
	FlagPeriodical uint8 = 1 << 3
)

// HeaderWords is the header size in 32-bit words.
const HeaderWords = 4

// HeaderBytes is the header size in bytes.
const HeaderBytes = HeaderWords * 4

// Header is the fixed frame header of spec.md §4.2.
type Header struct {
	RTAppID uint16
	MsgID   uint8
	// SlotIO packs the input/output slot index nibbles: hi=in_idx,
	// lo=out_idx.
	SlotIO uint8
	Seq    uint32
	// Len is the payload length in 32-bit words.
	Len   uint8
	Flags uint8
	// Trans is a transaction descriptor (flags + sequence byte); its
	// interpretation is reserved for personality-specific framing on
	// top of the standard fields.
	Trans uint8
	Time  uint32
}

// InSlot returns the input slot index (the high nibble of SlotIO).
func (h Header) InSlot() uint8 { return h.SlotIO >> 4 }

// OutSlot returns the output slot index (the low nibble of SlotIO).
func (h Header) OutSlot() uint8 { return h.SlotIO & 0x0f }

// SlotIOOf packs an (in, out) slot index pair into a SlotIO byte.
func SlotIOOf(in, out uint8) uint8 {
	return (in << 4) | (out & 0x0f)
}

// HasFlag reports whether all bits of flag are set in h.Flags.
func (h Header) HasFlag(flag uint8) bool { return h.Flags&flag == flag }

// byteSwap32 reverses the byte order of the first 4 bytes of buf in
// place — the endianness fixup the host codec applies to the first
// header word only (spec.md §4.2); every other word, including every
// payload word, stays little-endian.
func byteSwap32(buf []byte) {
	buf[0], buf[1], buf[2], buf[3] = buf[3], buf[2], buf[1], buf[0]
}

// Encode renders h followed by payload (len(payload) words) as the
// byte stream placed on the wire/slot.
func Encode(h Header, payload []uint32) []byte {
	buf := make([]byte, HeaderBytes+4*len(payload))
	binary.LittleEndian.PutUint16(buf[0:], h.RTAppID)
	buf[2] = h.MsgID
	buf[3] = h.SlotIO
	binary.LittleEndian.PutUint32(buf[4:], h.Seq)
	buf[8] = h.Len
	buf[9] = h.Flags
	buf[10] = 0 // _pad
	buf[11] = h.Trans
	binary.LittleEndian.PutUint32(buf[12:], h.Time)
	byteSwap32(buf[0:4])
	for i, w := range payload {
		binary.LittleEndian.PutUint32(buf[HeaderBytes+4*i:], w)
	}
	return buf
}

// Decode parses a byte stream produced by Encode into a Header and
// its payload words.
func Decode(buf []byte) (Header, []uint32, error) {
	if len(buf) < HeaderBytes {
		return Header{}, nil, errShortFrame(len(buf))
	}
	hdr := append([]byte(nil), buf[0:4]...)
	byteSwap32(hdr)
	h := Header{
		RTAppID: binary.LittleEndian.Uint16(hdr[0:]),
		MsgID:   hdr[2],
		SlotIO:  hdr[3],
		Seq:     binary.LittleEndian.Uint32(buf[4:]),
		Len:     buf[8],
		Flags:   buf[9],
		Trans:   buf[11],
		Time:    binary.LittleEndian.Uint32(buf[12:]),
	}
	need := HeaderBytes + 4*int(h.Len)
	if len(buf) < need {
		return Header{}, nil, errShortFrame(len(buf))
	}
	payload := make([]uint32, h.Len)
	for i := range payload {
		payload[i] = binary.LittleEndian.Uint32(buf[HeaderBytes+4*i:])
	}
	return h, payload, nil
}
