package hostproto

import (
	"encoding/binary"
	"fmt"
)

// BlobDescriptor exposes one structured-blob (a plain-old-data
// structure) by index; Len bounds how many bytes STRUCT_SET may
// write (spec.md §4.2).
type BlobDescriptor struct {
	Len uint32
}

// BlobTable is the firmware-published vector of blob descriptors that
// STRUCT_GET/STRUCT_SET messages index by position.
type BlobTable struct {
	descs []BlobDescriptor
	data  [][]byte
}

// NewBlobTable returns a BlobTable, each blob initially zeroed to its
// descriptor's length.
func NewBlobTable(descs []BlobDescriptor) *BlobTable {
	data := make([][]byte, len(descs))
	for i, d := range descs {
		data[i] = make([]byte, d.Len)
	}
	return &BlobTable{descs: descs, data: data}
}

func (t *BlobTable) lookup(idx uint32) error {
	if idx >= uint32(len(t.descs)) {
		return fmt.Errorf("hostproto: %w: blob index %d", &NackError{KindInvalidMessage}, idx)
	}
	return nil
}

// Get returns a copy of blob idx's current bytes.
func (t *BlobTable) Get(idx uint32) ([]byte, error) {
	if err := t.lookup(idx); err != nil {
		return nil, err
	}
	return append([]byte(nil), t.data[idx]...), nil
}

// Set copies data into blob idx. data must fit within the
// descriptor's declared length.
func (t *BlobTable) Set(idx uint32, data []byte) error {
	if err := t.lookup(idx); err != nil {
		return err
	}
	if uint32(len(data)) > t.descs[idx].Len {
		return fmt.Errorf("hostproto: %w: blob %d overflow (%d > %d)", &NackError{KindInvalidMessage}, idx, len(data), t.descs[idx].Len)
	}
	copy(t.data[idx], data)
	for i := len(data); i < len(t.data[idx]); i++ {
		t.data[idx][i] = 0
	}
	return nil
}

// TLV is a single {index, size, bytes} record, the wire
// representation of one STRUCT_GET reply entry.
type TLV struct {
	Index uint32
	Data  []byte
}

// Encode renders t as {index, size, bytes...}.
func (t TLV) Encode() []byte {
	buf := make([]byte, 8+len(t.Data))
	binary.LittleEndian.PutUint32(buf[0:], t.Index)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(t.Data)))
	copy(buf[8:], t.Data)
	return buf
}

// DecodeTLV parses a single {index, size, bytes...} record.
func DecodeTLV(buf []byte) (TLV, int, error) {
	if len(buf) < 8 {
		return TLV{}, 0, fmt.Errorf("hostproto: %w: TLV header truncated", &NackError{KindInvalidMessage})
	}
	idx := binary.LittleEndian.Uint32(buf[0:])
	size := binary.LittleEndian.Uint32(buf[4:])
	need := 8 + int(size)
	if len(buf) < need {
		return TLV{}, 0, fmt.Errorf("hostproto: %w: TLV body truncated", &NackError{KindInvalidMessage})
	}
	return TLV{Index: idx, Data: append([]byte(nil), buf[8:need]...)}, need, nil
}

// TLVBuffer is a chain of TLV records behind a single 4-byte total-
// length header, so a STRUCT_GET covering several indices can be
// assembled and consumed in one round trip: Push/Pop rewrite the
// header after every mutation, exactly as spec.md §4.2 describes
// ("length is rewritten in the header after each push/pop").
type TLVBuffer struct {
	body []byte
}

// Bytes returns the header-prefixed wire encoding of the buffer.
func (b *TLVBuffer) Bytes() []byte {
	out := make([]byte, 4+len(b.body))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(b.body)))
	copy(out[4:], b.body)
	return out
}

// Push appends a TLV record to the chain.
func (b *TLVBuffer) Push(t TLV) {
	b.body = append(b.body, t.Encode()...)
}

// Pop removes and returns the last TLV record in the chain.
func (b *TLVBuffer) Pop() (TLV, bool) {
	if len(b.body) == 0 {
		return TLV{}, false
	}
	// Scan from the front to find the offset of the last record,
	// since records are variable length.
	offsets := []int{0}
	for off := 0; off < len(b.body); {
		_, n, err := DecodeTLV(b.body[off:])
		if err != nil {
			break
		}
		off += n
		offsets = append(offsets, off)
	}
	if len(offsets) < 2 {
		return TLV{}, false
	}
	last := offsets[len(offsets)-2]
	t, _, err := DecodeTLV(b.body[last:])
	if err != nil {
		return TLV{}, false
	}
	b.body = b.body[:last]
	return t, true
}

// LoadFromBytes replaces the buffer's contents from a header-prefixed
// wire encoding produced by Bytes.
func (b *TLVBuffer) LoadFromBytes(buf []byte) error {
	if len(buf) < 4 {
		return fmt.Errorf("hostproto: %w: TLV buffer header truncated", &NackError{KindInvalidMessage})
	}
	n := binary.LittleEndian.Uint32(buf[0:])
	if uint32(len(buf)-4) < n {
		return fmt.Errorf("hostproto: %w: TLV buffer body truncated", &NackError{KindInvalidMessage})
	}
	b.body = append([]byte(nil), buf[4:4+n]...)
	return nil
}
