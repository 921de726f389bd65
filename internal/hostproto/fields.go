package hostproto

import (
	"fmt"

	"wrtd.dev/internal/regwin"
)

// FieldDescriptor exposes one structured-variable register field
// (spec.md §4.2): a register address, the field's own small bitmask,
// a shift offset, and access flags.
type FieldDescriptor struct {
	Addr   uint32
	Mask   uint32
	Offset uint32
	Flags  uint8
}

// FieldWriteOnly marks a field that is write-only: SET never performs
// a read-modify-write, it simply writes the shifted value (spec.md
// §4.2, "WO").
const FieldWriteOnly uint8 = 1 << 0

// FieldTable is the firmware-published vector of field descriptors
// that FIELD_GET/FIELD_SET messages index by position.
type FieldTable struct {
	win   regwin.Window
	descs []FieldDescriptor
}

// NewFieldTable returns a FieldTable over win, the register window
// the descriptors' addresses are relative to.
func NewFieldTable(win regwin.Window, descs []FieldDescriptor) *FieldTable {
	return &FieldTable{win: win, descs: descs}
}

func (t *FieldTable) lookup(idx uint32) (FieldDescriptor, error) {
	if idx >= uint32(len(t.descs)) {
		return FieldDescriptor{}, fmt.Errorf("hostproto: %w: field index %d", &NackError{KindInvalidMessage}, idx)
	}
	return t.descs[idx], nil
}

// Get returns the current value of field idx: (reg(addr) >> offset) &
// mask.
func (t *FieldTable) Get(idx uint32) (uint32, error) {
	d, err := t.lookup(idx)
	if err != nil {
		return 0, err
	}
	reg := t.win.ReadWord(d.Addr)
	return (reg >> d.Offset) & d.Mask, nil
}

// Set writes value into field idx. Unless the field is FieldWriteOnly,
// this performs a read-modify-write that leaves every other bit of
// the register untouched.
func (t *FieldTable) Set(idx uint32, value uint32) error {
	d, err := t.lookup(idx)
	if err != nil {
		return err
	}
	shifted := (value & d.Mask) << d.Offset
	if d.Flags&FieldWriteOnly != 0 {
		t.win.WriteWord(d.Addr, shifted)
		return nil
	}
	old := t.win.ReadWord(d.Addr)
	cleared := old &^ (d.Mask << d.Offset)
	t.win.WriteWord(d.Addr, cleared|shifted)
	return nil
}
