package smem

import "wrtd.dev/internal/regwin"

// aliasStride is the word distance between a cell's plain address and
// its "add" alias, and between consecutive op aliases; the concrete
// value is board-specific firmware layout, not a protocol invariant,
// so it is a var rather than a const.
var aliasStride uint32 = 0x800

const (
	aliasStore = 0
	aliasAdd   = 1
	aliasSub   = 2
	aliasOr    = 3
	aliasAndNot = 4
	aliasXor   = 5
)

// AliasedBackend is the production Backend: each operation writes to
// a different address alias of the same cell, and the memory-mapped
// range's hardware performs the read-modify-write atomically. This is
// the host-side counterpart of the firmware's SMEM atomic ops
// (spec.md §5); it is only ever used by firmware code running for
// real, never by the host library.
type AliasedBackend struct {
	win regwin.Window
}

// NewAliasedBackend wraps win, a register window sized to cover
// aliasStride*6 words per addressable cell range.
func NewAliasedBackend(win regwin.Window) *AliasedBackend {
	return &AliasedBackend{win: win}
}

func (b *AliasedBackend) addr(idx uint32, alias uint32) uint32 {
	return idx + alias*aliasStride
}

func (b *AliasedBackend) Load(idx uint32) uint32 {
	return b.win.ReadWord(b.addr(idx, aliasStore))
}

func (b *AliasedBackend) Store(idx uint32, v uint32) {
	b.win.WriteWord(b.addr(idx, aliasStore), v)
}

func (b *AliasedBackend) Add(idx uint32, delta uint32) uint32 {
	b.win.WriteWord(b.addr(idx, aliasAdd), delta)
	return b.win.ReadWord(b.addr(idx, aliasStore))
}

func (b *AliasedBackend) Sub(idx uint32, delta uint32) uint32 {
	b.win.WriteWord(b.addr(idx, aliasSub), delta)
	return b.win.ReadWord(b.addr(idx, aliasStore))
}

func (b *AliasedBackend) Or(idx uint32, mask uint32) uint32 {
	b.win.WriteWord(b.addr(idx, aliasOr), mask)
	return b.win.ReadWord(b.addr(idx, aliasStore))
}

func (b *AliasedBackend) AndNot(idx uint32, mask uint32) uint32 {
	b.win.WriteWord(b.addr(idx, aliasAndNot), mask)
	return b.win.ReadWord(b.addr(idx, aliasStore))
}

func (b *AliasedBackend) Xor(idx uint32, mask uint32) uint32 {
	b.win.WriteWord(b.addr(idx, aliasXor), mask)
	return b.win.ReadWord(b.addr(idx, aliasStore))
}
