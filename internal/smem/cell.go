// Package smem implements the cross-core atomic shared-memory cell:
// the only synchronization primitive the firmware needs, since each
// cell (loopback queue head/tail/count, per-channel counters) is
// written by exactly one producer or one consumer (spec.md §5).
//
// On real hardware a plain store and the five atomic operations (add,
// sub, or, and-not, xor) are selected by writing to one of several address aliases of
// the same cell; the aliasing hardware performs the read-modify-write
// atomically so firmware never needs a lock. Off hardware — unit
// tests, the bench simulator — the same Cell type is backed by a
// plain Go mutex, the way the teacher's driver/otp swaps a real
// bootrom call for a row-addressed test double.
package smem

import "sync"

// Backend performs the five atomic operations on a single 32-bit cell
// addressed by idx. Add/Sub/Or/AndNot/Xor return the value after the
// operation has been applied.
type Backend interface {
	Load(idx uint32) uint32
	Store(idx uint32, v uint32)
	Add(idx uint32, delta uint32) uint32
	Sub(idx uint32, delta uint32) uint32
	Or(idx uint32, mask uint32) uint32
	AndNot(idx uint32, mask uint32) uint32
	Xor(idx uint32, mask uint32) uint32
}

// Cell is a single atomically-updated word at index idx of a Backend.
type Cell struct {
	b   Backend
	idx uint32
}

// NewCell returns a Cell for word idx of b.
func NewCell(b Backend, idx uint32) Cell { return Cell{b: b, idx: idx} }

func (c Cell) Load() uint32                { return c.b.Load(c.idx) }
func (c Cell) Store(v uint32)              { c.b.Store(c.idx, v) }
func (c Cell) Add(delta uint32) uint32     { return c.b.Add(c.idx, delta) }
func (c Cell) Sub(delta uint32) uint32     { return c.b.Sub(c.idx, delta) }
func (c Cell) Or(mask uint32) uint32       { return c.b.Or(c.idx, mask) }
func (c Cell) AndNot(mask uint32) uint32   { return c.b.AndNot(c.idx, mask) }
func (c Cell) Xor(mask uint32) uint32      { return c.b.Xor(c.idx, mask) }

// MemBackend is a Backend over a plain Go slice, guarded by a single
// mutex. It is what unit tests, the bench simulator, and the loopback
// queue (internal/mqueue) use in place of real aliased hardware
// addresses.
type MemBackend struct {
	mu    sync.Mutex
	words []uint32
}

// NewMemBackend allocates a MemBackend with room for n cells.
func NewMemBackend(n uint32) *MemBackend {
	return &MemBackend{words: make([]uint32, n)}
}

func (b *MemBackend) Load(idx uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.words[idx]
}

func (b *MemBackend) Store(idx uint32, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[idx] = v
}

func (b *MemBackend) Add(idx uint32, delta uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[idx] += delta
	return b.words[idx]
}

func (b *MemBackend) Sub(idx uint32, delta uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[idx] -= delta
	return b.words[idx]
}

func (b *MemBackend) Or(idx uint32, mask uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[idx] |= mask
	return b.words[idx]
}

func (b *MemBackend) AndNot(idx uint32, mask uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[idx] &^= mask
	return b.words[idx]
}

func (b *MemBackend) Xor(idx uint32, mask uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[idx] ^= mask
	return b.words[idx]
}
