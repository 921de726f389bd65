// Package regwin abstracts the memory-mapped register windows the
// soft-CPU cores and their atomic shared-memory cells are built on.
// Production code maps a real character device; tests and the bench
// simulator back the same interface with plain memory, the way the
// teacher's driver/otp row accessors are swappable between a real
// bootrom call and (in tests) a fake.
package regwin

import "fmt"

// Window is a flat array of 32-bit registers addressed by word index,
// not byte offset — mirroring how the firmware's SMEM aliasing scheme
// indexes addresses relative to a window base.
type Window interface {
	// ReadWord returns the current value at word index idx.
	ReadWord(idx uint32) uint32
	// WriteWord stores v at word index idx.
	WriteWord(idx uint32, v uint32)
	// Words reports the addressable size of the window.
	Words() uint32
}

// Mem is an in-memory Window, used by the bench simulator and by
// every package's unit tests in place of a real mmap'd char device.
type Mem struct {
	words []uint32
}

// NewMem allocates a Mem window with room for n words.
func NewMem(n uint32) *Mem {
	return &Mem{words: make([]uint32, n)}
}

func (m *Mem) ReadWord(idx uint32) uint32 {
	m.checkBounds(idx)
	return m.words[idx]
}

func (m *Mem) WriteWord(idx uint32, v uint32) {
	m.checkBounds(idx)
	m.words[idx] = v
}

func (m *Mem) Words() uint32 { return uint32(len(m.words)) }

func (m *Mem) checkBounds(idx uint32) {
	if idx >= uint32(len(m.words)) {
		panic(fmt.Sprintf("regwin: word index %d out of range (window has %d words)", idx, len(m.words)))
	}
}
