//go:build linux

package regwin

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapWindow maps a register window out of the core's character
// device, the consumer-side counterpart of the out-of-scope kernel
// driver named in spec.md §1. Geometry (word count) is read with an
// ioctl the way the original host library queries slot width/depth at
// init (spec.md §4.1).
type MmapWindow struct {
	f      *os.File
	data   []byte
	words  uint32
	ioctlN uint
}

// WindowSizeIoctl is the ioctl request number the char device answers
// with the window's word count. Production deployments set this to
// match their driver; it is a package variable (rather than a
// constant) so a real driver's request number can be wired in without
// forking this file.
var WindowSizeIoctl uint = 0x80044d00

// OpenMmap opens path (e.g. "/dev/wrtd-hmq0") and maps nWords*4 bytes
// starting at byte offset. If nWords is 0, it is first discovered via
// WindowSizeIoctl.
func OpenMmap(path string, nWords uint32, offset int64) (*MmapWindow, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("regwin: open %s: %w", path, err)
	}
	if nWords == 0 {
		n, ierr := unix.IoctlGetInt(int(f.Fd()), WindowSizeIoctl)
		if ierr != nil {
			f.Close()
			return nil, fmt.Errorf("regwin: ioctl window size: %w", ierr)
		}
		nWords = uint32(n)
	}
	size := int(nWords) * 4
	data, err := unix.Mmap(int(f.Fd()), offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("regwin: mmap %s: %w", path, err)
	}
	return &MmapWindow{f: f, data: data, words: nWords}, nil
}

func (w *MmapWindow) ReadWord(idx uint32) uint32 {
	w.checkBounds(idx)
	p := (*uint32)(unsafe.Pointer(&w.data[idx*4]))
	return *p
}

func (w *MmapWindow) WriteWord(idx uint32, v uint32) {
	w.checkBounds(idx)
	p := (*uint32)(unsafe.Pointer(&w.data[idx*4]))
	*p = v
}

func (w *MmapWindow) Words() uint32 { return w.words }

func (w *MmapWindow) checkBounds(idx uint32) {
	if idx >= w.words {
		panic(fmt.Sprintf("regwin: word index %d out of range (window has %d words)", idx, w.words))
	}
}

// Close unmaps the window and closes the underlying device.
func (w *MmapWindow) Close() error {
	if err := unix.Munmap(w.data); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
