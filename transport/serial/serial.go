// Package serial implements a debug/bench transport.Queue backend
// over a UART console, for soft-core bring-up rigs where the HMQ is
// exposed as a framed serial stream rather than mmap'd memory. Opening
// the port follows driver/mjolnir.Open's pattern of a github.com/tarm/
// serial.Config with a fixed baud rate; Open takes a single device
// path.
package serial

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tarm/serial"
	"wrtd.dev/transport"
)

const baudRate = 115200

// frameLenBytes is the little-endian uint32 length prefix every frame
// is sent with over the serial link, since a UART has no message
// boundaries of its own.
const frameLenBytes = 4

// Queue is a transport.Queue over a length-prefixed framed serial
// stream.
type Queue struct {
	port io.ReadWriteCloser
	recv chan []byte
	errs chan error
	done chan struct{}
}

// Open opens dev (e.g. "/dev/ttyUSB0") at the fixed bring-up baud rate
// and starts the background frame reader.
func Open(dev string) (*Queue, error) {
	c := &serial.Config{Name: dev, Baud: baudRate}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", dev, err)
	}
	q := &Queue{
		port: port,
		recv: make(chan []byte, 64),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	go q.readLoop()
	return q, nil
}

func (q *Queue) readLoop() {
	var lenBuf [frameLenBytes]byte
	for {
		if _, err := io.ReadFull(q.port, lenBuf[:]); err != nil {
			q.fail(err)
			return
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(q.port, frame); err != nil {
			q.fail(err)
			return
		}
		select {
		case q.recv <- frame:
		default:
			// Bench rig fell behind; drop rather than block the
			// reader (spec.md §4.1 drop-on-full contract).
		}
	}
}

func (q *Queue) fail(err error) {
	select {
	case q.errs <- err:
	default:
	}
}

// Send writes frame as a length-prefixed record.
func (q *Queue) Send(frame []byte) error {
	var lenBuf [frameLenBytes]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := q.port.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("serial: write length prefix: %w", err)
	}
	if _, err := q.port.Write(frame); err != nil {
		return fmt.Errorf("serial: write frame: %w", err)
	}
	return nil
}

// Recv returns the oldest queued frame without blocking, surfacing a
// background read error (e.g. device unplugged) if one occurred.
func (q *Queue) Recv() ([]byte, bool, error) {
	select {
	case f := <-q.recv:
		return f, true, nil
	case err := <-q.errs:
		return nil, false, err
	default:
		return nil, false, nil
	}
}

func (q *Queue) Close() error {
	close(q.done)
	return q.port.Close()
}

var _ transport.Queue = (*Queue)(nil)
