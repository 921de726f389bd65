package hostlib

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"wrtd.dev/internal/hostproto"
	"wrtd.dev/transport"
)

// pollInterval is how often the background reader retries a
// transport.Queue whose Recv reported nothing pending. Every
// transport.Queue implementation is non-blocking by contract (spec.md
// §4.1), so a host-side consumer that wants to block on a reply has to
// poll it from a dedicated goroutine instead.
const pollInterval = 200 * time.Microsecond

// Device is one open control-channel connection to a card: a
// transport.Queue plus the sequence-number bookkeeping a synchronous
// call needs to match its reply (spec.md §4.2). A background goroutine
// drains Recv and hands frames to the waiter or to Unsolicited.
type Device struct {
	q       transport.Queue
	rtAppID uint16
	waiter  *hostproto.SyncWaiter
	seq     uint32

	// Unsolicited, if set, receives any decoded frame whose sequence
	// number matches no pending SyncCall — asynchronous log or status
	// push frames rather than replies (spec.md §4.7's log stream is one
	// example source).
	Unsolicited func(hostproto.Header, []uint32)

	closeOnce sync.Once
	done      chan struct{}
}

// Open starts consuming q's incoming frames in the background. rtAppID
// is the application identifier this Device stamps on every request it
// sends (spec.md §4.2 Header.RTAppID).
func Open(q transport.Queue, rtAppID uint16) *Device {
	d := &Device{
		q:       q,
		rtAppID: rtAppID,
		waiter:  hostproto.NewSyncWaiter(),
		done:    make(chan struct{}),
	}
	go d.readLoop()
	return d
}

func (d *Device) readLoop() {
	for {
		select {
		case <-d.done:
			return
		default:
		}
		frame, ok, err := d.q.Recv()
		if err != nil {
			return
		}
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		h, payload, err := hostproto.Decode(frame)
		if err != nil {
			continue
		}
		if d.waiter.Deliver(hostproto.Frame{Header: h, Payload: payload}) {
			continue
		}
		if d.Unsolicited != nil {
			d.Unsolicited(h, payload)
		}
	}
}

// Close stops the background reader and closes the underlying
// transport.
func (d *Device) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	return d.q.Close()
}

func (d *Device) nextSeq() uint32 {
	return atomic.AddUint32(&d.seq, 1)
}

// SyncCall sends a synchronous request frame and blocks for its reply
// or timeout (spec.md §4.2). A reply whose MsgID is SendNack is turned
// into a *hostproto.NackError.
func (d *Device) SyncCall(msgID uint8, slotIO uint8, payload []uint32, timeout time.Duration) ([]uint32, error) {
	seq := d.nextSeq()
	ch := d.waiter.Register(seq)
	h := hostproto.Header{
		RTAppID: d.rtAppID,
		MsgID:   msgID,
		SlotIO:  slotIO,
		Seq:     seq,
		Len:     uint8(len(payload)),
		Flags:   hostproto.FlagSync,
	}
	if err := d.q.Send(hostproto.Encode(h, payload)); err != nil {
		return nil, wrap("send", err)
	}
	f, err := d.waiter.Wait(seq, ch, timeout)
	if err != nil {
		return nil, err
	}
	if f.Header.MsgID == hostproto.SendNack {
		kind := hostproto.ErrorKind(0)
		if len(f.Payload) > 0 {
			kind = hostproto.ErrorKind(f.Payload[0])
		}
		return nil, &hostproto.NackError{Kind: kind}
	}
	return f.Payload, nil
}

// Ping issues the standard RECV_PING request on slotIO.
func (d *Device) Ping(slotIO uint8) error {
	_, err := d.SyncCall(hostproto.RecvPing, slotIO, nil, hostproto.DefaultSyncTimeout)
	return wrap("ping", err)
}

// Version requests the firmware's identification record (spec.md §3.1
// SUPPLEMENT).
func (d *Device) Version(slotIO uint8) (hostproto.Version, error) {
	reply, err := d.SyncCall(hostproto.RecvVersion, slotIO, nil, hostproto.DefaultSyncTimeout)
	if err != nil {
		return hostproto.Version{}, wrap("version", err)
	}
	if len(reply) < 4 {
		return hostproto.Version{}, fmt.Errorf("hostlib: version: short reply (%d words)", len(reply))
	}
	return hostproto.Version{FPGAID: reply[0], RTID: reply[1], RTVersion: reply[2], GitSHA: reply[3]}, nil
}

// FieldGet reads one scalar field by index through the standard
// FIELD_GET/FIELD_SET machinery (spec.md §4.2, hostproto.FieldTable).
func (d *Device) FieldGet(slotIO uint8, idx uint32) (uint32, error) {
	reply, err := d.SyncCall(hostproto.RecvFieldGet, slotIO, []uint32{idx}, hostproto.DefaultSyncTimeout)
	if err != nil {
		return 0, wrap("field_get", err)
	}
	if len(reply) < 1 {
		return 0, fmt.Errorf("hostlib: field_get: short reply")
	}
	return reply[0], nil
}

// FieldSet writes one scalar field by index.
func (d *Device) FieldSet(slotIO uint8, idx, value uint32) error {
	_, err := d.SyncCall(hostproto.RecvFieldSet, slotIO, []uint32{idx, value}, hostproto.DefaultSyncTimeout)
	return wrap("field_set", err)
}

// StructGet reads a structured blob by index, decoded from its
// length-prefixed wire words into bytes.
func (d *Device) StructGet(slotIO uint8, idx uint32) ([]byte, error) {
	reply, err := d.SyncCall(hostproto.RecvStructGet, slotIO, []uint32{idx}, hostproto.DefaultSyncTimeout)
	if err != nil {
		return nil, wrap("struct_get", err)
	}
	return wordsToBytes(reply), nil
}

// StructSet writes a structured blob by index.
func (d *Device) StructSet(slotIO uint8, idx uint32, blob []byte) error {
	payload := append([]uint32{idx}, bytesToWords(blob)...)
	_, err := d.SyncCall(hostproto.RecvStructSet, slotIO, payload, hostproto.DefaultSyncTimeout)
	return wrap("struct_set", err)
}

func bytesToWords(b []byte) []uint32 {
	n := (len(b) + 3) / 4
	words := make([]uint32, n)
	for i, c := range b {
		words[i/4] |= uint32(c) << (8 * uint(i%4))
	}
	return words
}

func wordsToBytes(words []uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		b[4*i+0] = byte(w)
		b[4*i+1] = byte(w >> 8)
		b[4*i+2] = byte(w >> 16)
		b[4*i+3] = byte(w >> 24)
	}
	return b
}
