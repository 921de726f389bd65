package tdc

import (
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/mqueue"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/internal/wrlink"
)

// SamplesPerIteration bounds how many timestamp-FIFO samples
// do_input drains in one pass, equal to the packet coalesce limit
// (spec.md §4.4).
const SamplesPerIteration = trigger.CoalesceLimit

// fineTimeMask and fineTimeScale implement the ACAM-bin to frac
// conversion (spec.md §4.4: "frac = (meta & 0x3ffff) * 5308 >> 7").
const (
	fineTimeMask  = 0x3ffff
	fineTimeScale = 5308
	fineTimeShift = 7
	channelShift  = 19
	channelMask   = 0x7
)

// Sample is one raw timestamp-FIFO entry (spec.md §4.4): a TAI second/
// tick count plus a 22-bit meta word carrying the channel index and
// the ACAM fine-time field.
type Sample struct {
	Seconds uint64
	Ticks   int32
	Meta    uint32
}

// decode converts a raw Sample into a normalized Timestamp and channel
// index.
func decode(s Sample) (ts tai.Timestamp, channel int) {
	frac := int32((uint32(s.Meta&fineTimeMask) * fineTimeScale) >> fineTimeShift)
	ts = tai.Timestamp{Seconds: s.Seconds, Ticks: s.Ticks, Frac: 0}
	ts = tai.Add(ts, tai.Timestamp{Ticks: frac / tai.FracPerTick, Frac: frac % tai.FracPerTick})
	channel = int((s.Meta >> channelShift) & channelMask)
	return ts, channel
}

// TimestampSource models the hardware timestamp FIFO do_input drains.
type TimestampSource interface {
	// Next returns the next pending sample, or ok=false if none is
	// ready.
	Next() (Sample, bool)
}

// Transmitter models the RMQ-out + loopback fan-out a coalesced
// packet of entries is pushed through.
type Transmitter interface {
	Loopback() *mqueue.Loopback
	Slot() *mqueue.Slot
}

// Personality is the INPUT (TDC) runtime: its 5 channels, the WR link
// gate, the logging stream, and the transport it drains/feeds.
type Personality struct {
	Channels [NumChannels]Channel
	Link     *wrlink.Link
	Logger   *logstream.Logger
	Clock    func() tai.Timestamp

	Source TimestampSource
	Tx     Transmitter
}

// NewPersonality returns a Personality with NumChannels zeroed
// channels and a fresh logger.
func NewPersonality(link *wrlink.Link, clock func() tai.Timestamp) *Personality {
	return &Personality{
		Link:   link,
		Logger: logstream.NewLogger(NumChannels),
		Clock:  clock,
	}
}

// DoInput implements do_input (spec.md §4.4): drain up to
// SamplesPerIteration samples, tag each against its channel, and
// coalesce the results into one RMQ-out packet plus loopback pushes.
func (p *Personality) DoInput() trigger.Packet {
	var pkt trigger.Packet
	timingOK := p.Link.IsTimingOK()

	for i := 0; i < SamplesPerIteration; i++ {
		s, ok := p.Source.Next()
		if !ok {
			break
		}
		ts, chIdx := decode(s)
		if chIdx < 0 || chIdx >= NumChannels {
			continue
		}
		entry, accepted := p.tagSample(chIdx, ts, timingOK)
		if !accepted {
			continue
		}
		pkt.Append(entry)
		if p.Tx != nil {
			if lb := p.Tx.Loopback(); lb != nil {
				lb.Push(entry)
			}
		}
	}

	if pkt.Count > 0 {
		now := p.Clock()
		pkt.TransmitSeconds = uint32(now.Seconds)
		pkt.TransmitCycles = uint32(now.Ticks)
		if p.Tx != nil {
			if slot := p.Tx.Slot(); slot != nil {
				words := bytesToWords(pkt.EncodeWire())
				buf := slot.Claim()
				n := copy(buf, words)
				slot.Ready(uint32(n))
			}
		}
	}
	return pkt
}

// tagSample implements steps 1-9 of spec.md §4.4's per-sample
// processing. The channel's own LogLevel is mirrored into the shared
// Logger's per-channel mask on every call so the two stay in sync
// without a separate "set log level" sync point.
func (p *Personality) tagSample(chIdx int, ts tai.Timestamp, timingOK bool) (trigger.Entry, bool) {
	c := &p.Channels[chIdx]
	p.Logger.ChannelLevel[chIdx] = c.LogLevel

	ts = tai.Sub(ts, c.TimebaseOffset)
	c.LastTagged = ts
	p.Logger.Log(logstream.Entry{Type: logstream.Raw, Channel: chIdx, TS: ts, ID: c.ID})
	c.TotalPulses++

	adjusted := tai.Add(ts, c.Delay)

	if !FlagTriggerAssigned.in(c.Flags) || !FlagArmed.in(c.Flags) {
		return trigger.Entry{}, false
	}
	if !timingOK {
		setFlag(&c.Flags, FlagNoWR)
		c.MissNoTiming++
		p.Logger.Log(logstream.Entry{Type: logstream.Missed, Channel: chIdx, MissReason: logstream.MissReasonNoTiming, ID: c.ID, TS: adjusted})
		return trigger.Entry{}, false
	}
	clearFlag(&c.Flags, FlagNoWR)

	entry := trigger.Entry{TS: adjusted, ID: c.ID, Seq: c.Seq}
	c.Seq++

	if c.Mode == ModeSingle {
		clearFlag(&c.Flags, FlagArmed)
	}
	setFlag(&c.Flags, FlagTriggered)
	setFlag(&c.Flags, FlagLastValid)

	c.LastSent = entry
	c.SentPulses++
	p.Logger.Log(logstream.Entry{Type: logstream.Sent, Channel: chIdx, Seq: entry.Seq, ID: entry.ID, TS: entry.TS})
	return entry, true
}

// SoftwareTrigger implements the SOFTWARE_TRIGGER host command
// (spec.md §4.4): synthesize a trigger entry at (now + delay) and
// emit it directly, bypassing the timestamp FIFO.
func (p *Personality) SoftwareTrigger(chIdx int, delay tai.Timestamp) (trigger.Entry, error) {
	if chIdx < 0 || chIdx >= NumChannels {
		return trigger.Entry{}, ErrInvalidChannel
	}
	c := &p.Channels[chIdx]
	ts := tai.Add(p.Clock(), delay)
	entry := trigger.Entry{TS: ts, ID: c.ID, Seq: c.Seq}
	c.Seq++
	if p.Tx != nil {
		if lb := p.Tx.Loopback(); lb != nil {
			lb.Push(entry)
		}
	}
	return entry, nil
}

// bytesToWords packs a little-endian byte buffer into 32-bit words,
// the unit mqueue.Slot messages are expressed in (spec.md §4.2,
// "payload units are 32-bit words"). buf's length is assumed to
// already be a multiple of 4, true for every EncodeWire result.
func bytesToWords(buf []byte) []uint32 {
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = uint32(buf[4*i]) | uint32(buf[4*i+1])<<8 | uint32(buf[4*i+2])<<16 | uint32(buf[4*i+3])<<24
	}
	return words
}
