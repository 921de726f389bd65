package fd

import (
	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/mqueue"
	"wrtd.dev/internal/pulse"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/internal/wrlink"
)

// Ingress models the RMQ-in slot and loopback queue do_rx drains each
// iteration (spec.md §4.6.4).
type Ingress struct {
	Slot     *mqueue.Slot
	Loopback *mqueue.Loopback
}

// Personality is the OUTPUT (FD) runtime: its 4 channels, shared
// routing table, WR link gate, and logging stream.
type Personality struct {
	Channels [NumChannels]Channel
	Table    *routing.Table
	Link     *wrlink.Link
	Logger   *logstream.Logger
	Clock    func() tai.Timestamp

	In         Ingress
	Generators [NumChannels]pulse.Generator

	LastReceived trigger.Entry
	version      hostproto.Version
}

// NewPersonality returns a Personality over an existing routing table.
func NewPersonality(table *routing.Table, link *wrlink.Link, clock func() tai.Timestamp) *Personality {
	p := &Personality{
		Table:  table,
		Link:   link,
		Logger: logstream.NewLogger(NumChannels),
		Clock:  clock,
	}
	for i := range p.Channels {
		p.Channels[i] = *NewChannel()
	}
	return p
}

// SetVersion records the identification record FD_VERSION answers
// (spec.md §3.1 SUPPLEMENT).
func (p *Personality) SetVersion(v hostproto.Version) { p.version = v }

// DoRx implements do_rx (spec.md §4.6.4): drain one RMQ-in packet (if
// any) and at most one loopback entry, and filter every resulting
// TriggerEntry against the routing table.
func (p *Personality) DoRx() {
	if p.In.Slot != nil {
		if buf := p.In.Slot.Peek(); buf != nil {
			if pkt, err := decodeWords(buf); err == nil {
				for i := 0; i < pkt.Count; i++ {
					p.filterTrigger(pkt.Triggers[i])
				}
			}
			p.In.Slot.Discard()
		}
	}
	if p.In.Loopback != nil {
		if e, ok := p.In.Loopback.Pop(); ok {
			p.filterTrigger(e)
		}
	}
}

// filterTrigger implements spec.md §4.6.4's per-entry dispatch: look
// up id in the routing table and enqueue on every output whose rule
// is non-Empty.
func (p *Personality) filterTrigger(e trigger.Entry) {
	p.LastReceived = e
	if p.Logger.Promiscuous() {
		p.Logger.Log(logstream.Entry{Type: logstream.Promisc, ID: e.ID, Seq: e.Seq, TS: e.TS})
	}

	tableIdx, entry, ok := p.Table.Lookup(e.ID)
	if !ok {
		return
	}
	timingOK := p.Link.IsTimingOK()
	for j := range entry.Ocfg {
		if entry.Ocfg[j].State == routing.Empty {
			continue
		}
		reason := p.Channels[j].Enqueue(&entry.Ocfg[j], tableIdx, j, e.ID, e.TS, e.Seq, timingOK)
		p.logEnqueueResult(j, e, reason)
	}
}

func (p *Personality) logEnqueueResult(ch int, e trigger.Entry, reason pulse.MissReason) {
	lvl := p.Channels[ch].LogLevel
	p.Logger.ChannelLevel[ch] = lvl
	if reason == pulse.MissNone {
		p.Logger.Log(logstream.Entry{Type: logstream.Filtered, Channel: ch, ID: e.ID, Seq: e.Seq, TS: e.TS})
		return
	}
	p.Logger.Log(logstream.Entry{
		Type:       logstream.Missed,
		Channel:    ch,
		MissReason: missReasonOf(reason),
		ID:         e.ID,
		Seq:        e.Seq,
		TS:         e.TS,
	})
}

func missReasonOf(r pulse.MissReason) logstream.MissReason {
	switch r {
	case pulse.MissDeadTime:
		return logstream.MissReasonDeadTime
	case pulse.MissNoTiming, pulse.MissNoWR:
		return logstream.MissReasonNoTiming
	case pulse.MissOverflow:
		return logstream.MissReasonOverflow
	case pulse.MissTimeout:
		return logstream.MissReasonTimeout
	default:
		return logstream.MissReasonNone
	}
}

// DoOutput runs the do_output scheduler (spec.md §4.6.3) once for
// every channel, logging EXECUTED on a real fire and MISSED otherwise
// (spec.md §4.6.3, §4.7).
func (p *Personality) DoOutput() {
	now := p.Clock()
	timingOK := p.Link.IsTimingOK()
	for i := range p.Channels {
		gen := p.Generators[i]
		if gen == nil {
			continue
		}
		reason, executed := p.Channels[i].Step(p.Table, gen, now, timingOK)
		p.Logger.ChannelLevel[i] = p.Channels[i].LogLevel
		if executed {
			e := p.Channels[i].LastExecuted
			p.Logger.Log(logstream.Entry{Type: logstream.Executed, Channel: i, ID: e.ID, Seq: e.Seq, TS: e.TS})
			continue
		}
		if reason == pulse.MissNone {
			continue
		}
		p.Logger.Log(logstream.Entry{Type: logstream.Missed, Channel: i, MissReason: missReasonOf(reason), TS: now})
	}
}

// decodeWords reconstructs the byte-oriented wire packet from a
// mqueue.Slot message, the inverse of tdc.bytesToWords.
func decodeWords(words []uint32) (*trigger.Packet, error) {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		buf[4*i] = byte(w)
		buf[4*i+1] = byte(w >> 8)
		buf[4*i+2] = byte(w >> 16)
		buf[4*i+3] = byte(w >> 24)
	}
	return trigger.DecodeWire(buf)
}
