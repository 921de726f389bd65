package fd

import (
	"fmt"

	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/pulse"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/trigger"
)

// Command message IDs, numbered 0x01-0x13 from the start of the
// per-personality REQ range
// (spec.md §6: "FD_TRIG_ASSIGN ... FD_VERSION"). Wire payload layout
// per command is decided and recorded here (see DESIGN.md), the same
// way tdc/msgids.go decides the INPUT side's layout: little-endian
// words in field order, a trigger.ID as 3 words (system, source_port,
// trigger), a routing.OutputRule's delay as 2 words (cycles, frac).
const (
	MsgTrigAssign uint8 = 0x01 + iota
	MsgTrigAssignConditional
	MsgTrigRemove
	MsgTrigEnable
	MsgTrigSetDelay
	MsgTrigGetByID
	MsgTrigGetState
	MsgChanResetCounters
	MsgChanEnable
	MsgChanSetMode
	MsgChanArm
	MsgChanGetState
	MsgChanSetLogLevel
	MsgChanSetWidth
	MsgChanDeadTime
	MsgReadHash
	MsgBaseTime
	MsgPing
	MsgVersion
)

func decodeID(w []uint32) trigger.ID {
	return trigger.ID{System: w[0], SourcePort: w[1], Trigger: w[2]}
}

func encodeID(id trigger.ID) []uint32 {
	return []uint32{id.System, id.SourcePort, id.Trigger}
}

// HandleCommand decodes and dispatches one host command frame,
// satisfying node.Dispatcher.
func (p *Personality) HandleCommand(msgID uint8, payload []uint32) ([]uint32, error) {
	badFrame := func() error { return &hostproto.NackError{Kind: hostproto.KindInvalidMessage} }
	switch msgID {
	case MsgTrigAssign:
		if len(payload) < 6 {
			return nil, badFrame()
		}
		output := int(payload[0])
		id := decodeID(payload[1:4])
		rule := routing.OutputRule{DelayCycles: int32(payload[4]), DelayFrac: int32(payload[5])}
		return nil, p.TrigAssign(output, id, rule)
	case MsgTrigAssignConditional:
		if len(payload) < 9 {
			return nil, badFrame()
		}
		output := int(payload[0])
		condID := decodeID(payload[1:4])
		conditionalID := decodeID(payload[4:7])
		rule := routing.OutputRule{DelayCycles: int32(payload[7]), DelayFrac: int32(payload[8])}
		return nil, p.TrigAssignConditional(output, condID, conditionalID, rule)
	case MsgTrigRemove:
		if len(payload) < 4 {
			return nil, badFrame()
		}
		return nil, p.TrigRemove(int(payload[0]), decodeID(payload[1:4]))
	case MsgTrigEnable:
		if len(payload) < 5 {
			return nil, badFrame()
		}
		return nil, p.TrigEnable(int(payload[0]), decodeID(payload[1:4]), payload[4] != 0)
	case MsgTrigSetDelay:
		if len(payload) < 6 {
			return nil, badFrame()
		}
		return nil, p.TrigSetDelay(int(payload[0]), decodeID(payload[1:4]), int32(payload[4]), int32(payload[5]))
	case MsgTrigGetByID:
		if len(payload) < 3 {
			return nil, badFrame()
		}
		entry, err := p.TrigGetByID(decodeID(payload[0:3]))
		if err != nil {
			return nil, err
		}
		return encodeID(entry.ID), nil
	case MsgTrigGetState:
		if len(payload) < 4 {
			return nil, badFrame()
		}
		st, err := p.TrigGetState(int(payload[0]), decodeID(payload[1:4]))
		if err != nil {
			return nil, err
		}
		return []uint32{uint32(st.State), uint32(st.DelayCycles), uint32(st.DelayFrac), uint32(st.Hits), uint32(st.Misses)}, nil
	case MsgChanResetCounters:
		if len(payload) < 1 {
			return nil, badFrame()
		}
		return nil, p.ChanResetCounters(int(payload[0]))
	case MsgChanEnable:
		if len(payload) < 2 {
			return nil, badFrame()
		}
		return nil, p.ChanEnable(int(payload[0]), payload[1] != 0)
	case MsgChanSetMode:
		if len(payload) < 2 {
			return nil, badFrame()
		}
		return nil, p.ChanSetMode(int(payload[0]), pulse.Mode(payload[1]))
	case MsgChanArm:
		if len(payload) < 1 {
			return nil, badFrame()
		}
		return nil, p.ChanArm(int(payload[0]))
	case MsgChanGetState:
		if len(payload) < 1 {
			return nil, badFrame()
		}
		st, err := p.ChanGetState(int(payload[0]))
		if err != nil {
			return nil, err
		}
		enabled := uint32(0)
		if st.Enabled {
			enabled = 1
		}
		return []uint32{uint32(st.State), enabled, uint32(st.Mode), uint32(st.QueueLen), uint32(st.Stats.Hits)}, nil
	case MsgChanSetLogLevel:
		if len(payload) < 2 {
			return nil, badFrame()
		}
		return nil, p.ChanSetLogLevel(int(payload[0]), logstream.Levels(payload[1]))
	case MsgChanSetWidth:
		if len(payload) < 2 {
			return nil, badFrame()
		}
		return nil, p.ChanSetWidth(int(payload[0]), int32(payload[1]))
	case MsgChanDeadTime:
		if len(payload) < 2 {
			return nil, badFrame()
		}
		return nil, p.ChanDeadTime(int(payload[0]), int32(payload[1]))
	case MsgReadHash:
		var out []uint32
		p.ReadHash(func(e routing.Entry) { out = append(out, encodeID(e.ID)...) })
		return out, nil
	case MsgBaseTime:
		ts := p.BaseTime()
		return []uint32{uint32(ts.Seconds >> 32), uint32(ts.Seconds), uint32(ts.Ticks), uint32(ts.Frac)}, nil
	case MsgPing:
		return nil, p.Ping()
	case MsgVersion:
		v := p.Version()
		return []uint32{v.FPGAID, v.RTID, v.RTVersion, v.GitSHA}, nil
	default:
		return nil, fmt.Errorf("fd: %w: unknown msg id 0x%02x", badFrame(), msgID)
	}
}
