package tdc

import (
	"fmt"

	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

func logLevelOf(v uint32) logstream.Levels { return logstream.Levels(v) }

// Command message IDs in the per-personality REQ range 0x01-0x0F
// (spec.md §6, "TDC_CHAN_ENABLE, SET_DEAD_TIME, SET_DELAY,
// SET_TIMEBASE_OFFSET, GET_STATE, SOFTWARE_TRIGGER, ASSIGN_TRIGGER,
// SET_MODE, ARM, SET_SEQ, SET_LOG_LEVEL, RESET_COUNTERS, PING"). The
// exact wire payload layout per command is not specified beyond the
// message name, so it is decided and recorded here (see DESIGN.md):
// every multi-word argument is little-endian words in field order.
const (
	MsgChanEnable uint8 = 0x01 + iota
	MsgSetDeadTime
	MsgSetDelay
	MsgSetTimebaseOffset
	MsgGetState
	MsgSoftwareTrigger
	MsgAssignTrigger
	MsgSetMode
	MsgArm
	MsgSetSeq
	MsgSetLogLevel
	MsgResetCounters
	MsgPing
)

func decodeID(w []uint32) trigger.ID {
	return trigger.ID{System: w[0], SourcePort: w[1], Trigger: w[2]}
}

func decodeTimestamp(w []uint32) tai.Timestamp {
	return tai.Timestamp{
		Seconds: uint64(w[0])<<32 | uint64(w[1]),
		Ticks:   int32(w[2]),
		Frac:    int32(w[3]),
	}
}

func encodeTimestamp(ts tai.Timestamp) []uint32 {
	return []uint32{uint32(ts.Seconds >> 32), uint32(ts.Seconds), uint32(ts.Ticks), uint32(ts.Frac)}
}

// HandleCommand decodes and dispatches one host command frame,
// satisfying node.Dispatcher.
func (p *Personality) HandleCommand(msgID uint8, payload []uint32) ([]uint32, error) {
	if len(payload) < 1 {
		return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
	}
	idx := int(payload[0])
	args := payload[1:]
	switch msgID {
	case MsgChanEnable:
		if len(args) < 1 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.ChanEnable(idx, args[0] != 0)
	case MsgSetDeadTime:
		if len(args) < 1 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.SetDeadTime(idx, int64(int32(args[0])))
	case MsgSetDelay:
		if len(args) < 1 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.SetDelay(idx, tai.Timestamp{Ticks: int32(args[0])})
	case MsgSetTimebaseOffset:
		if len(args) < 4 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.SetTimebaseOffset(idx, decodeTimestamp(args))
	case MsgGetState:
		st, err := p.GetState(idx)
		if err != nil {
			return nil, err
		}
		return []uint32{uint32(st.Flags), uint32(st.Mode), st.Seq, uint32(st.TotalPulses >> 32), uint32(st.TotalPulses), uint32(st.SentPulses >> 32), uint32(st.SentPulses), uint32(st.MissNoTiming >> 32), uint32(st.MissNoTiming)}, nil
	case MsgSoftwareTrigger:
		if len(args) < 4 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		entry, err := p.SoftwareTrigger(idx, decodeTimestamp(args))
		if err != nil {
			return nil, err
		}
		return append(encodeTimestamp(entry.TS), entry.Seq), nil
	case MsgAssignTrigger:
		if len(args) < 3 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.AssignTrigger(idx, decodeID(args))
	case MsgSetMode:
		if len(args) < 1 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.SetMode(idx, Mode(args[0]))
	case MsgArm:
		return nil, p.Arm(idx)
	case MsgSetSeq:
		if len(args) < 1 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.SetSeq(idx, args[0])
	case MsgSetLogLevel:
		if len(args) < 1 {
			return nil, &hostproto.NackError{Kind: hostproto.KindInvalidMessage}
		}
		return nil, p.SetLogLevel(idx, logLevelOf(args[0]))
	case MsgResetCounters:
		return nil, p.ResetCounters(idx)
	case MsgPing:
		return nil, p.Ping()
	default:
		return nil, fmt.Errorf("tdc: %w: unknown msg id 0x%02x", &hostproto.NackError{Kind: hostproto.KindInvalidMessage}, msgID)
	}
}
