package hostlib

import (
	"wrtd.dev/fd"
	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/logstream"
	"wrtd.dev/internal/pulse"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
)

// FDClient is a typed wrapper over Device for one FD personality's
// control slot pair, issuing the commands fd/msgids.go dispatches.
type FDClient struct {
	Dev    *Device
	SlotIO uint8
}

func (c *FDClient) call(msgID uint8, payload []uint32) ([]uint32, error) {
	return c.Dev.SyncCall(msgID, c.SlotIO, payload, hostproto.DefaultSyncTimeout)
}

// TrigAssign assigns output's rule for id.
func (c *FDClient) TrigAssign(output int, id trigger.ID, rule routing.OutputRule) error {
	payload := append([]uint32{uint32(output)}, encodeTriggerID(id)...)
	payload = append(payload, uint32(rule.DelayCycles), uint32(rule.DelayFrac))
	_, err := c.call(fd.MsgTrigAssign, payload)
	return wrap("fd.trig_assign", err)
}

// TrigAssignConditional pairs conditionID/conditionalID on output.
func (c *FDClient) TrigAssignConditional(output int, conditionID, conditionalID trigger.ID, rule routing.OutputRule) error {
	payload := []uint32{uint32(output)}
	payload = append(payload, encodeTriggerID(conditionID)...)
	payload = append(payload, encodeTriggerID(conditionalID)...)
	payload = append(payload, uint32(rule.DelayCycles), uint32(rule.DelayFrac))
	_, err := c.call(fd.MsgTrigAssignConditional, payload)
	return wrap("fd.trig_assign_conditional", err)
}

// TrigRemove clears output's rule for id.
func (c *FDClient) TrigRemove(output int, id trigger.ID) error {
	payload := append([]uint32{uint32(output)}, encodeTriggerID(id)...)
	_, err := c.call(fd.MsgTrigRemove, payload)
	return wrap("fd.trig_remove", err)
}

// TrigEnable enables or disables output's rule for id without losing
// its latency/hit/miss counters.
func (c *FDClient) TrigEnable(output int, id trigger.ID, enable bool) error {
	payload := append([]uint32{uint32(output)}, encodeTriggerID(id)...)
	payload = append(payload, boolWord(enable))
	_, err := c.call(fd.MsgTrigEnable, payload)
	return wrap("fd.trig_enable", err)
}

// TrigSetDelay updates output's rule delay for id.
func (c *FDClient) TrigSetDelay(output int, id trigger.ID, cycles, frac int32) error {
	payload := append([]uint32{uint32(output)}, encodeTriggerID(id)...)
	payload = append(payload, uint32(cycles), uint32(frac))
	_, err := c.call(fd.MsgTrigSetDelay, payload)
	return wrap("fd.trig_set_delay", err)
}

// TrigGetState reads output's rule for id.
func (c *FDClient) TrigGetState(output int, id trigger.ID) (routing.OutputRule, error) {
	payload := append([]uint32{uint32(output)}, encodeTriggerID(id)...)
	reply, err := c.call(fd.MsgTrigGetState, payload)
	if err != nil {
		return routing.OutputRule{}, wrap("fd.trig_get_state", err)
	}
	if len(reply) < 5 {
		return routing.OutputRule{}, wrap("fd.trig_get_state", errShortReply(len(reply)))
	}
	return routing.OutputRule{
		State:       routing.State(reply[0]),
		DelayCycles: int32(reply[1]),
		DelayFrac:   int32(reply[2]),
		Hits:        uint64(reply[3]),
		Misses:      uint64(reply[4]),
	}, nil
}

// ChanEnable enables or disables output channel idx as a whole.
func (c *FDClient) ChanEnable(idx int, enable bool) error {
	_, err := c.call(fd.MsgChanEnable, []uint32{uint32(idx), boolWord(enable)})
	return wrap("fd.chan_enable", err)
}

// ChanSetMode sets output channel idx's arming mode.
func (c *FDClient) ChanSetMode(idx int, mode pulse.Mode) error {
	_, err := c.call(fd.MsgChanSetMode, []uint32{uint32(idx), uint32(mode)})
	return wrap("fd.chan_set_mode", err)
}

// ChanArm arms output channel idx.
func (c *FDClient) ChanArm(idx int) error {
	_, err := c.call(fd.MsgChanArm, []uint32{uint32(idx)})
	return wrap("fd.chan_arm", err)
}

// ChanResetCounters clears output channel idx's stats.
func (c *FDClient) ChanResetCounters(idx int) error {
	_, err := c.call(fd.MsgChanResetCounters, []uint32{uint32(idx)})
	return wrap("fd.chan_reset_counters", err)
}

// ChanSetLogLevel sets output channel idx's log level mask.
func (c *FDClient) ChanSetLogLevel(idx int, level logstream.Levels) error {
	_, err := c.call(fd.MsgChanSetLogLevel, []uint32{uint32(idx), uint32(level)})
	return wrap("fd.chan_set_log_level", err)
}

// ChanSetWidth sets output channel idx's pulse width in ticks.
func (c *FDClient) ChanSetWidth(idx int, ticks int32) error {
	_, err := c.call(fd.MsgChanSetWidth, []uint32{uint32(idx), uint32(ticks)})
	return wrap("fd.chan_set_width", err)
}

// ChanDeadTime sets output channel idx's dead time in ticks.
func (c *FDClient) ChanDeadTime(idx int, ticks int32) error {
	_, err := c.call(fd.MsgChanDeadTime, []uint32{uint32(idx), uint32(ticks)})
	return wrap("fd.chan_dead_time", err)
}

// ChanGetState reads output channel idx's scheduler state and stats.
func (c *FDClient) ChanGetState(idx int) (fdChanState, error) {
	reply, err := c.call(fd.MsgChanGetState, []uint32{uint32(idx)})
	if err != nil {
		return fdChanState{}, wrap("fd.chan_get_state", err)
	}
	if len(reply) < 5 {
		return fdChanState{}, wrap("fd.chan_get_state", errShortReply(len(reply)))
	}
	return fdChanState{
		State:   pulse.State(reply[0]),
		Enabled: reply[1] != 0,
		Mode:    pulse.Mode(reply[2]),
		QueueLen: int(reply[3]),
		Hits:    reply[4],
	}, nil
}

// fdChanState mirrors fd.ChanState's wire-visible fields.
type fdChanState struct {
	State    pulse.State
	Enabled  bool
	Mode     pulse.Mode
	QueueLen int
	Hits     uint32
}

// ReadHash streams every valid routing-table entry's trigger identity,
// in sorted order (spec.md §4.6.5).
func (c *FDClient) ReadHash() ([]trigger.ID, error) {
	reply, err := c.call(fd.MsgReadHash, nil)
	if err != nil {
		return nil, wrap("fd.read_hash", err)
	}
	n := len(reply) / 3
	ids := make([]trigger.ID, n)
	for i := 0; i < n; i++ {
		ids[i] = decodeTriggerID(reply[3*i : 3*i+3])
	}
	return ids, nil
}

// BaseTime reads the card's current notion of TAI time.
func (c *FDClient) BaseTime() (tai.Timestamp, error) {
	reply, err := c.call(fd.MsgBaseTime, nil)
	if err != nil {
		return tai.Timestamp{}, wrap("fd.base_time", err)
	}
	if len(reply) < 4 {
		return tai.Timestamp{}, wrap("fd.base_time", errShortReply(len(reply)))
	}
	return tai.Timestamp{
		Seconds: uint64(reply[0])<<32 | uint64(reply[1]),
		Ticks:   int32(reply[2]),
		Frac:    int32(reply[3]),
	}, nil
}

// Ping issues the personality-local keepalive.
func (c *FDClient) Ping() error {
	_, err := c.call(fd.MsgPing, nil)
	return wrap("fd.ping", err)
}

// Version requests the firmware identification record.
func (c *FDClient) Version() (hostproto.Version, error) {
	reply, err := c.call(fd.MsgVersion, nil)
	if err != nil {
		return hostproto.Version{}, wrap("fd.version", err)
	}
	if len(reply) < 4 {
		return hostproto.Version{}, wrap("fd.version", errShortReply(len(reply)))
	}
	return hostproto.Version{FPGAID: reply[0], RTID: reply[1], RTVersion: reply[2], GitSHA: reply[3]}, nil
}

func encodeTriggerID(id trigger.ID) []uint32 {
	return []uint32{id.System, id.SourcePort, id.Trigger}
}

func decodeTriggerID(w []uint32) trigger.ID {
	return trigger.ID{System: w[0], SourcePort: w[1], Trigger: w[2]}
}
