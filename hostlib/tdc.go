package hostlib

import (
	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/tdc"
)

// TDCClient is a typed wrapper over Device for one TDC personality's
// control slot pair, issuing the commands tdc/msgids.go dispatches.
type TDCClient struct {
	Dev    *Device
	SlotIO uint8
}

func (c *TDCClient) call(msgID uint8, payload []uint32) ([]uint32, error) {
	return c.Dev.SyncCall(msgID, c.SlotIO, payload, hostproto.DefaultSyncTimeout)
}

// ChanEnable enables or disables channel idx.
func (c *TDCClient) ChanEnable(idx int, enable bool) error {
	_, err := c.call(tdc.MsgChanEnable, []uint32{uint32(idx), boolWord(enable)})
	return wrap("tdc.chan_enable", err)
}

// SetDeadTime sets channel idx's dead time in ticks. The TDC input
// path stores the value but does not gate triggers on it.
func (c *TDCClient) SetDeadTime(idx int, ticks int64) error {
	_, err := c.call(tdc.MsgSetDeadTime, []uint32{uint32(idx), uint32(int32(ticks))})
	return wrap("tdc.set_dead_time", err)
}

// SetDelay sets channel idx's fixed tag delay.
func (c *TDCClient) SetDelay(idx int, ticks int32) error {
	_, err := c.call(tdc.MsgSetDelay, []uint32{uint32(idx), uint32(ticks)})
	return wrap("tdc.set_delay", err)
}

// SetTimebaseOffset sets channel idx's timebase correction.
func (c *TDCClient) SetTimebaseOffset(idx int, offset tai.Timestamp) error {
	payload := append([]uint32{uint32(idx)}, encodeTimestamp(offset)...)
	_, err := c.call(tdc.MsgSetTimebaseOffset, payload)
	return wrap("tdc.set_timebase_offset", err)
}

// AssignTrigger binds channel idx's emitted entries to id.
func (c *TDCClient) AssignTrigger(idx int, id trigger.ID) error {
	payload := append([]uint32{uint32(idx)}, id.System, id.SourcePort, id.Trigger)
	_, err := c.call(tdc.MsgAssignTrigger, payload)
	return wrap("tdc.assign_trigger", err)
}

// SetMode sets channel idx's arming mode.
func (c *TDCClient) SetMode(idx int, mode tdc.Mode) error {
	_, err := c.call(tdc.MsgSetMode, []uint32{uint32(idx), uint32(mode)})
	return wrap("tdc.set_mode", err)
}

// Arm re-arms channel idx after a single-shot trigger.
func (c *TDCClient) Arm(idx int) error {
	_, err := c.call(tdc.MsgArm, []uint32{uint32(idx)})
	return wrap("tdc.arm", err)
}

// SetSeq resets channel idx's sequence counter.
func (c *TDCClient) SetSeq(idx int, seq uint32) error {
	_, err := c.call(tdc.MsgSetSeq, []uint32{uint32(idx), seq})
	return wrap("tdc.set_seq", err)
}

// ResetCounters clears channel idx's pulse counters.
func (c *TDCClient) ResetCounters(idx int) error {
	_, err := c.call(tdc.MsgResetCounters, []uint32{uint32(idx)})
	return wrap("tdc.reset_counters", err)
}

// Ping issues the personality-local keepalive.
func (c *TDCClient) Ping() error {
	_, err := c.call(tdc.MsgPing, []uint32{0})
	return wrap("tdc.ping", err)
}

// SoftwareTrigger fires channel idx immediately, bypassing its input
// FIFO, with the entry timestamped delay past the card's current time.
func (c *TDCClient) SoftwareTrigger(idx int, delay tai.Timestamp) error {
	payload := append([]uint32{uint32(idx)}, encodeTimestamp(delay)...)
	_, err := c.call(tdc.MsgSoftwareTrigger, payload)
	return wrap("tdc.software_trigger", err)
}

// GetState fetches channel idx's flags, mode, sequence and counters.
func (c *TDCClient) GetState(idx int) (tdc.State, error) {
	reply, err := c.call(tdc.MsgGetState, []uint32{uint32(idx)})
	if err != nil {
		return tdc.State{}, wrap("tdc.get_state", err)
	}
	if len(reply) < 9 {
		return tdc.State{}, wrap("tdc.get_state", errShortReply(len(reply)))
	}
	return tdc.State{
		Flags:        tdc.Flag(reply[0]),
		Mode:         tdc.Mode(reply[1]),
		Seq:          reply[2],
		TotalPulses:  uint64(reply[3])<<32 | uint64(reply[4]),
		SentPulses:   uint64(reply[5])<<32 | uint64(reply[6]),
		MissNoTiming: uint64(reply[7])<<32 | uint64(reply[8]),
	}, nil
}

func encodeTimestamp(ts tai.Timestamp) []uint32 {
	return []uint32{uint32(ts.Seconds >> 32), uint32(ts.Seconds), uint32(ts.Ticks), uint32(ts.Frac)}
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
