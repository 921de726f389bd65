// Package node ties one card's personalities together into the
// single-threaded cooperative main loop spec.md §5 describes:
// do_input/do_rx, do_outputs, dispatch_control, update_link, repeat.
// It is the explicit "NodeState" context spec.md §9 calls for in place
// of global mutable state — every piece of per-card runtime lives in
// a Node value instead of package-level variables, so a test or the
// bench simulator can run several independent cards in one process.
package node

import (
	"errors"

	"wrtd.dev/fd"
	"wrtd.dev/internal/hostproto"
	"wrtd.dev/internal/wrlink"
	"wrtd.dev/tdc"
	"wrtd.dev/transport"
)

// Dispatcher answers one decoded control-channel request, returning
// the reply payload words or a NACK-worthy error (spec.md §4.2).
// tdc.Personality and fd.Personality satisfy it; see HandleCommand in
// their msgids.go.
type Dispatcher interface {
	HandleCommand(msgID uint8, payload []uint32) ([]uint32, error)
}

// Node is one card's runtime: its WR link gate, whichever personality
// or personalities it hosts, and the control-channel transport its
// dispatch_control phase drains.
type Node struct {
	Link    *wrlink.Link
	Inputs  wrlink.Inputs
	TDC     *tdc.Personality
	FD      *fd.Personality
	Control transport.Queue
	Dispatch Dispatcher
}

// Step runs one iteration of the cooperative main loop in spec.md §5's
// fixed order. Any nil field is simply skipped, so a Node can host
// just a TDC, just an FD, or (the bench simulator) both.
func (n *Node) Step() {
	if n.TDC != nil {
		n.TDC.DoInput()
	}
	if n.FD != nil {
		n.FD.DoRx()
		n.FD.DoOutput()
	}
	n.dispatchControl()
	if n.Link != nil && n.Inputs != nil {
		n.Link.Update(n.Inputs)
	}
}

// dispatchControl drains at most one pending control-channel frame
// per iteration, matching the cooperative loop's "never block, do a
// bounded amount of work per pass" contract (spec.md §5).
func (n *Node) dispatchControl() {
	if n.Control == nil || n.Dispatch == nil {
		return
	}
	frame, ok, err := n.Control.Recv()
	if err != nil || !ok {
		return
	}
	h, payload, err := hostproto.Decode(frame)
	if err != nil {
		return
	}
	reply, cmdErr := n.Dispatch.HandleCommand(h.MsgID, payload)
	replyHeader := hostproto.Header{
		RTAppID: h.RTAppID,
		SlotIO:  h.SlotIO,
		Seq:     h.Seq,
	}
	if cmdErr != nil {
		kind := hostproto.KindInvalidMessage
		var nack *hostproto.NackError
		if errors.As(cmdErr, &nack) {
			kind = nack.Kind
		}
		replyHeader.MsgID = hostproto.SendNack
		n.Control.Send(hostproto.Encode(replyHeader, []uint32{uint32(kind)}))
		return
	}
	replyHeader.MsgID = hostproto.SendAck
	replyHeader.Len = uint8(len(reply))
	n.Control.Send(hostproto.Encode(replyHeader, reply))
}

// Run steps the node n times, stopping early if stop returns true
// before an iteration. It is the host-side harness for bench runs and
// integration tests; real firmware loops forever instead (spec.md §5).
func (n *Node) Run(iterations int, stop func() bool) {
	for i := 0; i < iterations; i++ {
		if stop != nil && stop() {
			return
		}
		n.Step()
	}
}
