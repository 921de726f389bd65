// command listsim is a bench simulator: a TDC input personality and an
// FD output personality wired together over transport/loop and a
// shared in-memory routing table, driven by a wall-clock
// internal/tai.Clock instead of a real WR PTP core. It exercises the
// input -> loopback -> routing -> output-queue path on a laptop, the
// way internal/node/integration_test.go drives it in-process but as a
// standalone, runnable program (spec.md §6.2). The network fabric is
// not used, and no pulse generator is attached to the FD outputs, so
// queued pulses are never programmed or fired.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"wrtd.dev/fd"
	"wrtd.dev/hostlib"
	"wrtd.dev/internal/mqueue"
	"wrtd.dev/internal/node"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/smem"
	"wrtd.dev/internal/tai"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/internal/wrlink"
	"wrtd.dev/tdc"
	"wrtd.dev/transport/loop"
)

var (
	duration = flag.Duration("duration", 10*time.Second, "how long to run the simulation")
	tick     = flag.Duration("tick", time.Millisecond, "main-loop step interval")
	channel  = flag.Int("channel", 0, "TDC channel to fire")
	output   = flag.Int("output", 0, "FD output to route to")
)

// loopTx implements tdc.Transmitter over an in-process Loopback and a
// throwaway RMQ-out slot; listsim never exercises the network fabric
// since both personalities live in one process.
type loopTx struct {
	lb   *mqueue.Loopback
	slot *mqueue.Slot
}

func (t *loopTx) Loopback() *mqueue.Loopback { return t.lb }
func (t *loopTx) Slot() *mqueue.Slot         { return t.slot }

// alwaysUp implements wrlink.Inputs as an always-synced link so the
// simulation doesn't have to wait out a real WR lock sequence; Now
// comes from the shared wall-clock Clock.
type alwaysUp struct {
	clock *tai.Clock
}

func (a alwaysUp) LinkUp() bool       { return true }
func (a alwaysUp) TimeValid() bool    { return true }
func (a alwaysUp) Locked() bool       { return true }
func (a alwaysUp) Now() tai.Timestamp { return a.clock.Read() }

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "listsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	clock := tai.NewClock()
	link := wrlink.New(nil)
	inputs := alwaysUp{clock: clock}

	table := routing.NewTable()
	tdcP := tdc.NewPersonality(link, clock.Read)
	fdP := fd.NewPersonality(table, link, clock.Read)

	backend := smem.NewMemBackend(8)
	lb := mqueue.NewLoopback(backend, 0)
	tdcP.Tx = &loopTx{lb: lb, slot: mqueue.NewSlot(64, 8)}
	fdP.In.Loopback = lb

	tdcHostSide, tdcCardSide := loop.NewPair()
	fdHostSide, fdCardSide := loop.NewPair()

	nodeTDC := &node.Node{Link: link, Inputs: inputs, TDC: tdcP, Control: tdcCardSide, Dispatch: tdcP}
	nodeFD := &node.Node{FD: fdP, Control: fdCardSide, Dispatch: fdP}

	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(*tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				nodeTDC.Step()
				nodeFD.Step()
			}
		}
	}()
	defer close(stop)

	tdcHost := hostlib.Open(tdcHostSide, 0)
	defer tdcHost.Close()
	fdHost := hostlib.Open(fdHostSide, 0)
	defer fdHost.Close()

	tdcClient := &hostlib.TDCClient{Dev: tdcHost}
	fdClient := &hostlib.FDClient{Dev: fdHost}

	id := trigger.ID{System: 1, SourcePort: 1, Trigger: uint32(*channel) + 1}
	if err := tdcClient.ChanEnable(*channel, true); err != nil {
		return fmt.Errorf("enable input: %w", err)
	}
	if err := tdcClient.AssignTrigger(*channel, id); err != nil {
		return fmt.Errorf("assign trigger: %w", err)
	}
	if err := tdcClient.Arm(*channel); err != nil {
		return fmt.Errorf("arm input: %w", err)
	}
	if err := fdClient.ChanEnable(*output, true); err != nil {
		return fmt.Errorf("enable output: %w", err)
	}
	if err := fdClient.TrigAssign(*output, id, routing.OutputRule{}); err != nil {
		return fmt.Errorf("assign route: %w", err)
	}
	if err := fdClient.ChanArm(*output); err != nil {
		return fmt.Errorf("arm output: %w", err)
	}

	fmt.Println("waiting for WR link to settle...")
	time.Sleep(5 * time.Second)

	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		if err := tdcClient.SoftwareTrigger(*channel, tai.Timestamp{}); err != nil {
			fmt.Fprintf(os.Stderr, "software trigger: %v\n", err)
		}
		st, err := fdClient.ChanGetState(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get state: %v\n", err)
		} else {
			fmt.Printf("output %d: state=%d hits=%d queue_len=%d\n", *output, st.State, st.Hits, st.QueueLen)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil
}
