// command list-output-test exercises an FD output personality's
// direct-trigger path end to end: assign a trigger identity to an
// output, arm the channel, and poll its scheduler state and counters.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"wrtd.dev/hostlib"
	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/trigger"
	"wrtd.dev/transport"
	"wrtd.dev/transport/chardev"
	"wrtd.dev/transport/serial"
	"wrtd.dev/transport/udp"
)

var (
	kind       = flag.String("transport", "chardev", "transport backend: chardev, serial or udp")
	dev        = flag.String("dev", "/dev/wrtd-hmq1", "chardev path or serial device")
	listenAddr = flag.String("listen", ":60369", "udp listen address")
	targetAddr = flag.String("target", "255.255.255.255:60369", "udp broadcast target")
	slotIO     = flag.Uint("slotio", 0, "control channel slot/io byte")
	output     = flag.Int("output", 0, "FD output channel index")
	system     = flag.Uint("system", 1, "trigger system id to assign")
	sourcePort = flag.Uint("port", 1, "trigger source-port id to assign")
	triggerNum = flag.Uint("trigger", 1, "trigger id to assign")
	poll       = flag.Int("poll", 5, "number of state polls")
	interval   = flag.Duration("interval", 200*time.Millisecond, "pause between polls")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "list-output-test: %v\n", err)
		os.Exit(1)
	}
}

func openQueue() (transport.Queue, error) {
	switch *kind {
	case "chardev":
		return chardev.Open(*dev, 64, 8)
	case "serial":
		return serial.Open(*dev)
	case "udp":
		return udp.Open(*listenAddr, *targetAddr)
	default:
		return nil, fmt.Errorf("unknown -transport %q", *kind)
	}
}

func run() error {
	q, err := openQueue()
	if err != nil {
		return err
	}
	device := hostlib.Open(q, 0)
	defer device.Close()
	c := &hostlib.FDClient{Dev: device, SlotIO: uint8(*slotIO)}

	id := trigger.ID{System: uint32(*system), SourcePort: uint32(*sourcePort), Trigger: uint32(*triggerNum)}
	if err := c.TrigAssign(*output, id, routing.OutputRule{}); err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	if err := c.ChanEnable(*output, true); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	if err := c.ChanArm(*output); err != nil {
		return fmt.Errorf("arm: %w", err)
	}
	for i := 0; i < *poll; i++ {
		st, err := c.ChanGetState(*output)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		fmt.Printf("poll %d: state=%d enabled=%v mode=%d queue_len=%d hits=%d\n",
			i, st.State, st.Enabled, st.Mode, st.QueueLen, st.Hits)
		time.Sleep(*interval)
	}
	return nil
}
