// command list-input-test exercises a TDC input personality's
// software-trigger path end to end: arm a channel, fire it, and print
// the channel's pulse counters before and after.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"wrtd.dev/hostlib"
	"wrtd.dev/internal/tai"
	"wrtd.dev/transport"
	"wrtd.dev/transport/chardev"
	"wrtd.dev/transport/serial"
	"wrtd.dev/transport/udp"
)

var (
	kind       = flag.String("transport", "chardev", "transport backend: chardev, serial or udp")
	dev        = flag.String("dev", "/dev/wrtd-hmq0", "chardev path or serial device")
	listenAddr = flag.String("listen", ":60368", "udp listen address")
	targetAddr = flag.String("target", "255.255.255.255:60368", "udp broadcast target")
	slotIO     = flag.Uint("slotio", 0, "control channel slot/io byte")
	channel    = flag.Int("channel", 0, "TDC channel index")
	count      = flag.Int("count", 1, "number of software triggers to fire")
	delayMs    = flag.Duration("delay", 10*time.Millisecond, "pause between triggers")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "list-input-test: %v\n", err)
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
	c := &hostlib.TDCClient{Dev: device, SlotIO: uint8(*slotIO)}

	if err := c.ChanEnable(*channel, true); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	if err := c.Arm(*channel); err != nil {
		return fmt.Errorf("arm: %w", err)
	}
	for i := 0; i < *count; i++ {
		before, err := c.GetState(*channel)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		if err := c.SoftwareTrigger(*channel, tai.Timestamp{}); err != nil {
			return fmt.Errorf("trigger %d: %w", i, err)
		}
		after, err := c.GetState(*channel)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		fmt.Printf("trigger %d: total %d -> %d, sent %d -> %d\n",
			i, before.TotalPulses, after.TotalPulses, before.SentPulses, after.SentPulses)
		time.Sleep(*delayMs)
	}
	return nil
}
