// command wrtd-tdc-config is a bring-up tool for configuring one
// channel of a TDC input personality over its control channel.
package main

import (
	"flag"
	"fmt"
	"os"

	"wrtd.dev/hostlib"
	"wrtd.dev/internal/trigger"
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

	channel = flag.Int("channel", 0, "TDC channel index")
	enable  = flag.Bool("enable", false, "enable the channel")
	disable = flag.Bool("disable", false, "disable the channel")
	delay   = flag.Int("delay", -1, "set fixed tag delay in 8ns ticks")
	deadns  = flag.Int64("deadtime", -1, "set dead time in 8ns ticks")
	assign  = flag.String("assign", "", "assign trigger identity, as system:port:trigger")
	arm     = flag.Bool("arm", false, "arm the channel")
	ping    = flag.Bool("ping", false, "ping the personality")
	getState = flag.Bool("state", false, "print the channel state")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wrtd-tdc-config: %v\n", err)
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

	if *ping {
		if err := c.Ping(); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		fmt.Println("ping ok")
	}
	if *enable {
		if err := c.ChanEnable(*channel, true); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}
	if *disable {
		if err := c.ChanEnable(*channel, false); err != nil {
			return fmt.Errorf("disable: %w", err)
		}
	}
	if *delay >= 0 {
		if err := c.SetDelay(*channel, int32(*delay)); err != nil {
			return fmt.Errorf("set delay: %w", err)
		}
	}
	if *deadns >= 0 {
		if err := c.SetDeadTime(*channel, *deadns); err != nil {
			return fmt.Errorf("set dead time: %w", err)
		}
	}
	if *assign != "" {
		id, err := parseTriggerID(*assign)
		if err != nil {
			return err
		}
		if err := c.AssignTrigger(*channel, id); err != nil {
			return fmt.Errorf("assign trigger: %w", err)
		}
	}
	if *arm {
		if err := c.Arm(*channel); err != nil {
			return fmt.Errorf("arm: %w", err)
		}
	}
	if *getState {
		st, err := c.GetState(*channel)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		fmt.Printf("flags=%#x mode=%d seq=%d total=%d sent=%d\n",
			uint8(st.Flags), st.Mode, st.Seq, st.TotalPulses, st.SentPulses)
	}
	return nil
}

func parseTriggerID(s string) (trigger.ID, error) {
	var sys, port, trig uint32
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &sys, &port, &trig); err != nil {
		return trigger.ID{}, fmt.Errorf("parse trigger id %q (want system:port:trigger): %w", s, err)
	}
	return trigger.ID{System: sys, SourcePort: port, Trigger: trig}, nil
}
