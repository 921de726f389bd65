// command wrtd-fd-config is a bring-up tool for configuring one
// output channel of an FD personality and its routing table over its
// control channel.
package main

import (
	"flag"
	"fmt"
	"os"

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

	output    = flag.Int("output", 0, "FD output channel index")
	assign    = flag.String("assign", "", "assign trigger identity, as system:port:trigger, to output")
	remove    = flag.String("remove", "", "remove trigger identity from output")
	enableID  = flag.String("enable", "", "enable a previously-assigned trigger on output")
	disableID = flag.String("disable", "", "disable a previously-assigned trigger on output")
	delayTicks = flag.Int("delay-cycles", 0, "delay in whole 8ns cycles, used with -assign")
	width     = flag.Int("width", -1, "set output pulse width in 8ns ticks")
	deadns    = flag.Int("deadtime", -1, "set output dead time in 8ns ticks")
	arm       = flag.Bool("arm", false, "arm the output channel")
	readHash  = flag.Bool("read-hash", false, "print every routing table entry's trigger identity")
	ping      = flag.Bool("ping", false, "ping the personality")
	version   = flag.Bool("version", false, "print the firmware identification record")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wrtd-fd-config: %v\n", err)
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

	if *ping {
		if err := c.Ping(); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		fmt.Println("ping ok")
	}
	if *version {
		v, err := c.Version()
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		fmt.Printf("fpga=%#x rt=%#x rtversion=%d gitsha=%#x\n", v.FPGAID, v.RTID, v.RTVersion, v.GitSHA)
	}
	if *assign != "" {
		id, err := parseTriggerID(*assign)
		if err != nil {
			return err
		}
		rule := routing.OutputRule{DelayCycles: int32(*delayTicks)}
		if err := c.TrigAssign(*output, id, rule); err != nil {
			return fmt.Errorf("assign: %w", err)
		}
	}
	if *remove != "" {
		id, err := parseTriggerID(*remove)
		if err != nil {
			return err
		}
		if err := c.TrigRemove(*output, id); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
	}
	if *enableID != "" {
		id, err := parseTriggerID(*enableID)
		if err != nil {
			return err
		}
		if err := c.TrigEnable(*output, id, true); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}
	if *disableID != "" {
		id, err := parseTriggerID(*disableID)
		if err != nil {
			return err
		}
		if err := c.TrigEnable(*output, id, false); err != nil {
			return fmt.Errorf("disable: %w", err)
		}
	}
	if *width >= 0 {
		if err := c.ChanSetWidth(*output, int32(*width)); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}
	if *deadns >= 0 {
		if err := c.ChanDeadTime(*output, int32(*deadns)); err != nil {
			return fmt.Errorf("set dead time: %w", err)
		}
	}
	if *arm {
		if err := c.ChanArm(*output); err != nil {
			return fmt.Errorf("arm: %w", err)
		}
	}
	if *readHash {
		ids, err := c.ReadHash()
		if err != nil {
			return fmt.Errorf("read hash: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id.String())
		}
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
