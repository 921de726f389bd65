// Package udp implements the RMQ network fabric transport: trigger
// packets broadcast over UDP (spec.md §6 wire format). This is the
// one transport backend built on the standard library rather than a
// third-party package — no broadcast/UDP library appears anywhere in
// the retrieved corpus, so there is nothing to ground it on (see
// DESIGN.md).
package udp

import (
	"fmt"
	"net"

	"wrtd.dev/transport"
)

// Queue is a transport.Queue over a UDP socket. Send broadcasts to
// addr; Recv drains whatever the background reader goroutine has
// queued.
type Queue struct {
	conn *net.UDPConn
	addr *net.UDPAddr
	recv chan []byte
	done chan struct{}
}

// recvBacklog bounds the background reader's queue the way a real
// RMQ slot is bounded (spec.md §4.1): once full, new datagrams are
// dropped rather than buffered without limit.
const recvBacklog = 64

// Open binds a UDP socket on listenAddr (e.g. ":60368") and targets
// broadcastAddr (e.g. "255.255.255.255:60368") for Send.
func Open(listenAddr, broadcastAddr string) (*Queue, error) {
	laddr, err := net.ResolveUDPAddr("udp4", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve listen addr: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp4", broadcastAddr)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve broadcast addr: %w", err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("udp: listen: %w", err)
	}
	q := &Queue{
		conn: conn,
		addr: raddr,
		recv: make(chan []byte, recvBacklog),
		done: make(chan struct{}),
	}
	go q.readLoop()
	return q, nil
}

func (q *Queue) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, err := q.conn.Read(buf)
		if err != nil {
			select {
			case <-q.done:
			default:
			}
			return
		}
		frame := append([]byte(nil), buf[:n]...)
		select {
		case q.recv <- frame:
		default:
			// RMQ slot full: drop, matching spec.md §4.1's
			// overflow behavior rather than blocking the reader.
		}
	}
}

// Send broadcasts frame to the configured target address.
func (q *Queue) Send(frame []byte) error {
	_, err := q.conn.WriteToUDP(frame, q.addr)
	return err
}

// Recv returns the oldest queued datagram without blocking.
func (q *Queue) Recv() ([]byte, bool, error) {
	select {
	case f := <-q.recv:
		return f, true, nil
	default:
		return nil, false, nil
	}
}

func (q *Queue) Close() error {
	select {
	case <-q.done:
		return nil
	default:
		close(q.done)
	}
	return q.conn.Close()
}

var _ transport.Queue = (*Queue)(nil)
