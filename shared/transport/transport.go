// Package transport implements an unreliable datagram-like channel: a thin
// interface over a modem-style radio link, carrying (local_iface,
// source_port, reply_port, message, distance) per wire message.
//
// The default implementation (Conn) runs over net.PacketConn (UDP) so the
// core can be exercised over loopback in tests without any simulated-world
// dependency. A real deployment can swap in any other net.PacketConn (or
// implement Sender/Receiver directly) — plc/internal/comms and
// supervisor/internal/core send only through the narrow Sender interface.
package transport

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net"

	"github.com/reactorfleet/scada-core/shared/wire"
)

// DistanceFunc computes the radial distance a received message should be
// reported as. Real UDP has no notion of physical distance; a deployment
// wired to a simulated world or a real mesh topology supplies its own.
// The zero value always reports 0.
type DistanceFunc func(remote net.Addr) float64

// Sender is the narrow interface plc/comms and supervisor/core depend on to
// transmit a frame. Keeping it narrow (rather than depending on *Conn
// directly) is what lets tests substitute an in-memory fake.
type Sender interface {
	Send(dst net.Addr, localPort, replyPort uint16, payload []any) error
}

// Receiver is the narrow read-side interface *Conn satisfies for collecting
// inbound wire messages. The PLC tick scheduler holds a *Conn directly.
type Receiver interface {
	Messages() <-chan wire.WireMessage
	Errors() <-chan error
}

// Conn is a modem-style datagram channel built on net.PacketConn. Reads are
// pumped into a buffered channel by a single background goroutine so the
// tick scheduler's single-threaded event loop can multiplex modem messages
// alongside timers and other events via a plain select — the background
// goroutine here never touches PlcState, it only moves bytes into a queue.
type Conn struct {
	pc       net.PacketConn
	iface    string
	distance DistanceFunc
	messages chan wire.WireMessage
	errs     chan error
	done     chan struct{}
}

// envelope is what actually crosses the wire: the reply port the sender
// wants responses directed to, plus the opaque message sequence. gob is
// used because it is self-describing, and it preserves the heterogeneous
// ordered-value shape (ints, strings, nested sequences) without the
// float64-widening JSON would force on every integer field.
type envelope struct {
	ReplyPort uint16
	Message   []any
}

func init() {
	gob.Register([]any{})
}

// Listen opens a UDP-backed Conn on iface (e.g. "0.0.0.0:4000" or a named
// local interface resolved by the caller). distanceFn may be nil.
func Listen(iface string, distanceFn DistanceFunc) (*Conn, error) {
	pc, err := net.ListenPacket("udp", iface)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", iface, err)
	}
	if distanceFn == nil {
		distanceFn = func(net.Addr) float64 { return 0 }
	}

	c := &Conn{
		pc:       pc,
		iface:    iface,
		distance: distanceFn,
		messages: make(chan wire.WireMessage, 64),
		errs:     make(chan error, 4),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	buf := make([]byte, 65535)
	for {
		n, addr, err := c.pc.ReadFrom(buf)
		if err != nil {
			select {
			case c.errs <- fmt.Errorf("transport: read: %w", err):
			default:
			}
			return
		}

		var env envelope
		dec := gob.NewDecoder(bytes.NewReader(buf[:n]))
		if err := dec.Decode(&env); err != nil {
			// Malformed datagram from an unknown or misbehaving sender:
			// silently dropped, not surfaced as an error event.
			continue
		}

		wm := wire.WireMessage{
			LocalIface: c.iface,
			RemoteAddr: addr,
			ReplyPort:  env.ReplyPort,
			Message:    env.Message,
			Distance:   c.distance(addr),
		}
		if udpAddr, ok := addr.(*net.UDPAddr); ok {
			wm.SourcePort = uint16(udpAddr.Port)
		}

		select {
		case c.messages <- wm:
		case <-c.done:
			return
		}
	}
}

// Send transmits payload to dst, asking the remote side to direct replies
// to replyPort. localPort is accepted for interface symmetry with the
// wire-message tuple but is not separately meaningful over a single
// net.PacketConn (the OS already binds one local port per Conn).
func (c *Conn) Send(dst net.Addr, localPort, replyPort uint16, payload []any) error {
	_ = localPort
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{ReplyPort: replyPort, Message: payload}); err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}
	if _, err := c.pc.WriteTo(buf.Bytes(), dst); err != nil {
		return fmt.Errorf("transport: write to %s: %w", dst, err)
	}
	return nil
}

// Messages returns the channel of successfully decoded wire messages.
func (c *Conn) Messages() <-chan wire.WireMessage { return c.messages }

// Errors returns the channel of fatal read errors (e.g. the socket closed).
func (c *Conn) Errors() <-chan error { return c.errs }

// Close shuts down the read loop and releases the underlying socket.
func (c *Conn) Close() error {
	close(c.done)
	return c.pc.Close()
}

// DialReply resolves the reply address a received wire message should be
// answered on, given the originating net.Addr and the ReplyPort carried in
// the envelope. Used by comms/core to build the dst for a Send call.
func DialReply(network string, origin net.Addr, replyPort uint16) (net.Addr, error) {
	host, _, err := net.SplitHostPort(origin.String())
	if err != nil {
		return nil, fmt.Errorf("transport: split %s: %w", origin, err)
	}
	addr, err := net.ResolveUDPAddr(network, net.JoinHostPort(host, fmt.Sprint(replyPort)))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve reply addr: %w", err)
	}
	return addr, nil
}
