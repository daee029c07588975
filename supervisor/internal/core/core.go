// Package core is the Supervisor-side counterpart of plc/internal/comms: it
// terminates the RPLC/MGMT handshake for every PLC in the fleet, relays
// operator commands down to a specific reactor, and folds inbound telemetry
// into the fleet registry. Where plc/comms owns exactly one session, core
// owns the many-sessions case and leans on registry.Fleet (itself built on
// shared/session.Registry) for the per-peer bookkeeping.
package core

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/shared/mgmt"
	"github.com/reactorfleet/scada-core/shared/rplc"
	"github.com/reactorfleet/scada-core/shared/rtu"
	"github.com/reactorfleet/scada-core/shared/transport"
	"github.com/reactorfleet/scada-core/shared/wire"
	"github.com/reactorfleet/scada-core/supervisor/internal/registry"
)

const watchdogDuration = 3 * time.Second

// Sentinel errors SendCommand wraps its failures in, so callers
// (supervisor/internal/api) can distinguish "operator asked for something
// that can't be relayed right now" from an unexpected transport failure and
// map each to the right HTTP status rather than reporting everything as one
// generic 422.
var (
	ErrPeerNotLinked  = errors.New("plc not linked")
	ErrNoReplyAddress = errors.New("plc has no known reply address")
)

// Event is a fleet-relevant occurrence core emits for the websocket feed to
// publish. It intentionally carries plain fields rather than the wire
// packet types, so supervisor/internal/websocket never needs to import
// shared/rplc or shared/mgmt.
type Event struct {
	Kind      EventKind
	PlcID     uint32
	Scram     bool
	IssStatus uint32
	At        time.Time
}

// EventKind tags what happened to produce an Event.
type EventKind int

const (
	EventLinked EventKind = iota
	EventUnlinked
	EventStatus
	EventAlarm
)

// Core terminates the RPLC/MGMT handshake and command relay for the fleet.
type Core struct {
	fleet  *registry.Fleet
	sender transport.Sender
	seq    uint32
	events chan Event
	logger *zap.Logger
}

// New creates a Core backed by fleet, sending replies through sender.
// events is an unbuffered-safe buffered channel callers drain to publish to
// the websocket feed; a slow or absent drainer never blocks the handshake
// path because the channel is buffered and Core drops rather than blocks.
func New(fleet *registry.Fleet, sender transport.Sender, logger *zap.Logger) *Core {
	return &Core{
		fleet:  fleet,
		sender: sender,
		events: make(chan Event, 256),
		logger: logger.Named("core"),
	}
}

// Events returns the channel of fleet events for supervisor/internal/websocket
// to drain.
func (c *Core) Events() <-chan Event { return c.events }

func (c *Core) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping event", zap.Int("kind", int(ev.Kind)))
	}
}

func (c *Core) nextSeq() uint32 {
	c.seq++
	return c.seq
}

// HandleInbound decodes and routes one wire message from a PLC.
func (c *Core) HandleInbound(wm wire.WireMessage, now time.Time) {
	f, ok := wire.Receive(wm)
	if !ok {
		c.logger.Debug("dropped malformed wire message")
		return
	}

	switch f.Protocol() {
	case wire.RPLC:
		c.handleRplc(f, wm, now)
	case wire.ScadaMgmt:
		c.handleMgmt(f, wm, now)
	default:
		wire.LogWrongProtocolAttempt(c.logger, wire.RPLC, f.Protocol())
	}
}

func (c *Core) handleRplc(f wire.Frame, wm wire.WireMessage, now time.Time) {
	pkt := rplc.Decode(f)
	if !pkt.Valid() {
		c.logger.Debug("dropped invalid rplc packet")
		return
	}

	plcID := pkt.PlcID()

	if pkt.Type() == rplc.LinkReq {
		c.handleLinkReq(plcID, wm, now)
		return
	}

	if !c.fleet.Touch(plcID, f.SeqNum(), now) {
		c.logger.Debug("dropped rplc packet from unlinked or out-of-order peer", zap.Uint32("plc_id", plcID))
		return
	}

	switch pkt.Type() {
	case rplc.Status:
		body := pkt.Body()
		if len(body) < 2 {
			return
		}
		scram, ok := body[0].(bool)
		if !ok {
			return
		}
		issStatus, ok := asUint32(body[1])
		if !ok {
			return
		}
		c.fleet.RecordStatus(plcID, wm.RemoteAddr, wm.ReplyPort, scram, issStatus, now)
		c.emit(Event{Kind: EventStatus, PlcID: plcID, Scram: scram, IssStatus: issStatus, At: now})
	case rplc.RpsAlarm:
		body := pkt.Body()
		var issStatus uint32
		if len(body) >= 1 {
			issStatus, _ = asUint32(body[0])
		}
		c.logger.Warn("rps alarm", zap.Uint32("plc_id", plcID), zap.Uint32("iss_status", issStatus))
		c.emit(Event{Kind: EventAlarm, PlcID: plcID, IssStatus: issStatus, At: now})
	case rplc.KeepAlive:
		// Touch above already fed the watchdog; nothing further to do.
	default:
		c.logger.Debug("ignored rplc packet from peer", zap.Uint32("plc_id", plcID), zap.String("type", pkt.Type().String()))
	}
}

func (c *Core) handleLinkReq(plcID uint32, wm wire.WireMessage, now time.Time) {
	c.fleet.Link(plcID, watchdogDuration, now)
	c.logger.Info("plc linked", zap.Uint32("plc_id", plcID))
	c.emit(Event{Kind: EventLinked, PlcID: plcID, At: now})

	result := rplc.Allow
	confirm := mgmt.Make(mgmt.RemoteLinked, plcID, uint8(result))
	c.sendTo(wm, confirm.Frame(c.nextSeq()))
}

func (c *Core) handleMgmt(f wire.Frame, wm wire.WireMessage, now time.Time) {
	pkt := mgmt.Decode(f)
	if !pkt.Valid() {
		c.logger.Debug("dropped invalid management packet")
		return
	}

	switch pkt.Type() {
	case mgmt.KeepAlive:
		body := pkt.Body()
		if len(body) < 1 {
			return
		}
		plcID, ok := asUint32(body[0])
		if !ok {
			return
		}
		c.fleet.Touch(plcID, f.SeqNum(), now)
	case mgmt.Close:
		body := pkt.Body()
		if len(body) < 1 {
			return
		}
		plcID, ok := asUint32(body[0])
		if !ok {
			return
		}
		c.fleet.Unlink(plcID)
		c.logger.Info("plc closed session", zap.Uint32("plc_id", plcID))
		c.emit(Event{Kind: EventUnlinked, PlcID: plcID, At: now})
	case mgmt.RTUAdvert:
		adv, ok := rtu.DecodeAdvert(pkt.Body())
		if !ok {
			c.logger.Debug("dropped rtu advert with unrecognized capability tag")
			return
		}
		c.fleet.RecordRTUAdvert(wm.RemoteAddr, adv, now)
		c.logger.Info("rtu advert received", zap.String("addr", wm.RemoteAddr.String()), zap.Int("capabilities", len(adv)))
	default:
		c.logger.Debug("ignored management packet", zap.String("type", pkt.Type().String()))
	}
}

// SendCommand relays an operator-issued RPS command to plcID. It fails with
// an error rather than silently dropping when the peer is not currently
// linked, since callers (supervisor/internal/api) need to report that back
// to the operator.
func (c *Core) SendCommand(plcID uint32, typ rplc.Type, body ...any) error {
	t, ok := c.fleet.Telemetry(plcID)
	if !ok {
		return fmt.Errorf("core: plc %d: %w", plcID, ErrPeerNotLinked)
	}
	if t.Addr == nil {
		return fmt.Errorf("core: plc %d: %w", plcID, ErrNoReplyAddress)
	}

	dst, err := transport.DialReply("udp", t.Addr, t.ReplyPort)
	if err != nil {
		return fmt.Errorf("core: resolve reply addr for plc %d: %w", plcID, err)
	}

	pkt := rplc.Make(plcID, typ, body...)
	f := pkt.Frame(c.nextSeq())
	if err := c.sender.Send(dst, 0, 0, []any{f.SeqNum(), uint8(f.Protocol()), f.Data()}); err != nil {
		return fmt.Errorf("core: send to plc %d: %w", plcID, err)
	}
	return nil
}

func (c *Core) sendTo(wm wire.WireMessage, f wire.Frame) {
	if wm.RemoteAddr == nil {
		c.logger.Warn("cannot reply, wire message has no remote address")
		return
	}
	dst, err := transport.DialReply("udp", wm.RemoteAddr, wm.ReplyPort)
	if err != nil {
		c.logger.Warn("resolve reply addr failed", zap.Error(err))
		return
	}
	if err := c.sender.Send(dst, 0, 0, []any{f.SeqNum(), uint8(f.Protocol()), f.Data()}); err != nil {
		c.logger.Warn("send failed", zap.Error(err))
	}
}

func asUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	default:
		return 0, false
	}
}
