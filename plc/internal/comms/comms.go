// Package comms binds the PLC safety core to the SCADA messaging layer: it
// owns the single session a PLC keeps with its Supervisor, sends STATUS and
// LINK_REQ at their configured cadences, and translates inbound RPLC/MGMT
// packets into the safety core's RemoteCommand vocabulary.
package comms

import (
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reactorfleet/scada-core/plc/internal/safety"
	"github.com/reactorfleet/scada-core/shared/mgmt"
	"github.com/reactorfleet/scada-core/shared/rplc"
	"github.com/reactorfleet/scada-core/shared/session"
	"github.com/reactorfleet/scada-core/shared/transport"
	"github.com/reactorfleet/scada-core/shared/wire"
)

const (
	statusHz  = 3.33
	linkReqHz = 0.5
	watchdog  = 3 * time.Second
)

// Comms is the PLC-side link to one Supervisor.
type Comms struct {
	plcID      uint32
	sender     transport.Sender
	remote     net.Addr
	localPort  uint16
	replyPort  uint16
	sess       *session.Session
	statusRate *rate.Limiter
	linkRate   *rate.Limiter
	seq        uint32
	scrammed   bool // true if the last remote packet asked for SCRAM
	logger     *zap.Logger
}

// New creates a Comms addressing remote, with this node's RPLC plc_id.
func New(plcID uint32, sender transport.Sender, remote net.Addr, localPort, replyPort uint16, logger *zap.Logger) *Comms {
	return &Comms{
		plcID:      plcID,
		sender:     sender,
		remote:     remote,
		localPort:  localPort,
		replyPort:  replyPort,
		sess:       session.New("supervisor", watchdog),
		statusRate: rate.NewLimiter(rate.Limit(statusHz), 1),
		linkRate:   rate.NewLimiter(rate.Limit(linkReqHz), 1),
		logger:     logger.Named("comms"),
	}
}

// IsLinked reports whether the session with the Supervisor is established.
func (c *Comms) IsLinked() bool { return c.sess.Linked }

// IsScrammed reports whether the last remote packet processed asked for
// SCRAM (RPS_SCRAM or a watchdog/terminate-driven latch is tracked by the
// safety core itself, not here — this reflects only the remote ask).
func (c *Comms) IsScrammed() bool { return c.scrammed }

// WatchdogCheck reports whether the session's watchdog has expired as of
// now. It is a pass-through to the underlying session.Watchdog so the tick
// scheduler never has to reach past Comms into shared/session directly.
func (c *Comms) WatchdogCheck(now time.Time) (fired bool, firstFire bool) {
	return c.sess.Watchdog.Check(now)
}

// Unlink tears down the session, e.g. on CLOSE or watchdog expiry.
func (c *Comms) Unlink() {
	c.sess.Linked = false
	c.scrammed = false
}

func (c *Comms) nextSeq() uint32 {
	c.seq++
	return c.seq
}

// Tick runs the cadenced sends for one loop tick: LINK_REQ while unlinked,
// STATUS while linked. Safe to call every tick; the rate limiters are what
// enforce the actual cadence.
func (c *Comms) Tick(state safety.PlcState, issStatus safety.IssStatus, now time.Time) {
	if !c.sess.Linked {
		if c.linkRate.AllowN(now, 1) {
			c.sendLinkReq()
		}
		return
	}
	if c.statusRate.AllowN(now, 1) {
		c.sendStatus(state, issStatus)
	}
}

func (c *Comms) sendLinkReq() {
	pkt := rplc.Make(c.plcID, rplc.LinkReq)
	c.send(pkt.Frame(c.nextSeq()))
}

func (c *Comms) sendStatus(state safety.PlcState, issStatus safety.IssStatus) {
	pkt := rplc.Make(c.plcID, rplc.Status, state.Scram, uint32(issStatus))
	c.send(pkt.Frame(c.nextSeq()))
}

// SendIssAlarm emits exactly one RPS_ALARM carrying status, as asked by the
// safety core's outbox on an ISS rising edge.
func (c *Comms) SendIssAlarm(status safety.IssStatus) {
	pkt := rplc.Make(c.plcID, rplc.RpsAlarm, uint32(status))
	c.send(pkt.Frame(c.nextSeq()))
}

func (c *Comms) send(f wire.Frame) {
	if err := c.sender.Send(c.remote, c.localPort, c.replyPort, []any{f.SeqNum(), uint8(f.Protocol()), f.Data()}); err != nil {
		c.logger.Warn("send failed", zap.Error(err))
	}
}

// HandleInbound decodes f and returns any remote commands the safety core
// should fold into this tick's dispatch. now is used to feed the watchdog;
// no RTT sample is taken, since no send time is passed to the session.
func (c *Comms) HandleInbound(f wire.Frame, now time.Time) []safety.RemoteCommand {
	switch f.Protocol() {
	case wire.ScadaMgmt:
		return c.handleMgmt(f, now)
	case wire.RPLC:
		return c.handleRplc(f, now)
	default:
		wire.LogWrongProtocolAttempt(c.logger, wire.RPLC, f.Protocol())
		return nil
	}
}

func (c *Comms) handleMgmt(f wire.Frame, now time.Time) []safety.RemoteCommand {
	pkt := mgmt.Decode(f)
	if !pkt.Valid() {
		c.logger.Debug("dropped invalid management packet")
		return nil
	}

	switch pkt.Type() {
	case mgmt.RemoteLinked:
		body := pkt.Body()
		if len(body) < 1 {
			return nil
		}
		addressee, ok := asUint32(body[0])
		if !ok || addressee != c.plcID {
			c.logger.Debug("dropped remote_linked addressed to another plc_id")
			return nil
		}
		if !c.sess.AcceptSeq(f.SeqNum()) {
			return nil
		}
		c.sess.Linked = true
		c.sess.Touch(now, time.Time{})
		return nil
	case mgmt.Close:
		c.Unlink()
		return nil
	case mgmt.KeepAlive:
		if c.sess.Linked && c.sess.AcceptSeq(f.SeqNum()) {
			c.sess.Touch(now, time.Time{})
		}
		return nil
	default:
		return nil
	}
}

func (c *Comms) handleRplc(f wire.Frame, now time.Time) []safety.RemoteCommand {
	pkt := rplc.Decode(f)
	if !pkt.Valid() {
		c.logger.Debug("dropped invalid rplc packet")
		return nil
	}
	if pkt.PlcID() != c.plcID {
		c.logger.Debug("dropped rplc packet addressed to another plc_id", zap.Uint32("got", pkt.PlcID()))
		return nil
	}
	if !c.sess.Linked || !c.sess.AcceptSeq(f.SeqNum()) {
		return nil
	}
	c.sess.Touch(now, time.Time{})

	switch pkt.Type() {
	case rplc.RpsScram:
		c.scrammed = true
		return []safety.RemoteCommand{{Kind: safety.CmdScram}}
	case rplc.RpsReset:
		c.scrammed = false
		return []safety.RemoteCommand{{Kind: safety.CmdReset}}
	case rplc.RpsEnable:
		return []safety.RemoteCommand{{Kind: safety.CmdEnable}}
	case rplc.MekBurnRate:
		body := pkt.Body()
		if len(body) < 1 {
			return nil
		}
		rate, ok := body[0].(float64)
		if !ok {
			return nil
		}
		return []safety.RemoteCommand{{Kind: safety.CmdSetBurnRate, BurnRate: rate}}
	default:
		return nil
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
