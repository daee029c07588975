package core

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/shared/mgmt"
	"github.com/reactorfleet/scada-core/shared/rplc"
	"github.com/reactorfleet/scada-core/shared/rtu"
	"github.com/reactorfleet/scada-core/shared/wire"
	"github.com/reactorfleet/scada-core/supervisor/internal/registry"
)

type fakeSender struct {
	sent []sentPacket
}

type sentPacket struct {
	dst     net.Addr
	payload []any
}

func (s *fakeSender) Send(dst net.Addr, localPort, replyPort uint16, payload []any) error {
	s.sent = append(s.sent, sentPacket{dst: dst, payload: payload})
	return nil
}

func fakeWireMessage(payload []any) wire.WireMessage {
	return wire.WireMessage{
		RemoteAddr: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4000},
		ReplyPort:  4000,
		Message:    payload,
	}
}

func TestHandleInboundLinkReqLinksAndReplies(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())

	pkt := rplc.Make(7, rplc.LinkReq)
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})

	c.HandleInbound(wm, time.Now())

	if !fleet.IsLinked(7) {
		t.Fatal("expected plc 7 to be linked after LINK_REQ")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one reply sent, got %d", len(sender.sent))
	}
}

func TestHandleInboundStatusRecordsTelemetry(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())
	now := time.Now()

	fleet.Link(7, 3*time.Second, now)

	pkt := rplc.Make(7, rplc.Status, true, uint32(5))
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})

	c.HandleInbound(wm, now)

	tel, ok := fleet.Telemetry(7)
	if !ok {
		t.Fatal("expected telemetry recorded")
	}
	if !tel.Scram || tel.IssStatus != 5 {
		t.Fatalf("unexpected telemetry: %+v", tel)
	}
}

func TestHandleInboundStatusFromUnlinkedPeerIgnored(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())

	pkt := rplc.Make(9, rplc.Status, false, uint32(0))
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})

	c.HandleInbound(wm, time.Now())

	if _, ok := fleet.Telemetry(9); ok {
		t.Fatal("expected no telemetry recorded for an unlinked peer")
	}
}

func TestHandleInboundCloseUnlinksPeer(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())
	now := time.Now()
	fleet.Link(7, 3*time.Second, now)

	pkt := mgmt.Make(mgmt.Close, uint32(7))
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})

	c.HandleInbound(wm, now)

	if fleet.IsLinked(7) {
		t.Fatal("expected plc 7 to be unlinked after CLOSE")
	}
}

func TestSendCommandFailsForUnknownPeer(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())

	if err := c.SendCommand(42, rplc.RpsScram); err == nil {
		t.Fatal("expected error relaying a command to an unlinked peer")
	}
}

func TestSendCommandSendsToKnownPeer(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())
	now := time.Now()
	fleet.Link(7, 3*time.Second, now)
	fleet.RecordStatus(7, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4000}, 4000, false, 0, now)

	if err := c.SendCommand(7, rplc.RpsScram); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one packet sent, got %d", len(sender.sent))
	}
}

func TestHandleInboundRTUAdvertRecordsCapabilities(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())

	adv := rtu.Advert{rtu.Boiler, rtu.BoilerValve}
	pkt := mgmt.Make(mgmt.RTUAdvert, adv.Encode()...)
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})

	c.HandleInbound(wm, time.Now())

	infos := fleet.RTUCapabilities()
	if len(infos) != 1 {
		t.Fatalf("expected one RTU gateway tracked, got %d", len(infos))
	}
	if len(infos[0].Capability) != 2 || infos[0].Capability[1] != rtu.BoilerValve {
		t.Fatalf("unexpected capabilities: %+v", infos[0].Capability)
	}
}

func TestHandleInboundRTUAdvertRejectsUnknownCapability(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())

	pkt := mgmt.Make(mgmt.RTUAdvert, uint8(250))
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})

	c.HandleInbound(wm, time.Now())

	if len(fleet.RTUCapabilities()) != 0 {
		t.Fatal("expected no capabilities recorded for an invalid advert")
	}
}

func TestEventsChannelReceivesLinkEvent(t *testing.T) {
	fleet := registry.New(zap.NewNop())
	sender := &fakeSender{}
	c := New(fleet, sender, zap.NewNop())

	pkt := rplc.Make(7, rplc.LinkReq)
	f := pkt.Frame(1)
	wm := fakeWireMessage([]any{f.SeqNum(), uint8(f.Protocol()), f.Data()})
	c.HandleInbound(wm, time.Now())

	select {
	case ev := <-c.Events():
		if ev.Kind != EventLinked || ev.PlcID != 7 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected a link event on the events channel")
	}
}
