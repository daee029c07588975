package comms

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/plc/internal/safety"
	"github.com/reactorfleet/scada-core/shared/mgmt"
	"github.com/reactorfleet/scada-core/shared/rplc"
	"github.com/reactorfleet/scada-core/shared/wire"
)

type fakeSender struct {
	sent [][]any
}

func (f *fakeSender) Send(dst net.Addr, localPort, replyPort uint16, payload []any) error {
	f.sent = append(f.sent, payload)
	return nil
}

func testAddr() net.Addr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}
}

func TestSendsLinkReqWhileUnlinked(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())

	c.Tick(safety.PlcState{}, 0, time.Now())

	if len(sender.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.sent))
	}
	payload := sender.sent[0]
	if payload[1] != uint8(wire.RPLC) {
		t.Fatalf("protocol tag = %v, want RPLC", payload[1])
	}
}

func TestSendsStatusOnceLinked(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())

	linkedFrame := mgmt.Make(mgmt.RemoteLinked, uint32(7)).Frame(1)
	c.HandleInbound(linkedFrame, time.Now())
	if !c.IsLinked() {
		t.Fatal("expected session to be linked after remote_linked")
	}

	c.Tick(safety.PlcState{Scram: true}, safety.TempCrit, time.Now())
	if len(sender.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.sent))
	}
}

func TestRemoteLinkedForOtherPlcIdIgnored(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())

	frame := mgmt.Make(mgmt.RemoteLinked, uint32(99)).Frame(1)
	c.HandleInbound(frame, time.Now())

	if c.IsLinked() {
		t.Fatal("must not link on a remote_linked addressed to a different plc_id")
	}
}

func TestRplcWrongPlcIdRejected(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())
	c.HandleInbound(mgmt.Make(mgmt.RemoteLinked, uint32(7)).Frame(1), time.Now())

	cmds := c.HandleInbound(rplc.Make(99, rplc.RpsScram).Frame(2), time.Now())
	if cmds != nil {
		t.Fatal("expected no commands for a packet addressed to a different plc_id")
	}
}

func TestRpsScramProducesScramCommandAndMarksScrammed(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())
	c.HandleInbound(mgmt.Make(mgmt.RemoteLinked, uint32(7)).Frame(1), time.Now())

	cmds := c.HandleInbound(rplc.Make(7, rplc.RpsScram).Frame(2), time.Now())
	if len(cmds) != 1 || cmds[0].Kind != safety.CmdScram {
		t.Fatalf("got %v, want one CmdScram", cmds)
	}
	if !c.IsScrammed() {
		t.Fatal("expected IsScrammed to report true after RPS_SCRAM")
	}
}

func TestRpsResetClearsScrammedAndProducesResetCommand(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())
	c.HandleInbound(mgmt.Make(mgmt.RemoteLinked, uint32(7)).Frame(1), time.Now())
	c.HandleInbound(rplc.Make(7, rplc.RpsScram).Frame(2), time.Now())

	cmds := c.HandleInbound(rplc.Make(7, rplc.RpsReset).Frame(3), time.Now())
	if len(cmds) != 1 || cmds[0].Kind != safety.CmdReset {
		t.Fatalf("got %v, want one CmdReset", cmds)
	}
	if c.IsScrammed() {
		t.Fatal("expected IsScrammed to clear after RPS_RESET")
	}
}

func TestSeqRerunDroppedAfterLinking(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())
	c.HandleInbound(mgmt.Make(mgmt.RemoteLinked, uint32(7)).Frame(5), time.Now())

	cmds := c.HandleInbound(rplc.Make(7, rplc.RpsScram).Frame(3), time.Now())
	if cmds != nil {
		t.Fatal("expected a strictly-lower sequence number to be silently dropped")
	}
}

func TestCloseUnlinks(t *testing.T) {
	sender := &fakeSender{}
	c := New(7, sender, testAddr(), 4000, 4001, zap.NewNop())
	c.HandleInbound(mgmt.Make(mgmt.RemoteLinked, uint32(7)).Frame(1), time.Now())
	if !c.IsLinked() {
		t.Fatal("precondition: expected to be linked")
	}

	c.HandleInbound(mgmt.Make(mgmt.Close).Frame(2), time.Now())
	if c.IsLinked() {
		t.Fatal("expected CLOSE to unlink the session")
	}
}
