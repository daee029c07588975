package registry

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/shared/rtu"
)

func TestFleetLinkAndUnlink(t *testing.T) {
	f := New(zap.NewNop())
	now := time.Now()

	f.Link(7, 3*time.Second, now)
	if !f.IsLinked(7) {
		t.Fatal("expected plc 7 to be linked")
	}
	if f.Count() != 1 {
		t.Fatalf("count = %d, want 1", f.Count())
	}

	f.Unlink(7)
	if f.IsLinked(7) {
		t.Fatal("expected plc 7 to be unlinked")
	}
}

func TestFleetRecordStatusAndTelemetry(t *testing.T) {
	f := New(zap.NewNop())
	now := time.Now()
	f.Link(3, 3*time.Second, now)

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4000}
	f.RecordStatus(3, addr, 4001, true, 5, now)

	tel, ok := f.Telemetry(3)
	if !ok {
		t.Fatal("expected telemetry for plc 3")
	}
	if !tel.Scram || tel.IssStatus != 5 || tel.ReplyPort != 4001 {
		t.Fatalf("unexpected telemetry: %+v", tel)
	}
}

func TestFleetUnlinkDiscardsTelemetry(t *testing.T) {
	f := New(zap.NewNop())
	now := time.Now()
	f.Link(3, 3*time.Second, now)
	f.RecordStatus(3, &net.UDPAddr{}, 4001, false, 0, now)

	f.Unlink(3)

	if _, ok := f.Telemetry(3); ok {
		t.Fatal("expected telemetry to be discarded on unlink")
	}
}

func TestFleetReapExpired(t *testing.T) {
	f := New(zap.NewNop())
	now := time.Now()
	f.Link(1, time.Second, now)
	f.RecordStatus(1, &net.UDPAddr{}, 4000, false, 0, now)

	reaped := f.ReapExpired(now.Add(2 * time.Second))
	if len(reaped) != 1 || reaped[0] != 1 {
		t.Fatalf("expected plc 1 reaped, got %v", reaped)
	}
	if _, ok := f.Telemetry(1); ok {
		t.Fatal("expected telemetry discarded on reap")
	}
}

func TestFleetSnapshotIndependentOfMutation(t *testing.T) {
	f := New(zap.NewNop())
	now := time.Now()
	f.Link(1, time.Second, now)
	f.RecordStatus(1, &net.UDPAddr{}, 4000, false, 0, now)

	snap := f.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(snap))
	}

	f.Unlink(1)
	if len(snap) != 1 {
		t.Fatal("snapshot slice header should be unaffected by later mutation")
	}
}

func TestFleetRecordRTUAdvertReplacesPrior(t *testing.T) {
	f := New(zap.NewNop())
	now := time.Now()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4100}

	f.RecordRTUAdvert(addr, rtu.Advert{rtu.Boiler}, now)
	f.RecordRTUAdvert(addr, rtu.Advert{rtu.Turbine, rtu.TurbineValve}, now.Add(time.Second))

	infos := f.RTUCapabilities()
	if len(infos) != 1 {
		t.Fatalf("expected one RTU gateway tracked, got %d", len(infos))
	}
	if len(infos[0].Capability) != 2 || infos[0].Capability[0] != rtu.Turbine {
		t.Fatalf("expected latest advert to replace prior, got %+v", infos[0].Capability)
	}
}

func TestFleetRecordRTUAdvertIgnoresNilAddr(t *testing.T) {
	f := New(zap.NewNop())
	f.RecordRTUAdvert(nil, rtu.Advert{rtu.Boiler}, time.Now())
	if len(f.RTUCapabilities()) != 0 {
		t.Fatal("expected nil addr to be ignored")
	}
}
