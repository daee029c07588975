package coord

import (
	"testing"

	"github.com/reactorfleet/scada-core/shared/wire"
)

func TestDecodeAlwaysInvalid(t *testing.T) {
	cases := []wire.Frame{
		wire.Make(1, wire.CoordData, []any{uint8(0), "anything"}),
		wire.Make(1, wire.CoordAPI, []any{uint8(1)}),
	}
	for _, f := range cases {
		if Decode(f).Valid() {
			t.Fatalf("expected coord decode to always be invalid, got valid for %v", f.Protocol())
		}
	}
}

func TestDecodeWrongProtocolInvalid(t *testing.T) {
	f := wire.Make(1, wire.RPLC, []any{uint8(0)})
	if Decode(f).Valid() {
		t.Fatal("expected invalid for non-coord protocol")
	}
}
