package modbus

import (
	"testing"

	"github.com/reactorfleet/scada-core/shared/wire"
)

func TestDecodeRoundTrip(t *testing.T) {
	p := Make(1, 2, 3, "extra")
	got := Decode(p.Frame(5))
	if !got.Valid() || got.TxnID() != 1 || got.UnitID() != 2 || got.FuncCode() != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeMinimumLength(t *testing.T) {
	f := wire.Make(1, wire.ModbusTCP, []any{uint32(1), uint32(2), uint32(3)})
	if !Decode(f).Valid() {
		t.Fatal("expected valid at minimum length 3")
	}
}

func TestDecodeTwoFieldsInvalid(t *testing.T) {
	f := wire.Make(1, wire.ModbusTCP, []any{uint32(1), uint32(2)})
	if Decode(f).Valid() {
		t.Fatal("expected invalid below minimum length")
	}
}

func TestDecodeWrongProtocol(t *testing.T) {
	f := wire.Make(1, wire.RPLC, []any{uint32(1), uint32(2), uint32(3)})
	if Decode(f).Valid() {
		t.Fatal("expected invalid for wrong protocol tag")
	}
}
