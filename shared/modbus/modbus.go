// Package modbus implements the MODBUS_TCP-style protocol packet used by RTU
// gateways to talk to local peripherals. The core treats it as an opaque
// wire shape — the gateway-side field semantics (device driver adapters)
// are outside this repository.
package modbus

import "github.com/reactorfleet/scada-core/shared/wire"

// Packet is a decoded (or freshly constructed) MODBUS_TCP packet.
type Packet struct {
	valid    bool
	txnID    uint32
	unitID   uint32
	funcCode uint32
	data     []any
}

// Make constructs a valid MODBUS_TCP packet for sending.
func Make(txnID, unitID, funcCode uint32, data ...any) Packet {
	return Packet{valid: true, txnID: txnID, unitID: unitID, funcCode: funcCode, data: data}
}

// Decode parses f as a MODBUS_TCP packet. It requires
// f.Protocol() == wire.ModbusTCP and f.Length() >= 3.
func Decode(f wire.Frame) Packet {
	if f.Protocol() != wire.ModbusTCP {
		return Packet{}
	}
	if f.Length() < 3 {
		return Packet{}
	}

	fields := f.Data()
	txnID, ok1 := asUint32(fields[0])
	unitID, ok2 := asUint32(fields[1])
	funcCode, ok3 := asUint32(fields[2])
	if !ok1 || !ok2 || !ok3 {
		return Packet{}
	}

	return Packet{valid: true, txnID: txnID, unitID: unitID, funcCode: funcCode, data: fields[3:]}
}

func (p Packet) Valid() bool      { return p.valid }
func (p Packet) TxnID() uint32    { return p.txnID }
func (p Packet) UnitID() uint32   { return p.unitID }
func (p Packet) FuncCode() uint32 { return p.funcCode }
func (p Packet) Data() []any      { return p.data }

// Frame encodes the packet back onto the wire with the given sequence
// number.
func (p Packet) Frame(seq uint32) wire.Frame {
	payload := make([]any, 0, 3+len(p.data))
	payload = append(payload, p.txnID, p.unitID, p.funcCode)
	payload = append(payload, p.data...)
	return wire.Make(seq, wire.ModbusTCP, payload)
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
