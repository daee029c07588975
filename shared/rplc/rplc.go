// Package rplc implements the RPLC protocol packet: the reactor PLC control
// protocol exchanged between a PLC and the Supervisor.
package rplc

import (
	"github.com/reactorfleet/scada-core/shared/wire"
)

// Type is the RPLC sub-type tag.
type Type uint8

const (
	LinkReq     Type = 0
	Status      Type = 1
	MekStruct   Type = 2
	MekBurnRate Type = 3
	RpsEnable   Type = 4
	RpsScram    Type = 5
	RpsStatus   Type = 6
	RpsAlarm    Type = 7
	RpsReset    Type = 8
	KeepAlive   Type = 9
)

func (t Type) Valid() bool {
	return t <= KeepAlive
}

func (t Type) String() string {
	switch t {
	case LinkReq:
		return "LINK_REQ"
	case Status:
		return "STATUS"
	case MekStruct:
		return "MEK_STRUCT"
	case MekBurnRate:
		return "MEK_BURN_RATE"
	case RpsEnable:
		return "RPS_ENABLE"
	case RpsScram:
		return "RPS_SCRAM"
	case RpsStatus:
		return "RPS_STATUS"
	case RpsAlarm:
		return "RPS_ALARM"
	case RpsReset:
		return "RPS_RESET"
	case KeepAlive:
		return "KEEP_ALIVE"
	default:
		return "UNKNOWN"
	}
}

// LinkResult is the Supervisor's reply to a LINK_REQ.
type LinkResult uint8

const (
	Allow     LinkResult = 0
	Deny      LinkResult = 1
	Collision LinkResult = 2
)

// Packet is a decoded (or freshly constructed) RPLC packet.
//
// A packet that failed to decode has every field at its zero value —
// callers must check Valid first.
type Packet struct {
	valid bool
	id    uint32
	typ   Type
	body  []any
}

// Make constructs a valid RPLC packet for sending.
func Make(id uint32, typ Type, body ...any) Packet {
	return Packet{valid: true, id: id, typ: typ, body: body}
}

// Decode parses f as an RPLC packet. It requires f.Protocol() == wire.RPLC,
// f.Length() >= 2, and data[1] to be a recognized Type.
func Decode(f wire.Frame) Packet {
	if f.Protocol() != wire.RPLC {
		return Packet{}
	}
	if f.Length() < 2 {
		return Packet{}
	}

	data := f.Data()
	id, ok := asUint32(data[0])
	if !ok {
		return Packet{}
	}

	typ, ok := asType(data[1])
	if !ok || !typ.Valid() {
		return Packet{}
	}

	return Packet{valid: true, id: id, typ: typ, body: data[2:]}
}

// Valid reports whether the packet was constructed or successfully decoded.
func (p Packet) Valid() bool { return p.valid }

// PlcID returns the id field (the plc_id this packet is addressed to or
// originated from).
func (p Packet) PlcID() uint32 { return p.id }

// Type returns the RPLC sub-type.
func (p Packet) Type() Type { return p.typ }

// Body returns the sub-type-specific trailing fields.
func (p Packet) Body() []any { return p.body }

// Frame encodes the packet back onto the wire with the given sequence
// number.
func (p Packet) Frame(seq uint32) wire.Frame {
	payload := make([]any, 0, 2+len(p.body))
	payload = append(payload, p.id, uint8(p.typ))
	payload = append(payload, p.body...)
	return wire.Make(seq, wire.RPLC, payload)
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

func asType(v any) (Type, bool) {
	switch n := v.(type) {
	case Type:
		return n, true
	case uint8:
		return Type(n), true
	case int:
		if n < 0 || n > 255 {
			return 0, false
		}
		return Type(n), true
	default:
		return 0, false
	}
}
