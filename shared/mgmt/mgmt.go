// Package mgmt implements the SCADA_MGMT protocol packet: session
// keep-alives, session close, RTU capability adverts, and link confirmation.
package mgmt

import "github.com/reactorfleet/scada-core/shared/wire"

// Type is the management sub-type tag.
//
// Earlier field notes for this link referenced symbols PING and
// RTU_HEARTBEAT, but no such variants exist in the canonical enum.
// KEEP_ALIVE is the canonical name and the only keep-alive variant here;
// PING and RTU_HEARTBEAT are not carried over anywhere in this repository.
type Type uint8

const (
	KeepAlive    Type = 0
	Close        Type = 1
	RTUAdvert    Type = 2
	RemoteLinked Type = 3
)

func (t Type) Valid() bool {
	return t <= RemoteLinked
}

func (t Type) String() string {
	switch t {
	case KeepAlive:
		return "KEEP_ALIVE"
	case Close:
		return "CLOSE"
	case RTUAdvert:
		return "RTU_ADVERT"
	case RemoteLinked:
		return "REMOTE_LINKED"
	default:
		return "UNKNOWN"
	}
}

// Packet is a decoded (or freshly constructed) management packet.
type Packet struct {
	valid bool
	typ   Type
	body  []any
}

// Make constructs a valid management packet for sending.
func Make(typ Type, body ...any) Packet {
	return Packet{valid: true, typ: typ, body: body}
}

// Decode parses f as a management packet. It requires
// f.Protocol() == wire.ScadaMgmt, f.Length() >= 1, and data[0] to be a
// recognized Type.
func Decode(f wire.Frame) Packet {
	if f.Protocol() != wire.ScadaMgmt {
		return Packet{}
	}
	if f.Length() < 1 {
		return Packet{}
	}

	data := f.Data()
	typ, ok := asType(data[0])
	if !ok || !typ.Valid() {
		return Packet{}
	}

	return Packet{valid: true, typ: typ, body: data[1:]}
}

func (p Packet) Valid() bool { return p.valid }
func (p Packet) Type() Type  { return p.typ }
func (p Packet) Body() []any { return p.body }

// Frame encodes the packet back onto the wire with the given sequence
// number.
func (p Packet) Frame(seq uint32) wire.Frame {
	payload := make([]any, 0, 1+len(p.body))
	payload = append(payload, uint8(p.typ))
	payload = append(payload, p.body...)
	return wire.Make(seq, wire.ScadaMgmt, payload)
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
