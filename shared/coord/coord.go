// Package coord defines the wire shape of the two Coordinator protocols,
// COORD_DATA and COORD_API. Their sub-type enums are not defined anywhere in
// the material available for this link: an implementer must either fill
// them in from the Coordinator side of the codebase or leave these
// protocols unreachable, and must not guess the wire layout.
//
// This repository leaves them unreachable. Decode always reports invalid,
// regardless of sub-type, so a peer cannot accidentally treat a guessed
// layout as canonical. The frame codec (package wire) still recognizes
// CoordData and CoordAPI as valid protocol tags — only sub-type decoding is
// left undefined.
package coord

import "github.com/reactorfleet/scada-core/shared/wire"

// Packet is always invalid — see package doc.
type Packet struct {
	valid bool
}

// Decode always returns an invalid packet, whatever the frame carries. It
// checks only the protocol tag; the payload shape is not inspected.
func Decode(f wire.Frame) Packet {
	if f.Protocol() != wire.CoordData && f.Protocol() != wire.CoordAPI {
		return Packet{}
	}
	// Sub-type validity is undefined — unconditionally invalid even for
	// well-shaped frames.
	return Packet{valid: false}
}

func (p Packet) Valid() bool { return p.valid }
