// Package wire implements the SCADA frame codec: the single framing layer
// shared by every protocol carried over the modem network (MODBUS_TCP,
// RPLC, SCADA_MGMT, COORD_DATA, COORD_API).
//
// A frame is a 3-element ordered sequence [seq_num, protocol_tag, payload].
// The codec never interprets payload — it only validates shape and exposes
// accessors. Each protocol package (rplc, mgmt, modbus, coord) decodes the
// payload further.
package wire

import "fmt"

// ProtocolTag identifies which payload protocol a frame carries.
type ProtocolTag uint8

const (
	ModbusTCP ProtocolTag = 0
	RPLC      ProtocolTag = 1
	ScadaMgmt ProtocolTag = 2
	CoordData ProtocolTag = 3
	CoordAPI  ProtocolTag = 4
)

// String implements fmt.Stringer for log lines.
func (p ProtocolTag) String() string {
	switch p {
	case ModbusTCP:
		return "MODBUS_TCP"
	case RPLC:
		return "RPLC"
	case ScadaMgmt:
		return "SCADA_MGMT"
	case CoordData:
		return "COORD_DATA"
	case CoordAPI:
		return "COORD_API"
	default:
		return fmt.Sprintf("ProtocolTag(%d)", uint8(p))
	}
}

// Valid reports whether p is one of the recognized protocol tags.
func (p ProtocolTag) Valid() bool {
	switch p {
	case ModbusTCP, RPLC, ScadaMgmt, CoordData, CoordAPI:
		return true
	default:
		return false
	}
}
