package wire

import "net"

// Frame is the unit of transmission on the modem network: a monotone
// per-sender sequence number, a protocol tag, and an opaque payload that the
// codec never interprets — decoding the payload further is the job of the
// protocol packages (rplc, mgmt, modbus, coord).
//
// Frames exist only for the duration of one send or one receive — nothing
// here is retained across calls.
type Frame struct {
	seqNum   uint32
	protocol ProtocolTag
	data     []any
}

// Make constructs a frame. payload is an ordered sequence of fields specific
// to the protocol tag (e.g. for RPLC: [plc_id, rplc_type, fields...]).
func Make(seq uint32, protocol ProtocolTag, payload []any) Frame {
	return Frame{seqNum: seq, protocol: protocol, data: payload}
}

// SeqNum returns the frame's sequence number.
func (f Frame) SeqNum() uint32 { return f.seqNum }

// Protocol returns the frame's protocol tag.
func (f Frame) Protocol() ProtocolTag { return f.protocol }

// Length returns the number of fields in the payload.
func (f Frame) Length() int { return len(f.data) }

// Data returns the raw payload fields. Callers must not mutate the returned
// slice — it is the frame's backing storage, not a copy.
func (f Frame) Data() []any { return f.data }

// WireMessage is what the transport hands the codec on receipt: the local
// interface the message arrived on, the sender's address, the source and
// reply ports, the raw message body, and the radial distance the transport
// measured.
//
// RemoteAddr is the address a reply should be sent to. A node with exactly
// one statically configured peer (a PLC talking to its Supervisor) never
// needs it; a node that accepts links from many dynamically-addressed peers
// (the Supervisor talking to its fleet) cannot address a reply without it,
// since SourcePort alone does not carry the sender's host.
type WireMessage struct {
	LocalIface string
	RemoteAddr net.Addr
	SourcePort uint16
	ReplyPort  uint16
	Message    []any
	Distance   float64
}

// Receive decodes a WireMessage into a Frame. It is valid iff Message is a
// 3-element ordered sequence whose second element is a recognized
// ProtocolTag and whose third element is itself a sequence. Malformed input
// is reported as a boolean result, never as a panic or error value — the
// codec has no throwable error path.
func Receive(wm WireMessage) (Frame, bool) {
	if len(wm.Message) != 3 {
		return Frame{}, false
	}

	seq, ok := asUint32(wm.Message[0])
	if !ok {
		return Frame{}, false
	}

	tag, ok := asProtocolTag(wm.Message[1])
	if !ok || !tag.Valid() {
		return Frame{}, false
	}

	payload, ok := wm.Message[2].([]any)
	if !ok {
		return Frame{}, false
	}

	return Make(seq, tag, payload), true
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
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	default:
		return 0, false
	}
}

func asProtocolTag(v any) (ProtocolTag, bool) {
	switch n := v.(type) {
	case ProtocolTag:
		return n, true
	case uint8:
		return ProtocolTag(n), true
	case int:
		if n < 0 || n > 255 {
			return 0, false
		}
		return ProtocolTag(n), true
	default:
		return 0, false
	}
}
