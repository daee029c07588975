// Package websocket implements the real-time pub/sub hub that pushes fleet
// events to connected operator consoles. It uses gorilla/websocket under the
// hood and exposes a topic-based broadcast API consumed by cmd/supervisor's
// event relay and supervisor/housekeep; see Topic for the subscription
// vocabulary.
package websocket

// MessageType identifies the kind of event carried by a Message.
// The operator console uses this field to route the payload to the correct
// store update.
type MessageType string

const (
	// MsgPlcLinked is sent when a PLC completes the LINK_REQ handshake.
	MsgPlcLinked MessageType = "plc.linked"

	// MsgPlcUnlinked is sent when a PLC's session ends, whether by CLOSE or
	// by watchdog expiry.
	MsgPlcUnlinked MessageType = "plc.unlinked"

	// MsgPlcStatus is sent on every STATUS telemetry update from a linked
	// PLC, carrying its scram flag and ISS status bitfield.
	MsgPlcStatus MessageType = "plc.status"

	// MsgPlcAlarm is sent on an RPS_ALARM — an ISS rising edge reported by a
	// PLC. Exactly one per trip episode, matching the PLC-side first_trip
	// gating.
	MsgPlcAlarm MessageType = "plc.alarm"

	// MsgFleetSnapshot is sent periodically (see supervisor/housekeep) with a
	// snapshot of every linked PLC that has reported STATUS, letting a freshly
	// connected console populate its view without waiting for individual
	// events to arrive.
	MsgFleetSnapshot MessageType = "fleet.snapshot"
)

// Message is the envelope for every WebSocket frame sent to clients.
// The operator console deserializes this struct and dispatches on Type.
//
// JSON example:
//
//	{"type":"plc.status","topic":"fleet","payload":{"plc_id":3,"scram":false,"iss_status":0}}
type Message struct {
	// Type identifies the kind of event so the client can route it correctly.
	Type MessageType `json:"type"`

	// Topic is the pub/sub channel this message was published on.
	Topic string `json:"topic"`

	// Payload carries the event-specific data. The shape varies by Type:
	//   - plc.linked/unlinked: {"plc_id":3}
	//   - plc.status:          {"plc_id":3,"scram":false,"iss_status":0}
	//   - plc.alarm:           {"plc_id":3,"iss_status":5}
	//   - fleet.snapshot:      {"plcs":[{"plc_id":3,"scram":false,...}]}
	Payload any `json:"payload"`
}
