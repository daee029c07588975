package websocket

import (
	"strconv"
	"strings"
)

// Topic identifies one pub/sub subscription. Unlike the teacher's server,
// which keys subscriptions on an opaque string (a job uuid, an agent uuid,
// a user id), this hub's subscribers are always scoped to the fleet: either
// every reactor PLC (the catch-all) or one specific plc_id. Modeling that as
// a small value type rather than a bare string keeps Hub/Client from being
// able to register a subscription to something that isn't actually a PLC.
type Topic struct {
	plcID  uint32
	scoped bool
}

// AllFleet is the catch-all topic: every link/unlink/status/alarm event and
// periodic fleet.snapshot across the whole fleet. It is Topic's zero value,
// so an unset Topic field never silently means "scoped to plc_id 0".
func AllFleet() Topic { return Topic{} }

// PlcTopic scopes a subscription to one reactor's events only.
func PlcTopic(plcID uint32) Topic { return Topic{plcID: plcID, scoped: true} }

// String renders the wire form of the topic: "fleet" for the catch-all,
// "fleet:<plc_id>" for a scoped subscription.
func (t Topic) String() string {
	if !t.scoped {
		return "fleet"
	}
	return "fleet:" + strconv.FormatUint(uint64(t.plcID), 10)
}

// ParseTopic parses the wire form a client's `topics` query parameter uses.
// Anything that isn't exactly "fleet" or "fleet:<plc_id>" falls back to
// AllFleet, so a typo degrades to the firehose rather than silent loss of
// events — the same fail-open choice the REST side makes for an absent
// `topics` parameter.
func ParseTopic(s string) Topic {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "fleet:")
	if !ok {
		return AllFleet()
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return AllFleet()
	}
	return PlcTopic(uint32(id))
}
