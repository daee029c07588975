package session

import "time"

// Session holds per-peer protocol state: link status, sequence tracking,
// RTT estimate, and the watchdog guarding liveness. Created on
// first successful LINK_REQ exchange; destroyed on CLOSE, watchdog timeout,
// or explicit unlink.
type Session struct {
	PeerID      string
	Linked      bool
	LastRxAt    time.Time
	RTTMillis   float64
	seqExpected uint32
	seqSeen     bool
	Watchdog    *Watchdog
}

// New creates a Session for peerID with a watchdog of the given duration.
// The session starts unlinked; callers set Linked = true once the
// link/link-confirm handshake completes.
func New(peerID string, watchdogDuration time.Duration) *Session {
	return &Session{
		PeerID:   peerID,
		Watchdog: NewWatchdog(watchdogDuration),
	}
}

// AcceptSeq reports whether seq should be processed: true if it is the
// first sequence number seen, or strictly greater than the highest seen so
// far. Strictly-lower reruns are silently dropped once linked.
// On acceptance, the session's high-water mark advances to seq.
func (s *Session) AcceptSeq(seq uint32) bool {
	if !s.seqSeen {
		s.seqSeen = true
		s.seqExpected = seq
		return true
	}
	if seq <= s.seqExpected {
		return false
	}
	s.seqExpected = seq
	return true
}

// Touch records that a valid packet arrived from the peer at now, feeding
// the watchdog and updating the RTT estimate from the round-trip implied by
// sentAt (the local send time this packet is presumed to be answering).
// sentAt may be the zero time if no RTT sample is available this tick.
func (s *Session) Touch(now time.Time, sentAt time.Time) {
	s.LastRxAt = now
	s.Watchdog.Feed(now)
	if !sentAt.IsZero() && now.After(sentAt) {
		s.RTTMillis = float64(now.Sub(sentAt).Microseconds()) / 1000.0
	}
}
