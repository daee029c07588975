// Package safety holds the PLC's latching SCRAM state machine: the
// Independent Safety System (ISS) trip check, peripheral attach/detach
// reconciliation, and the ordered per-tick reducer that ties them together.
//
// PlcState is modeled as an immutable snapshot: Reduce takes the previous
// snapshot and this tick's inputs and returns the next snapshot plus an
// outbox of actions for Core and plc/scheduler to carry out. This makes the
// "once latched, stays latched until an explicit reset clears it" rule
// directly testable without standing up a reactor handle or a clock.
package safety

import "fmt"

// PlcState is a point-in-time snapshot of the PLC's safety posture.
type PlcState struct {
	// InitOK is true once the boot sequence has completed.
	InitOK bool
	// Scram is the latching emergency-stop flag. Once true it stays true
	// until a remote RPS_RESET arrives on a tick where the ISS reports
	// not-tripped.
	Scram bool
	// Degraded is true iff a required peripheral is missing:
	// Degraded == NoReactor || (Networked && NoModem).
	Degraded bool
	NoReactor bool
	NoModem   bool
}

// Networked reports whether this snapshot was produced for a networked node
// (NETWORKED=true in node configuration). Degraded's modem term only
// applies when Networked; kept alongside the snapshot so Reduce can
// recompute Degraded without an extra parameter threaded through every
// call site.
type Networked bool

// Boot returns the snapshot a node starts in, given whether the reactor and
// modem were already attached at process startup. Startup itself (reading
// configuration, opening peripheral handles) happens synchronously before
// Boot is called, so the returned snapshot always has InitOK set — Boot
// marks the instant that sequence finished. Cold boot always starts
// latched: the reactor is only commanded on by an explicit operator action
// afterward.
func Boot(hasReactor, hasModem bool, networked Networked) PlcState {
	s := PlcState{
		InitOK:    true,
		Scram:     true,
		NoReactor: !hasReactor,
		NoModem:   !hasModem,
	}
	return recomputeDegraded(s, networked)
}

func (s PlcState) String() string {
	return fmt.Sprintf("PlcState{init_ok=%v scram=%v degraded=%v no_reactor=%v no_modem=%v}",
		s.InitOK, s.Scram, s.Degraded, s.NoReactor, s.NoModem)
}

// recomputeDegraded applies the invariant degraded ⇔ (no_reactor ∨
// (networked ∧ no_modem)).
func recomputeDegraded(s PlcState, networked Networked) PlcState {
	s.Degraded = s.NoReactor || (bool(networked) && s.NoModem)
	return s
}
