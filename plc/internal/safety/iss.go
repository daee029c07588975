package safety

import "strings"

// IssStatus is a bitfield of trip causes reported by the Independent Safety
// System. Multiple causes may be set simultaneously.
type IssStatus uint16

const (
	DamageCrit IssStatus = 1 << iota
	TempCrit
	NoCoolant
	ExWaste
	ExHCoolant
	NoFuel
	Fault
	Timeout
	Manual
)

// Has reports whether cause is set in the status.
func (s IssStatus) Has(cause IssStatus) bool { return s&cause != 0 }

// String renders the set causes joined with '|', or "NONE" if empty.
func (s IssStatus) String() string {
	if s == 0 {
		return "NONE"
	}
	names := []struct {
		bit  IssStatus
		name string
	}{
		{DamageCrit, "DAMAGE_CRIT"},
		{TempCrit, "TEMP_CRIT"},
		{NoCoolant, "NO_COOLANT"},
		{ExWaste, "EX_WASTE"},
		{ExHCoolant, "EX_HCOOLANT"},
		{NoFuel, "NO_FUEL"},
		{Fault, "FAULT"},
		{Timeout, "TIMEOUT"},
		{Manual, "MANUAL"},
	}
	var parts []string
	for _, n := range names {
		if s.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Iss is the Independent Safety System's trip evaluator. Check is called at
// most once per tick, and only when the node is not degraded — a degraded
// node cannot trust its sensor readings enough to ask.
type Iss interface {
	// Check reports whether the ISS is presently tripped, the full cause
	// bitfield, and whether this is the rising edge from not-tripped to
	// tripped. firstTrip is true on at most one Check call per trip episode
	// and is what gates the single RPS_ALARM emission.
	Check() (tripped bool, status IssStatus, firstTrip bool)
}

// TimeoutTripper is an optional capability an Iss implementation can offer
// so the watchdog-expiry path (owned by plc/scheduler, not this package) can
// fold a TIMEOUT cause into the ISS's next Check without this package
// reaching into simulated-world wiring it has no business touching.
type TimeoutTripper interface {
	TripTimeout()
}

// LatchedIss is a reference Iss that trips manually and tracks the rising
// edge for callers (tests, simulators) that don't need real sensor wiring.
type LatchedIss struct {
	tripped bool
	status  IssStatus
	wasUp   bool
}

// Trip sets the current trip state and cause bitfield for the next Check.
func (l *LatchedIss) Trip(tripped bool, status IssStatus) {
	l.tripped = tripped
	l.status = status
}

// TripTimeout ORs the TIMEOUT cause into the current trip state.
func (l *LatchedIss) TripTimeout() {
	l.tripped = true
	l.status |= Timeout
}

func (l *LatchedIss) Check() (bool, IssStatus, bool) {
	first := l.tripped && !l.wasUp
	l.wasUp = l.tripped
	return l.tripped, l.status, first
}
