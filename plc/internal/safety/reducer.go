package safety

// ActionKind tags what an Action asks the caller (Core for scram attempts,
// plc/scheduler for alarms and log lines) to do.
type ActionKind int

const (
	// ActionScramAttempt asks the caller to invoke Reactor.Scram() on the
	// currently attached reactor, if any, and if Reactor.GetStatus() still
	// reports running. Emitted every tick the snapshot is latched, so the
	// reactor is commanded off repeatedly until it confirms.
	ActionScramAttempt ActionKind = iota
	// ActionAlarm asks the caller to emit exactly one RPS_ALARM carrying
	// IssStatus. Only ever produced on an ISS rising edge.
	ActionAlarm
	// ActionLog asks the caller to print Message to the operator console
	// with the "[alert]" prefix.
	ActionLog
	// ActionIssSnapshot carries the IssStatus observed this tick (only
	// emitted on ticks where the ISS was actually consulted), so callers
	// that need it for outbound telemetry don't have to call Iss.Check
	// themselves and disturb its rising-edge tracking.
	ActionIssSnapshot
)

// Action is one item of a tick's outbox.
type Action struct {
	Kind      ActionKind
	IssStatus IssStatus
	Message   string
}

// CommandKind tags a parsed remote command forwarded from plc/comms.
type CommandKind int

const (
	CmdSetBurnRate CommandKind = iota
	CmdEnable
	CmdScram
	CmdReset
)

// RemoteCommand is a single command decoded from an inbound RPLC packet.
// plc/comms owns decoding; safety only sees the semantic result.
type RemoteCommand struct {
	Kind     CommandKind
	BurnRate float64
}

// DispatchKind selects which of the four scheduler events this tick's
// blocking wait returned (peripheral events are drained separately, see
// TickInputs.Peripheral).
type DispatchKind int

const (
	DispatchLoopTick DispatchKind = iota
	DispatchModemMessage
	DispatchWatchdogTimer
	DispatchTerminate
)

// Dispatch is the current tick's primary event.
type Dispatch struct {
	Kind     DispatchKind
	Commands []RemoteCommand // populated only for DispatchModemMessage
}

// TickInputs bundles everything Reduce needs for one tick beyond the
// previous snapshot.
type TickInputs struct {
	Networked  Networked
	Peripheral *PeripheralEvent // drained this tick, or nil
	Dispatch   Dispatch
	Iss        Iss // consulted only when the snapshot is not degraded
}

// Reduce advances prev by exactly one tick, following the fixed order: (2)
// drain a peripheral event, (3) ISS check, (4) dispatch. Step (1) of the
// tick contract — the conditional Reactor.Scram() call — is represented
// here only as an ActionScramAttempt in the outbox; Reduce never touches a
// Reactor handle directly so the latch logic stays testable without one.
func Reduce(prev PlcState, in TickInputs) (next PlcState, outbox []Action) {
	next = prev

	if in.Peripheral != nil {
		switch in.Peripheral.Kind {
		case PeripheralReactor:
			if in.Peripheral.Attached {
				next.NoReactor = false
				// A reactor reattach always begins with scram←true and an
				// immediate attempt on the new handle.
				next.Scram = true
			} else {
				next.NoReactor = true
			}
		case PeripheralModem:
			if in.Peripheral.Attached {
				next.NoModem = false
			} else {
				next.NoModem = true
				if next.InitOK {
					next.Scram = true
				}
			}
		}
		next = recomputeDegraded(next, in.Networked)
	}

	var issTripped, issChecked bool
	if !next.Degraded {
		if in.Iss != nil {
			tripped, status, firstTrip := in.Iss.Check()
			issChecked = true
			issTripped = tripped
			if tripped {
				next.Scram = true
			}
			if firstTrip {
				outbox = append(outbox, Action{Kind: ActionAlarm, IssStatus: status})
			}
			outbox = append(outbox, Action{Kind: ActionIssSnapshot, IssStatus: status})
		}
	} else if next.InitOK {
		// Fail-safe: can't trust a trip reading while blind, so shut down.
		next.Scram = true
	}

	switch in.Dispatch.Kind {
	case DispatchModemMessage:
		for _, cmd := range in.Dispatch.Commands {
			switch cmd.Kind {
			case CmdScram:
				next.Scram = true
			case CmdReset:
				// Only clears if this tick's own ISS check (not the
				// degraded fail-safe path) reported not-tripped.
				if issChecked && !issTripped {
					next.Scram = false
				}
			}
		}
	case DispatchWatchdogTimer:
		next.Scram = true
		outbox = append(outbox, Action{Kind: ActionLog, Message: "server timeout, reactor disabled"})
	case DispatchTerminate:
		next.Scram = true
		outbox = append(outbox, Action{Kind: ActionLog, Message: "terminate requested, exiting"})
	}

	if next.Scram {
		outbox = append(outbox, Action{Kind: ActionScramAttempt})
	}

	return next, outbox
}
