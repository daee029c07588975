package safety

import "go.uber.org/zap"

// Core is the impure shell around Reduce: it owns the currently attached
// Reactor handle, feeds Reduce the previous snapshot each tick, and carries
// out the outbox Reduce returns. It is the only thing in this package that
// ever calls into a Reactor.
//
// Core is not safe for concurrent use — it is designed to be driven by
// exactly one goroutine, the tick scheduler.
type Core struct {
	state         PlcState
	reactor       Reactor
	lastIssStatus IssStatus
	logger        *zap.Logger
}

// NewCore creates a Core already past boot, with reactor as the initially
// attached handle (nil if none).
func NewCore(hasModem bool, networked Networked, reactor Reactor, logger *zap.Logger) *Core {
	return &Core{
		state:   Boot(reactor != nil, hasModem, networked),
		reactor: reactor,
		logger:  logger.Named("safety"),
	}
}

// State returns the current snapshot.
func (c *Core) State() PlcState { return c.state }

// LastIssStatus returns the IssStatus observed on the most recent tick that
// actually consulted the ISS (i.e. the node was not degraded). It holds its
// previous value on degraded ticks, since no fresh reading exists.
func (c *Core) LastIssStatus() IssStatus { return c.lastIssStatus }

// Tick advances the core by one tick, applying in to the current snapshot
// and carrying out the resulting outbox. It returns the outbox so the caller
// (plc/scheduler) can translate ActionAlarm/ActionLog into wire sends and
// console lines — Core itself only ever touches the Reactor handle.
func (c *Core) Tick(in TickInputs) []Action {
	if in.Peripheral != nil && in.Peripheral.Kind == PeripheralReactor {
		if in.Peripheral.Attached {
			c.reactor = in.Peripheral.Reactor
		} else {
			c.reactor = nil
		}
	}

	next, outbox := Reduce(c.state, in)
	c.state = next

	for _, a := range outbox {
		switch a.Kind {
		case ActionIssSnapshot:
			c.lastIssStatus = a.IssStatus
		case ActionScramAttempt:
			if c.reactor == nil || !c.reactor.GetStatus() {
				continue
			}
			if err := c.reactor.Scram(); err != nil {
				c.logger.Debug("scram call failed on stale or detached handle, retrying next tick",
					zap.Error(err))
			}
		}
	}

	return outbox
}
