// Package scheduler runs the PLC's tick loop: a single-threaded cooperative
// scheduler with exactly one suspension point per iteration. Every state
// mutation to the safety core happens on this goroutine; nothing else is
// allowed to touch it.
package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/reactorfleet/scada-core/plc/internal/comms"
	"github.com/reactorfleet/scada-core/plc/internal/safety"
	"github.com/reactorfleet/scada-core/shared/transport"
	"github.com/reactorfleet/scada-core/shared/wire"
)

const loopPeriod = 50 * time.Millisecond

// PeripheralEvent is a device attach/detach notification delivered to the
// scheduler from outside this package (a peripheral manager, simulated-world
// hook, or test harness).
type PeripheralEvent = safety.PeripheralEvent

// Scheduler owns the safety core, the comms link, and the transport
// connection, and drives them all from one select loop.
type Scheduler struct {
	core       *safety.Core
	comms      *comms.Comms
	conn       *transport.Conn
	iss        safety.Iss
	networked  safety.Networked
	peripheral chan safety.PeripheralEvent
	terminate  chan struct{}
	logger     *zap.Logger
}

// New creates a Scheduler. conn may be nil in tests that never exercise the
// modem_message path.
func New(core *safety.Core, c *comms.Comms, conn *transport.Conn, iss safety.Iss, networked safety.Networked, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		core:       core,
		comms:      c,
		conn:       conn,
		iss:        iss,
		networked:  networked,
		peripheral: make(chan safety.PeripheralEvent, 8),
		terminate:  make(chan struct{}),
		logger:     logger.Named("scheduler"),
	}
}

// Peripheral returns the channel callers use to report attach/detach
// events. Sends may block briefly if the scheduler is between ticks; the
// channel is buffered so a burst of events doesn't stall the reporter.
func (s *Scheduler) Peripheral() chan<- safety.PeripheralEvent { return s.peripheral }

// Terminate requests a clean shutdown: one final SCRAM attempt, then Run
// returns.
func (s *Scheduler) Terminate() {
	close(s.terminate)
}

// Run drives the loop until Terminate is called or conn's error channel
// reports a fatal transport failure. Every iteration is one blocking wait
// followed by the fixed-order reaction documented on safety.Reduce.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(loopPeriod)
	defer ticker.Stop()

	var messages <-chan wire.WireMessage
	var errs <-chan error
	if s.conn != nil {
		messages = s.conn.Messages()
		errs = s.conn.Errors()
	}

	for {
		select {
		case now := <-ticker.C:
			s.runLoopTick(now)

		case wm := <-messages:
			s.runModemMessage(wm)

		case err := <-errs:
			s.logger.Error("transport failed, terminating", zap.Error(err))
			s.runTerminate()
			return

		case ev := <-s.peripheral:
			s.runPeripheral(ev)

		case <-s.terminate:
			s.runTerminate()
			return
		}
	}
}

func (s *Scheduler) runLoopTick(now time.Time) {
	dispatch := safety.Dispatch{Kind: safety.DispatchLoopTick}
	if _, firstFire := s.watchdogCheck(now); firstFire {
		dispatch = safety.Dispatch{Kind: safety.DispatchWatchdogTimer}
		if tt, ok := s.iss.(safety.TimeoutTripper); ok {
			tt.TripTimeout()
		}
	}

	s.react(nil, dispatch)

	if dispatch.Kind == safety.DispatchWatchdogTimer {
		s.comms.Unlink()
		s.logger.Warn("server timeout, reactor disabled")
		return
	}
	s.comms.Tick(s.core.State(), s.core.LastIssStatus(), now)
}

func (s *Scheduler) runModemMessage(wm wire.WireMessage) {
	f, ok := wire.Receive(wm)
	if !ok {
		s.logger.Debug("dropped malformed modem message")
		return
	}
	cmds := s.comms.HandleInbound(f, time.Now())
	s.react(nil, safety.Dispatch{Kind: safety.DispatchModemMessage, Commands: cmds})
}

func (s *Scheduler) runPeripheral(ev safety.PeripheralEvent) {
	s.react(&ev, safety.Dispatch{Kind: safety.DispatchLoopTick})
}

func (s *Scheduler) runTerminate() {
	s.react(nil, safety.Dispatch{Kind: safety.DispatchTerminate})
	s.logger.Info("terminate requested, exiting")
}

func (s *Scheduler) react(peripheral *safety.PeripheralEvent, dispatch safety.Dispatch) {
	outbox := s.core.Tick(safety.TickInputs{
		Networked:  s.networked,
		Peripheral: peripheral,
		Dispatch:   dispatch,
		Iss:        s.iss,
	})
	for _, a := range outbox {
		switch a.Kind {
		case safety.ActionAlarm:
			s.comms.SendIssAlarm(a.IssStatus)
		case safety.ActionLog:
			s.logger.Warn(a.Message)
		}
	}
}

// watchdogCheck reports whether the comms session's watchdog has expired,
// observed as a wall-clock deadline at the top of this iteration rather
// than via a background timer goroutine.
func (s *Scheduler) watchdogCheck(now time.Time) (fired bool, firstFire bool) {
	return s.comms.WatchdogCheck(now)
}
