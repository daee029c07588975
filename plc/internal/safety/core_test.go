package safety

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type countingReactor struct {
	running    bool
	scramCalls int
}

func (r *countingReactor) GetStatus() bool { return r.running }
func (r *countingReactor) Scram() error {
	r.scramCalls++
	r.running = false
	return nil
}

func TestCoreAttemptsScramWhileLatchedAndRunning(t *testing.T) {
	reactor := &countingReactor{running: true}
	c := NewCore(true, true, reactor, zap.NewNop())

	c.Tick(TickInputs{Networked: true, Dispatch: Dispatch{Kind: DispatchLoopTick}})

	if reactor.scramCalls != 1 {
		t.Fatalf("scramCalls = %d, want 1", reactor.scramCalls)
	}
	if !c.State().Scram {
		t.Fatal("expected the core to remain latched")
	}
}

func TestCoreStopsAttemptingOnceReactorConfirmsOff(t *testing.T) {
	reactor := &countingReactor{running: true}
	c := NewCore(true, true, reactor, zap.NewNop())

	c.Tick(TickInputs{Networked: true, Dispatch: Dispatch{Kind: DispatchLoopTick}})
	c.Tick(TickInputs{Networked: true, Dispatch: Dispatch{Kind: DispatchLoopTick}})

	if reactor.scramCalls != 1 {
		t.Fatalf("scramCalls = %d, want 1 (reactor confirmed off after the first call)", reactor.scramCalls)
	}
}

func TestCoreNeverDereferencesNilReactor(t *testing.T) {
	c := NewCore(true, true, nil, zap.NewNop())

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic with a nil reactor: %v", r)
		}
	}()

	c.Tick(TickInputs{Networked: true, Dispatch: Dispatch{Kind: DispatchLoopTick}})

	if !c.State().Scram || !c.State().Degraded {
		t.Fatal("expected a degraded, latched state with no reactor attached")
	}
}

type failingReactor struct{ running bool }

func (r *failingReactor) GetStatus() bool { return r.running }
func (r *failingReactor) Scram() error    { return errors.New("handle is stale") }

func TestCoreSwallowsScramErrorsAndRetries(t *testing.T) {
	reactor := &failingReactor{running: true}
	c := NewCore(true, true, reactor, zap.NewNop())

	c.Tick(TickInputs{Networked: true, Dispatch: Dispatch{Kind: DispatchLoopTick}})
	c.Tick(TickInputs{Networked: true, Dispatch: Dispatch{Kind: DispatchLoopTick}})

	if !c.State().Scram {
		t.Fatal("expected the latch to survive repeated scram failures")
	}
}

func TestCoreReattachSwapsHandleAndForcesScram(t *testing.T) {
	c := NewCore(true, true, nil, zap.NewNop())
	newReactor := &countingReactor{running: true}

	outbox := c.Tick(TickInputs{
		Networked:  true,
		Peripheral: &PeripheralEvent{Kind: PeripheralReactor, Attached: true, Reactor: newReactor},
		Dispatch:   Dispatch{Kind: DispatchLoopTick},
	})

	if newReactor.scramCalls != 1 {
		t.Fatalf("scramCalls = %d, want 1 on reattach", newReactor.scramCalls)
	}
	if !containsScramAttempt(outbox) {
		t.Fatal("expected a scram attempt in the outbox on reattach")
	}
}
