package session

import (
	"testing"
	"time"
)

func TestWatchdogFiresOnceAndIsIdempotent(t *testing.T) {
	wd := NewWatchdog(3 * time.Second)
	start := time.Now()
	wd.Feed(start)

	fired, first := wd.Check(start.Add(2 * time.Second))
	if fired {
		t.Fatal("should not have fired before duration elapsed")
	}

	fired, first = wd.Check(start.Add(3*time.Second + time.Millisecond))
	if !fired || !first {
		t.Fatalf("expected first fire, got fired=%v first=%v", fired, first)
	}

	fired, first = wd.Check(start.Add(4 * time.Second))
	if !fired || first {
		t.Fatalf("expected idempotent subsequent fire, got fired=%v first=%v", fired, first)
	}
}

func TestWatchdogFeedBeforeExpiryPreventsTimeout(t *testing.T) {
	wd := NewWatchdog(3 * time.Second)
	start := time.Now()
	wd.Feed(start)
	wd.Feed(start.Add(2900 * time.Millisecond))

	fired, _ := wd.Check(start.Add(3 * time.Second))
	if fired {
		t.Fatal("feeding before expiry must prevent the timeout")
	}
}

func TestWatchdogDisarmedNeverFires(t *testing.T) {
	wd := NewWatchdog(3 * time.Second)
	fired, _ := wd.Check(time.Now().Add(time.Hour))
	if fired {
		t.Fatal("an unfed watchdog must never fire")
	}
}

func TestWatchdogHandleStable(t *testing.T) {
	wd := NewWatchdog(time.Second)
	h1 := wd.Handle()
	wd.Feed(time.Now())
	if wd.Handle() != h1 {
		t.Fatal("handle must remain stable across Feed calls")
	}
}
