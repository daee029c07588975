package session

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegistryLinkAndUnlink(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Now()

	r.Link("plc-7", 3*time.Second, now)
	if !r.IsLinked("plc-7") {
		t.Fatal("expected plc-7 to be linked")
	}
	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1", r.Count())
	}

	r.Unlink("plc-7")
	if r.IsLinked("plc-7") {
		t.Fatal("expected plc-7 to be unlinked")
	}
}

func TestRegistryReapExpired(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Now()
	r.Link("plc-1", time.Second, now)

	reaped := r.ReapExpired(now.Add(2 * time.Second))
	if len(reaped) != 1 || reaped[0] != "plc-1" {
		t.Fatalf("expected plc-1 reaped, got %v", reaped)
	}
	if r.Count() != 0 {
		t.Fatalf("count = %d, want 0 after reap", r.Count())
	}
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Now()
	r.Link("plc-1", time.Second, now)

	snap := r.Snapshot()
	snap[0].Linked = false

	if !r.IsLinked("plc-1") {
		t.Fatal("mutating a snapshot must not affect the registry")
	}
}
