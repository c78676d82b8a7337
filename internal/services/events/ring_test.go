package events

import (
	"testing"
	"time"
)

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	r := NewRing(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		r.Record("wire", "", "general", now.Add(time.Duration(i)*time.Second))
	}

	if got := r.Len(); got != 3 {
		t.Errorf("expected ring capped at 3, got %d", got)
	}
}

func TestRecentBurstCountWindowBoundary(t *testing.T) {
	r := NewRing(10)
	now := time.Now()

	r.Record("wire", "", "general", now.Add(-90*time.Second))
	r.Record("wire", "", "general", now.Add(-30*time.Second))
	r.Record("wire", "", "general", now.Add(-5*time.Second))

	if got := r.RecentBurstCount(time.Minute); got != 2 {
		t.Errorf("expected 2 events inside 1m window, got %d", got)
	}
	if got := r.RecentBurstCount(2 * time.Minute); got != 3 {
		t.Errorf("expected 3 events inside 2m window, got %d", got)
	}
}

func TestRecordClampsOutOfOrderTimestamps(t *testing.T) {
	r := NewRing(10)
	now := time.Now()

	// Newest-first delivery: a fresh entry followed by an older-stamped one.
	// The older stamp is clamped forward so the early-exit scan still sees
	// every in-window entry.
	r.Record("wire", "", "general", now.Add(-5*time.Second))
	r.Record("wire", "", "general", now.Add(-90*time.Second))

	if got := r.RecentBurstCount(time.Minute); got != 2 {
		t.Errorf("expected both entries counted inside 1m window, got %d", got)
	}
}

func TestRecentBurstCountEmpty(t *testing.T) {
	r := NewRing(10)
	if got := r.RecentBurstCount(time.Minute); got != 0 {
		t.Errorf("expected 0 on empty ring, got %d", got)
	}
}

func TestRecentBurstCountPurgesBeyondHorizon(t *testing.T) {
	r := NewRing(10)
	now := time.Now()

	r.Record("wire", "", "general", now.Add(-3*time.Hour))
	r.Record("wire", "", "general", now.Add(-time.Minute))

	r.RecentBurstCount(time.Minute)

	if got := r.Len(); got != 1 {
		t.Errorf("expected entry beyond horizon purged, got len %d", got)
	}
}
