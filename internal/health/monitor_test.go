package health

import (
	"errors"
	"testing"
)

func TestMonitor_StreakTransitions(t *testing.T) {
	m := NewMonitor()
	probeErr := errors.New("connection refused")

	m.RecordSuccess("generate")
	if got := m.Report()["generate"].Status; got != StatusHealthy {
		t.Errorf("status after success = %v, want healthy", got)
	}

	m.RecordFailure("generate", probeErr)
	if got := m.Report()["generate"].Status; got != StatusDegraded {
		t.Errorf("status after 1 failure = %v, want degraded", got)
	}

	m.RecordFailure("generate", probeErr)
	m.RecordFailure("generate", probeErr)
	th := m.Report()["generate"]
	if th.Status != StatusCritical {
		t.Errorf("status after 3 failures = %v, want critical", th.Status)
	}
	if th.FailureStreak != 3 {
		t.Errorf("failure streak = %d, want 3", th.FailureStreak)
	}
	if th.LastError == "" {
		t.Error("last error not recorded")
	}

	// A success resets the streak but keeps the totals.
	m.RecordSuccess("generate")
	th = m.Report()["generate"]
	if th.Status != StatusHealthy || th.FailureStreak != 0 {
		t.Errorf("status after recovery = %v (streak %d), want healthy (0)", th.Status, th.FailureStreak)
	}
	if th.Failures != 3 || th.Successes != 2 {
		t.Errorf("totals = %d successes, %d failures, want 2, 3", th.Successes, th.Failures)
	}
}

func TestMonitor_Overall(t *testing.T) {
	m := NewMonitor()
	if got := m.Overall(); got != StatusHealthy {
		t.Errorf("empty monitor overall = %v, want healthy", got)
	}

	m.RecordSuccess("a")
	m.RecordFailure("b", errors.New("timeout"))
	if got := m.Overall(); got != StatusDegraded {
		t.Errorf("overall = %v, want degraded", got)
	}

	for i := 0; i < 3; i++ {
		m.RecordFailure("c", errors.New("down"))
	}
	if got := m.Overall(); got != StatusCritical {
		t.Errorf("overall = %v, want critical", got)
	}
}
