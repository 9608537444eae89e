// Package health tracks probe outcomes per target and serves them, together
// with prometheus metrics, over HTTP.
package health

import (
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// criticalStreak is the consecutive-failure count at which a target is
// considered down rather than flaky.
const criticalStreak = 3

// TargetHealth is the rolled-up view of one probe target.
type TargetHealth struct {
	Status        Status    `json:"status"`
	Successes     int       `json:"successes"`
	Failures      int       `json:"failures"`
	FailureStreak int       `json:"failure_streak"`
	LastError     string    `json:"last_error,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// Monitor aggregates probe outcomes per target.
type Monitor struct {
	mu      sync.RWMutex
	targets map[string]*TargetHealth
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{targets: make(map[string]*TargetHealth)}
}

// RecordSuccess notes a successful probe of the named target.
func (m *Monitor) RecordSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	th := m.target(name)
	th.Successes++
	th.FailureStreak = 0
	th.LastError = ""
	th.Status = StatusHealthy
	th.LastCheckedAt = time.Now()
}

// RecordFailure notes a failed probe of the named target.
func (m *Monitor) RecordFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	th := m.target(name)
	th.Failures++
	th.FailureStreak++
	if err != nil {
		th.LastError = err.Error()
	}
	if th.FailureStreak >= criticalStreak {
		th.Status = StatusCritical
	} else {
		th.Status = StatusDegraded
	}
	th.LastCheckedAt = time.Now()
}

// Report returns a snapshot of every tracked target.
func (m *Monitor) Report() map[string]TargetHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]TargetHealth, len(m.targets))
	for name, th := range m.targets {
		out[name] = *th
	}
	return out
}

// Overall rolls up target statuses; the worst case wins.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := StatusHealthy
	for _, th := range m.targets {
		if th.Status == StatusCritical {
			return StatusCritical
		}
		if th.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

func (m *Monitor) target(name string) *TargetHealth {
	th, ok := m.targets[name]
	if !ok {
		th = &TargetHealth{Status: StatusHealthy}
		m.targets[name] = th
	}
	return th
}
