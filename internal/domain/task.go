package domain

import "time"

// ScheduledTask is the in-memory scheduling record owned by TaskTable
// (spec §3). agentId is the table's primary key.
type ScheduledTask struct {
	AgentID       string
	JobID         string // stable handle for pause/resume; defaults to AgentID (spec §9 OQ3)
	AgentSnapshot AgentRecord
	NextRunTime   time.Time
	Priority      Priority
	RetryCount    int
	BackoffUntil  *time.Time
	LastError     string
	IsPaused      bool
	IsManualRun   bool
	IsRunning     bool
}

// Eligible implements the PriorityQueue eligibility filter of spec §4.3.
func (t *ScheduledTask) Eligible(now time.Time, running map[string]struct{}) bool {
	if t.IsPaused {
		return false
	}
	if t.NextRunTime.After(now) {
		return false
	}
	if t.BackoffUntil != nil && t.BackoffUntil.After(now) {
		return false
	}
	if _, inFlight := running[t.AgentID]; inFlight {
		return false
	}
	return true
}
