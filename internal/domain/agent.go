package domain

import "time"

// Status mirrors the AgentRecord.status enum of spec §3.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusError     Status = "ERROR"
	StatusCompleted Status = "COMPLETED"
)

// AgentRecord is the persisted shape owned by AgentStore (spec §3).
// Configuration is an opaque map; scheduler internals must never read
// IsPaused/PausedAt/ResumedAt from it on the hot path — those are mirrored
// here purely for persistence (spec §9: "never read the blob on the hot
// path").
type AgentRecord struct {
	ID                 string
	Name               string
	Kind               string
	ScheduleExpression string
	ScheduleEnabled    bool
	PriorityHint       *Priority
	NextRunAt          *time.Time
	LastRunAt          *time.Time
	Status             Status
	Configuration      map[string]any
}

// IsPaused reads the mirrored pause flag from the opaque configuration
// blob. Only used when rehydrating a ScheduledTask from storage at
// startup; never consulted during dispatch.
func (a *AgentRecord) IsPaused() bool {
	if a.Configuration == nil {
		return false
	}
	v, _ := a.Configuration["isPaused"].(bool)
	return v
}
