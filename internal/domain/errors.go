package domain

import "errors"

// Error taxonomy surfaced to ControlAPI callers (spec §7).
var (
	ErrInvalidCron   = errors.New("invalid cron expression")
	ErrAgentNotFound = errors.New("agent not found")
	ErrNotScheduled  = errors.New("agent is not scheduled")
	ErrAlreadyRunning = errors.New("agent is already running")
	ErrConflict      = errors.New("operation conflicts with current task state")
	ErrNotPaused     = errors.New("agent is not paused")
	ErrBusy          = errors.New("worker pool is at capacity")
	ErrStoreFailure  = errors.New("agent store failure")
)
