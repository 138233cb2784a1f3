package handler

const (
	errInternalServer  = "Internal server error"
	errAgentNotFound   = "Agent not found"
	errNotScheduled    = "Agent is not scheduled"
	errAlreadyRunning  = "Agent is already running"
	errConflict        = "Operation conflicts with current task state"
	errNotPaused       = "Agent is not paused"
	errInvalidCron     = "Invalid cron expression"
)
