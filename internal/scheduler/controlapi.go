package scheduler

import (
	"context"

	"github.com/nova-labs/agentsched/internal/cronx"
	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/eventbus"
	"github.com/nova-labs/agentsched/internal/priorityqueue"
	"github.com/nova-labs/agentsched/internal/repository"
)

// Schedule registers, updates, or disables an agent's schedule (spec §4.7
// "schedule(agentId, cron, priority, enabled)"). A valid cron expression is
// required even when disabling, since it is persisted for a later
// re-enable; an invalid one never reaches the TaskTable. enabled=false
// removes the agent from the TaskTable (invariant 5: a disabled agent has
// no getTaskDetails entry) while leaving its cron expression on file.
func (c *Core) Schedule(ctx context.Context, agentID string, expr string, priorityHint *domain.Priority, enabled bool) error {
	if err := cronx.Validate(expr); err != nil {
		return err
	}

	rec, err := c.store.GetAgent(ctx, agentID)
	if err != nil {
		return err
	}
	if rec == nil {
		return domain.ErrAgentNotFound
	}

	if !enabled {
		if err := c.store.UpdateSchedule(ctx, agentID, repository.ScheduleUpdate{
			Expression: &expr,
			Enabled:    &enabled,
		}); err != nil {
			return err
		}
		c.table.Remove(agentID)
		c.mu.Lock()
		delete(c.pausedJobs, agentID)
		c.mu.Unlock()
		return nil
	}

	now := c.clk.Now()
	next, err := cronx.NextAfter(expr, now)
	if err != nil {
		return err
	}

	if err := c.store.UpdateSchedule(ctx, agentID, repository.ScheduleUpdate{
		Expression: &expr,
		Enabled:    &enabled,
		NextRunAt:  &next,
	}); err != nil {
		return err
	}

	if err := c.validateConfiguration(rec); err != nil {
		return err
	}

	rec.ScheduleExpression = expr
	rec.ScheduleEnabled = true
	priority := domain.DerivePriority(priorityHint, configuredPriority(rec), rec.Kind)

	task := &domain.ScheduledTask{
		AgentID:       agentID,
		JobID:         agentID,
		AgentSnapshot: *rec,
		NextRunTime:   next,
		Priority:      priority,
	}
	c.table.Upsert(task)
	return nil
}

// Unschedule removes an agent from the TaskTable and disables its
// schedule in storage (spec §4.7 "unschedule").
func (c *Core) Unschedule(ctx context.Context, agentID string) error {
	if _, ok := c.table.Get(agentID); !ok {
		return domain.ErrNotScheduled
	}

	enabled := false
	if err := c.store.UpdateSchedule(ctx, agentID, repository.ScheduleUpdate{Enabled: &enabled}); err != nil {
		return err
	}
	c.table.Remove(agentID)

	c.mu.Lock()
	delete(c.pausedJobs, agentID)
	c.mu.Unlock()

	return nil
}

// RunNow dispatches an agent immediately, bypassing the concurrency cap
// (spec §4.7, §9 OQ1): a manual run always gets its own goroutine even if
// the worker pool is saturated.
func (c *Core) RunNow(ctx context.Context, agentID string) error {
	c.mu.Lock()
	if _, running := c.runningAgents[agentID]; running {
		c.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	c.mu.Unlock()

	task, ok := c.table.Get(agentID)
	if !ok {
		rec, err := c.store.GetAgent(ctx, agentID)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrAgentNotFound
		}
		task = domain.ScheduledTask{
			AgentID:       agentID,
			JobID:         agentID,
			AgentSnapshot: *rec,
			NextRunTime:   c.clk.Now(),
			Priority:      domain.DerivePriority(rec.PriorityHint, configuredPriority(rec), rec.Kind),
		}
	}
	task.IsManualRun = true

	c.mu.Lock()
	c.runningAgents[agentID] = struct{}{}
	c.mu.Unlock()
	c.table.MarkRunning(agentID, true)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runOne(ctx, task)
	}()
	return nil
}

// PauseJob marks an agent paused: it stays in the TaskTable but is
// ineligible for dispatch until ResumeJob (spec §4.7 "pause"). Pausing an
// agent that is currently in flight is a conflict (spec §4.7 invariant);
// pausing an already-paused agent is idempotent and simply re-asserts the
// paused state.
func (c *Core) PauseJob(ctx context.Context, agentID string) error {
	task, ok := c.table.Get(agentID)
	if !ok {
		return domain.ErrNotScheduled
	}

	c.mu.Lock()
	if _, running := c.runningAgents[agentID]; running {
		c.mu.Unlock()
		return domain.ErrConflict
	}
	c.pausedJobs[agentID] = task.JobID
	c.mu.Unlock()

	c.table.SetPaused(agentID, true)

	patch := map[string]any{"isPaused": true}
	if err := c.store.UpdateSchedule(ctx, agentID, repository.ScheduleUpdate{ConfigurationPatch: patch}); err != nil {
		c.logger.Error("persist pause", "agent_id", agentID, "error", err)
	}

	c.bus.Publish(ctx, eventbus.AgentTopic(agentID), eventbus.Event{
		Type:      eventbus.AgentPaused,
		AgentID:   agentID,
		JobID:     task.JobID,
		Timestamp: c.clk.Now(),
	})
	return nil
}

// ResumeJob clears the paused flag, making the agent eligible again on
// the next tick (spec §4.7 "resume").
func (c *Core) ResumeJob(ctx context.Context, agentID string) error {
	task, ok := c.table.Get(agentID)
	if !ok {
		return domain.ErrNotScheduled
	}

	c.mu.Lock()
	if _, paused := c.pausedJobs[agentID]; !paused {
		c.mu.Unlock()
		return domain.ErrNotPaused
	}
	delete(c.pausedJobs, agentID)
	c.mu.Unlock()

	c.table.SetPaused(agentID, false)

	patch := map[string]any{"isPaused": false}
	if err := c.store.UpdateSchedule(ctx, agentID, repository.ScheduleUpdate{ConfigurationPatch: patch}); err != nil {
		c.logger.Error("persist resume", "agent_id", agentID, "error", err)
	}

	c.bus.Publish(ctx, eventbus.AgentTopic(agentID), eventbus.Event{
		Type:      eventbus.AgentResumed,
		AgentID:   agentID,
		JobID:     task.JobID,
		Timestamp: c.clk.Now(),
	})
	return nil
}

// Stats is the snapshot returned by GetStats (spec §4.7, §6.3).
type Stats struct {
	IsRunning        bool
	ScheduledCount   int
	RunningCount     int
	QueuedTasksCount int
	PausedCount      int
	MaxConcurrent    int
	InFlight         int
}

func (c *Core) GetStats() Stats {
	c.mu.Lock()
	running := make(map[string]struct{}, len(c.runningAgents))
	for id := range c.runningAgents {
		running[id] = struct{}{}
	}
	runningCount := len(running)
	paused := len(c.pausedJobs)
	c.mu.Unlock()

	queued := priorityqueue.Eligible(c.table.Snapshot(), c.clk.Now(), running)

	return Stats{
		IsRunning:        c.isRunning.Load(),
		ScheduledCount:   c.table.Len(),
		RunningCount:     runningCount,
		QueuedTasksCount: len(queued),
		PausedCount:      paused,
		MaxConcurrent:    c.pool.Max(),
		InFlight:         c.pool.InFlight(),
	}
}

// GetTaskDetails returns the TaskTable entry for agentID (spec §4.7
// "getTaskDetails").
func (c *Core) GetTaskDetails(agentID string) (domain.ScheduledTask, error) {
	task, ok := c.table.Get(agentID)
	if !ok {
		return domain.ScheduledTask{}, domain.ErrNotScheduled
	}
	return task, nil
}

// ListTaskDetails returns every TaskTable entry (spec §4.7
// "getTaskDetails()" with no argument returns the full list).
func (c *Core) ListTaskDetails() []domain.ScheduledTask {
	return c.table.List()
}

// GetPausedJobs lists every agentID currently paused (spec §4.7
// "getPausedJobs").
func (c *Core) GetPausedJobs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pausedJobs))
	for agentID := range c.pausedJobs {
		out = append(out, agentID)
	}
	return out
}
