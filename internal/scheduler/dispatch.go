package scheduler

import (
	"context"
	"time"

	"github.com/nova-labs/agentsched/internal/cronx"
	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/eventbus"
	"github.com/nova-labs/agentsched/internal/priorityqueue"
	"github.com/nova-labs/agentsched/internal/repository"
	"github.com/nova-labs/agentsched/internal/retrypolicy"
	"github.com/nova-labs/agentsched/internal/runner"
	"go.opentelemetry.io/otel/attribute"
)

// tick performs one SchedulerLoop iteration (spec §4.6, steps 1-5). Under
// the scheduler lock it only snapshots runningAgents; it releases the lock
// before any I/O or dispatch.
func (c *Core) tick(ctx context.Context) {
	now := c.clk.Now()

	c.mu.Lock()
	running := make(map[string]struct{}, len(c.runningAgents))
	for id := range c.runningAgents {
		running[id] = struct{}{}
	}
	c.mu.Unlock()

	candidates := priorityqueue.Eligible(c.table.Snapshot(), now, running)
	queue := priorityqueue.Build(candidates)

	available := c.pool.Available()
	dispatched := 0
	for dispatched < available {
		task, ok := queue.Pop()
		if !ok {
			break
		}
		if !c.pool.TryAcquire() {
			break
		}
		c.spawnDispatch(ctx, task)
		dispatched++
	}

	c.publishStats(ctx)
}

// spawnDispatch marks the agent running and hands it to the AgentRunner in
// its own goroutine, tracked by c.wg so Stop can wait for it (spec §4.6
// "Dispatch of a task").
func (c *Core) spawnDispatch(ctx context.Context, task domain.ScheduledTask) {
	c.mu.Lock()
	c.runningAgents[task.AgentID] = struct{}{}
	c.mu.Unlock()
	c.table.MarkRunning(task.AgentID, true)

	c.wg.Add(1)
	go func() {
		defer c.pool.Release()
		defer c.wg.Done()
		c.runOne(ctx, task)
	}()
}

// runOne executes spec §4.6's dispatch procedure for a single task.
func (c *Core) runOne(ctx context.Context, task domain.ScheduledTask) {
	spanCtx, span := c.tracer.Start(ctx, "scheduler.dispatch")
	span.SetAttributes(attribute.String("agent_id", task.AgentID))
	defer span.End()

	now := c.clk.Now()
	if err := c.store.SetStatus(spanCtx, task.AgentID, domain.StatusRunning); err != nil {
		c.logger.Error("set status running", "agent_id", task.AgentID, "error", err)
	}
	if err := c.store.UpdateSchedule(spanCtx, task.AgentID, repository.ScheduleUpdate{LastRunAt: &now}); err != nil {
		c.logger.Error("record last run at", "agent_id", task.AgentID, "error", err)
	}

	c.bus.Publish(spanCtx, eventbus.AgentTopic(task.AgentID), eventbus.Event{
		Type:      eventbus.AgentStarted,
		AgentID:   task.AgentID,
		JobID:     task.JobID,
		Timestamp: now,
	})

	result := c.runner.Run(spanCtx, task.AgentSnapshot)

	if result.Success {
		c.onSuccess(spanCtx, task, result)
	} else {
		c.onFailure(spanCtx, task, result)
	}

	c.mu.Lock()
	delete(c.runningAgents, task.AgentID)
	c.mu.Unlock()
	c.table.MarkRunning(task.AgentID, false)

	c.publishStats(spanCtx)
}

// onSuccess implements spec §4.6's success branch: clear retry/backoff
// state, recompute NextRunTime from cron (or leave it for manual runs),
// and emit AGENT_COMPLETED.
func (c *Core) onSuccess(ctx context.Context, task domain.ScheduledTask, result runner.Result) {
	now := c.clk.Now()

	if !task.IsManualRun {
		next, err := cronx.NextAfter(task.AgentSnapshot.ScheduleExpression, now)
		if err != nil {
			c.logger.Error("recompute next run after success", "agent_id", task.AgentID, "error", err)
			next = now.Add(time.Hour)
		}
		c.table.RecordSuccess(task.AgentID, next)
		if err := c.store.UpdateSchedule(ctx, task.AgentID, repository.ScheduleUpdate{NextRunAt: &next}); err != nil {
			c.logger.Error("persist next run at", "agent_id", task.AgentID, "error", err)
		}
	}
	if err := c.store.SetStatus(ctx, task.AgentID, domain.StatusIdle); err != nil {
		c.logger.Error("set status idle", "agent_id", task.AgentID, "error", err)
	}

	c.bus.Publish(ctx, eventbus.AgentTopic(task.AgentID), eventbus.Event{
		Type:       eventbus.AgentCompleted,
		AgentID:    task.AgentID,
		JobID:      task.JobID,
		Timestamp:  now,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// onFailure implements spec §4.6's failure branch: RetryPolicy decides
// between Retry(delay) and Terminal.
func (c *Core) onFailure(ctx context.Context, task domain.ScheduledTask, result runner.Result) {
	now := c.clk.Now()
	attempt := task.RetryCount + 1

	outcome, delay := c.cfg.Retry.Decide(attempt)

	c.bus.Publish(ctx, eventbus.AgentTopic(task.AgentID), eventbus.Event{
		Type:      eventbus.AgentFailed,
		AgentID:   task.AgentID,
		JobID:     task.JobID,
		Timestamp: now,
		Error:     result.Error,
	})

	if outcome == retrypolicy.OutcomeTerminal {
		c.table.Remove(task.AgentID)
		if err := c.store.SetStatus(ctx, task.AgentID, domain.StatusError); err != nil {
			c.logger.Error("set status error", "agent_id", task.AgentID, "error", err)
		}
		c.logger.Warn("agent removed after terminal failure", "agent_id", task.AgentID, "attempt", attempt)
		return
	}

	backoffUntil := now.Add(delay)
	c.table.RecordRetry(task.AgentID, result.Error, backoffUntil)
	if err := c.store.SetStatus(ctx, task.AgentID, domain.StatusError); err != nil {
		c.logger.Error("set status error (retrying)", "agent_id", task.AgentID, "error", err)
	}
}

// publishStats emits a SCHEDULER_STATUS snapshot to the global topic,
// mirroring what GetStats returns (spec §4.7, §6.3).
func (c *Core) publishStats(ctx context.Context) {
	c.mu.Lock()
	running := len(c.runningAgents)
	paused := len(c.pausedJobs)
	c.mu.Unlock()

	c.bus.Publish(ctx, eventbus.GlobalTopic, eventbus.Event{
		Type:      eventbus.SchedulerStatus,
		Timestamp: c.clk.Now(),
		Stats: map[string]any{
			"scheduledCount": c.table.Len(),
			"runningCount":   running,
			"pausedCount":    paused,
			"maxConcurrent":  c.pool.Max(),
			"inFlight":       c.pool.InFlight(),
		},
	})
}
