// Package tasktable implements the in-memory mirror of scheduled agents
// (spec §3, §4.2). All operations are synchronous and guarded by a single
// mutex; callers serialize them against the scheduler tick per spec §5.
package tasktable

import (
	"sync"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
)

type Table struct {
	mu    sync.Mutex
	tasks map[string]*domain.ScheduledTask
}

func New() *Table {
	return &Table{tasks: make(map[string]*domain.ScheduledTask)}
}

// Upsert inserts or replaces the task for task.AgentID (invariant 1).
func (t *Table) Upsert(task *domain.ScheduledTask) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[task.AgentID] = task
}

func (t *Table) Remove(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, agentID)
}

// Get returns a copy of the task so callers cannot mutate table state
// without going through the table's own setters.
func (t *Table) Get(agentID string) (domain.ScheduledTask, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[agentID]
	if !ok {
		return domain.ScheduledTask{}, false
	}
	return *task, true
}

// List returns copies of all tasks, in no particular order.
func (t *Table) List() []domain.ScheduledTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, *task)
	}
	return out
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

func (t *Table) SetNextRun(agentID string, next time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[agentID]; ok {
		task.NextRunTime = next
	}
}

func (t *Table) SetPaused(agentID string, paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[agentID]; ok {
		task.IsPaused = paused
	}
}

// RecordSuccess clears retry/backoff state and advances NextRunTime,
// implementing invariant 6's success branch.
func (t *Table) RecordSuccess(agentID string, next time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[agentID]
	if !ok {
		return
	}
	task.RetryCount = 0
	task.LastError = ""
	task.BackoffUntil = nil
	task.NextRunTime = next
}

// RecordRetry increments RetryCount and sets BackoffUntil, implementing the
// Retry(delay) branch of spec §4.5.
func (t *Table) RecordRetry(agentID string, errMsg string, backoffUntil time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[agentID]
	if !ok {
		return
	}
	task.RetryCount++
	task.LastError = errMsg
	task.BackoffUntil = &backoffUntil
}

// MarkRunning mirrors the scheduler's runningAgents set onto the task for
// introspection (getTaskDetails). The scheduler's set, not this flag, is
// the source of truth for the concurrency invariant.
func (t *Table) MarkRunning(agentID string, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[agentID]; ok {
		task.IsRunning = running
	}
}

// Snapshot returns a defensive copy of every task, used by the scheduler
// tick to build candidate lists without holding the table lock while
// sorting or dispatching.
func (t *Table) Snapshot() []domain.ScheduledTask {
	return t.List()
}
