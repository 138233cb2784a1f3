// Package scheduler implements the SchedulerLoop, ControlAPI, and the
// dispatch/retry state machine of spec §4.6-§4.9. The teacher's
// package-level singleton and goroutine-per-loop wiring (cmd/scheduler/main.go)
// is re-architected per spec §9 Design Notes into an explicit value:
// Core is constructed once via New and holds no package-level state.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nova-labs/agentsched/internal/clock"
	"github.com/nova-labs/agentsched/internal/cronx"
	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/eventbus"
	"github.com/nova-labs/agentsched/internal/priorityqueue"
	"github.com/nova-labs/agentsched/internal/repository"
	"github.com/nova-labs/agentsched/internal/retrypolicy"
	"github.com/nova-labs/agentsched/internal/runner"
	"github.com/nova-labs/agentsched/internal/schemavalidate"
	"github.com/nova-labs/agentsched/internal/tasktable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the environment-driven options of spec §6.4.
type Config struct {
	CheckInterval       time.Duration
	MaxConcurrentAgents int
	RunMissedOnStartup  bool
	AutoStart           bool
	Retry               retrypolicy.Policy
}

// DefaultConfig matches the documented defaults of spec §6.4.
func DefaultConfig() Config {
	return Config{
		CheckInterval:       60 * time.Second,
		MaxConcurrentAgents: 5,
		RunMissedOnStartup:  false,
		AutoStart:           false,
		Retry:               retrypolicy.Default(),
	}
}

// Core is the scheduler's single owned value: TaskTable, PriorityQueue,
// WorkerPool, RetryPolicy, EventBus, and the runningAgents/pausedJobs sets
// guarded by one mutex (spec §5's "scheduler lock").
type Core struct {
	cfg       Config
	store     repository.AgentStore
	runner    runner.AgentRunner
	bus       *eventbus.Bus
	clk       clock.Clock
	logger    *slog.Logger
	tracer    trace.Tracer
	validator *schemavalidate.Validator

	table *tasktable.Table
	pool  *WorkerPool

	// scheduler lock: guards runningAgents and pausedJobs only. TaskTable
	// has its own internal lock; AgentStore I/O and AgentRunner.Run must
	// never happen while this lock is held (spec §5).
	mu            sync.Mutex
	runningAgents map[string]struct{}
	pausedJobs    map[string]string // agentID -> jobID

	isRunning atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Core. validator may be nil, in which case agent
// configuration is never schema-checked before being cached into a
// ScheduledTask.
func New(cfg Config, store repository.AgentStore, r runner.AgentRunner, bus *eventbus.Bus, clk clock.Clock, logger *slog.Logger, validator *schemavalidate.Validator) *Core {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	if cfg.MaxConcurrentAgents <= 0 {
		cfg.MaxConcurrentAgents = DefaultConfig().MaxConcurrentAgents
	}
	if cfg.Retry == (retrypolicy.Policy{}) {
		cfg.Retry = retrypolicy.Default()
	}

	return &Core{
		cfg:           cfg,
		store:         store,
		runner:        r,
		bus:           bus,
		clk:           clk,
		logger:        logger.With("component", "scheduler"),
		tracer:        otel.Tracer("github.com/nova-labs/agentsched/internal/scheduler"),
		validator:     validator,
		table:         tasktable.New(),
		pool:          NewWorkerPool(cfg.MaxConcurrentAgents),
		runningAgents: make(map[string]struct{}),
		pausedJobs:    make(map[string]string),
		stopCh:        make(chan struct{}),
	}
}

// validateConfiguration checks rec.Configuration against the schema
// registered for rec.Kind, if a validator is wired and a schema exists for
// that kind. A nil validator or an unregistered kind always passes.
func (c *Core) validateConfiguration(rec *domain.AgentRecord) error {
	if c.validator == nil {
		return nil
	}
	return c.validator.Validate(rec.Kind, rec.Configuration)
}

// Run loads state from the store, optionally catches up on missed runs,
// then drives the tick loop until ctx is cancelled. Mirrors the teacher's
// Dispatcher.Start/Worker.Start shape (ticker + select over ctx.Done()).
func (c *Core) Run(ctx context.Context) error {
	if err := c.loadFromStore(ctx); err != nil {
		return err
	}
	if c.cfg.RunMissedOnStartup {
		c.dispatchMissed(ctx)
	}

	ticker := c.clk.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	c.isRunning.Store(true)
	defer c.isRunning.Store(false)

	c.logger.Info("scheduler loop started", "check_interval", c.cfg.CheckInterval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("scheduler loop shut down")
			return nil
		case <-c.stopCh:
			c.logger.Info("scheduler loop stopped")
			return nil
		case <-ticker.C():
			c.tick(ctx)
		}
	}
}

// Stop signals the loop to stop accepting new dispatches and waits up to
// grace for in-flight dispatches to finish. It does not cancel in-flight
// AgentRunner calls (spec §5: "does not forcibly cancel in-flight
// runners") and never mutates AgentStore schedule fields.
func (c *Core) Stop(grace time.Duration) {
	c.stopOnce.Do(func() { close(c.stopCh) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		c.logger.Warn("stop: grace period elapsed with agents still in flight", "in_flight", c.pool.InFlight())
	}
}

// loadFromStore replays spec §4.6's startup behavior.
func (c *Core) loadFromStore(ctx context.Context) error {
	records, err := c.store.ListScheduledEnabled(ctx)
	if err != nil {
		return err
	}

	now := c.clk.Now()
	for _, rec := range records {
		if err := c.validateConfiguration(rec); err != nil {
			c.logger.Error("agent configuration failed schema validation, skipping", "agent_id", rec.ID, "error", err)
			continue
		}

		next := now
		if rec.NextRunAt != nil && rec.NextRunAt.After(now) {
			next = *rec.NextRunAt
		} else if n, err := cronx.NextAfter(rec.ScheduleExpression, now); err == nil {
			next = n
		}

		priority := domain.DerivePriority(rec.PriorityHint, configuredPriority(rec), rec.Kind)

		task := &domain.ScheduledTask{
			AgentID:       rec.ID,
			JobID:         rec.ID,
			AgentSnapshot: *rec,
			NextRunTime:   next,
			Priority:      priority,
			IsPaused:      rec.IsPaused(),
		}
		c.table.Upsert(task)
		if task.IsPaused {
			c.mu.Lock()
			c.pausedJobs[rec.ID] = task.JobID
			c.mu.Unlock()
		}
	}

	c.logger.Info("loaded scheduled agents from store", "count", len(records))
	return nil
}

func configuredPriority(rec *domain.AgentRecord) string {
	if rec.Configuration == nil {
		return ""
	}
	s, _ := rec.Configuration["priority"].(string)
	return s
}

// dispatchMissed implements "run missed jobs on startup": at most one
// catch-up dispatch per overdue, non-paused agent, subject to slot limits
// (spec §4.6).
func (c *Core) dispatchMissed(ctx context.Context) {
	now := c.clk.Now()
	for _, task := range c.table.List() {
		if task.IsPaused || task.NextRunTime.After(now) {
			continue
		}
		if !c.pool.TryAcquire() {
			c.logger.Warn("startup catch-up: worker pool full, deferring remaining missed agents")
			break
		}
		c.spawnDispatch(ctx, task)
	}
}
