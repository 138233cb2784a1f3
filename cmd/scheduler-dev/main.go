// Command scheduler-dev runs agentsched against an in-memory AgentStore
// and a log-only sink, for local iteration without Postgres, Redis, or an
// OTLP collector. Mirrors the teacher's cmd/seed bootstrapping approach,
// but seeds in-process rather than against a live database.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	ctxlog "github.com/nova-labs/agentsched/internal/log"

	"github.com/nova-labs/agentsched/internal/clock"
	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/eventbus"
	"github.com/nova-labs/agentsched/internal/repository/memstore"
	"github.com/nova-labs/agentsched/internal/retrypolicy"
	"github.com/nova-labs/agentsched/internal/runner"
	"github.com/nova-labs/agentsched/internal/scheduler"
	"github.com/nova-labs/agentsched/internal/sink/logsink"
)

func main() {
	logger := ctxlog.NewDevLogger(os.Stdout, slog.LevelDebug)

	store := memstore.New()
	seedAgents(store)

	bus := eventbus.New(logger)
	bus.Subscribe(eventbus.GlobalTopic, logsink.New(logger))

	core := scheduler.New(scheduler.Config{
		CheckInterval:       5 * time.Second,
		MaxConcurrentAgents: 3,
		RunMissedOnStartup:  true,
		AutoStart:           true,
		Retry:               retrypolicy.Default(),
	}, store, noopRunner{logger: logger}, bus, clock.NewSystem(), logger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("scheduler-dev starting", "agents", 3)
	if err := core.Run(ctx); err != nil {
		logger.Error("scheduler loop exited", "error", err)
	}

	core.Stop(5 * time.Second)
	logger.Info("scheduler-dev stopped")
}

func seedAgents(store *memstore.AgentStore) {
	now := time.Now()
	store.Seed(domain.AgentRecord{
		ID:                 "agent-heartbeat",
		Name:               "heartbeat",
		Kind:               "health-check",
		ScheduleExpression: "@every 10s",
		ScheduleEnabled:    true,
		NextRunAt:          &now,
		Status:             domain.StatusIdle,
		Configuration:      map[string]any{"priority": "high"},
	})
	store.Seed(domain.AgentRecord{
		ID:                 "agent-digest",
		Name:               "daily-digest",
		Kind:               "report",
		ScheduleExpression: "*/1 * * * *",
		ScheduleEnabled:    true,
		NextRunAt:          &now,
		Status:             domain.StatusIdle,
		Configuration:      map[string]any{"priority": "normal"},
	})
	store.Seed(domain.AgentRecord{
		ID:                 "agent-cleanup",
		Name:               "cache-cleanup",
		Kind:               "maintenance",
		ScheduleExpression: "*/2 * * * *",
		ScheduleEnabled:    true,
		NextRunAt:          &now,
		Status:             domain.StatusIdle,
		Configuration:      map[string]any{"priority": "low", "isPaused": false},
	})
}

// noopRunner simulates an agent run by sleeping briefly and logging,
// standing in for the real AgentRunner HTTP call in local iteration.
type noopRunner struct {
	logger *slog.Logger
}

func (n noopRunner) Run(ctx context.Context, agent domain.AgentRecord) runner.Result {
	start := time.Now()
	n.logger.Info("running agent", "agent_id", agent.ID)
	select {
	case <-ctx.Done():
		return runner.Result{Success: false, Error: ctx.Err().Error(), Duration: time.Since(start)}
	case <-time.After(200 * time.Millisecond):
	}
	return runner.Result{Success: true, Duration: time.Since(start)}
}

var _ runner.AgentRunner = noopRunner{}
