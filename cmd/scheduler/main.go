// Command scheduler runs the full agentsched process: the SchedulerLoop,
// its Postgres-backed AgentStore and HTTP AgentRunner, every EventSink, and
// the ControlAPI's HTTP surface, wired together the way the teacher's
// cmd/scheduler and cmd/server mains wire their own collaborators — except
// here both the dispatch loop and the control plane share one process and
// one *scheduler.Core, per spec §9's single-process redesign.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nova-labs/agentsched/config"
	"github.com/nova-labs/agentsched/internal/clock"
	"github.com/nova-labs/agentsched/internal/eventbus"
	"github.com/nova-labs/agentsched/internal/health"
	ctxlog "github.com/nova-labs/agentsched/internal/log"
	"github.com/nova-labs/agentsched/internal/metrics"
	"github.com/nova-labs/agentsched/internal/repository/postgres"
	"github.com/nova-labs/agentsched/internal/retrypolicy"
	"github.com/nova-labs/agentsched/internal/runner/httprunner"
	"github.com/nova-labs/agentsched/internal/scheduler"
	"github.com/nova-labs/agentsched/internal/schemavalidate"
	"github.com/nova-labs/agentsched/internal/sink/logsink"
	"github.com/nova-labs/agentsched/internal/sink/redissink"
	"github.com/nova-labs/agentsched/internal/sink/wssink"
	"github.com/nova-labs/agentsched/internal/tracing"
	httptransport "github.com/nova-labs/agentsched/internal/transport/http"
	"github.com/nova-labs/agentsched/internal/transport/http/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	logger.Info("db connected")

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
	defer func() { _ = redisClient.Close() }()

	tp, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  "agentsched",
		Environment:  cfg.Env,
		Endpoint:     cfg.OTelExporterEndpoint,
		SamplingRate: 1.0,
	})
	if err != nil {
		stop()
		log.Fatalf("tracing: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{
		"postgres": pool,
		"redis":    redisPinger{redisClient},
	}, logger, prometheus.DefaultRegisterer)

	store := postgres.NewAgentStore(pool)
	agentRunner := httprunner.New(cfg.AgentRunnerBaseURL, logger)
	validator := newConfigValidator(logger)

	bus := eventbus.New(logger)
	bus.Subscribe(eventbus.GlobalTopic, logsink.New(logger))
	bus.Subscribe(eventbus.GlobalTopic, redissink.New(redisClient, logger))
	wsHub := wssink.NewHub(logger)
	bus.Subscribe(eventbus.GlobalTopic, wsHub)

	core := scheduler.New(scheduler.Config{
		CheckInterval:       time.Duration(cfg.CheckIntervalSec) * time.Second,
		MaxConcurrentAgents: cfg.MaxConcurrentAgents,
		RunMissedOnStartup:  cfg.RunMissedOnStartup,
		AutoStart:           cfg.AutoStart,
		Retry: retrypolicy.Policy{
			MaxRetries:  cfg.RetryMaxAttempts,
			BaseBackoff: time.Duration(cfg.RetryBaseBackoffSec) * time.Second,
			MaxBackoff:  time.Duration(cfg.RetryMaxBackoffSec) * time.Second,
		},
	}, store, agentRunner, bus, clock.NewSystem(), logger, validator)

	go func() {
		if err := core.Run(ctx); err != nil {
			logger.Error("scheduler loop exited", "error", err)
		}
	}()

	schedHandler := handler.NewSchedulerHandler(core, logger)
	healthHandler := handler.NewHealthHandler(checker)
	router := httptransport.NewRouter(schedHandler, healthHandler, wsHub, []byte(cfg.JWTSecret))

	srv := http.Server{Addr: ":" + cfg.Port, Handler: router}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	go func() {
		logger.Info("control api started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("control api: %v", err)
		}
	}()
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down")

	core.Stop(15 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("control api shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	if env == "local" {
		return ctxlog.NewDevLogger(os.Stdout, level)
	}
	return ctxlog.NewJSONLogger(os.Stdout, level)
}

// redisPinger adapts *redis.Client's command-object Ping to the plain
// error return health.Pinger expects.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// newConfigValidator registers the configuration schemas for the agent
// kinds that carry a kind-level priority default (domain.DerivePriority's
// defaultPriorityByKind table), since those are the kinds this deployment
// actually knows the shape of. Kinds with no registered schema pass
// unconditionally.
func newConfigValidator(logger *slog.Logger) *schemavalidate.Validator {
	v := schemavalidate.New()

	schemas := map[string]string{
		"CUSTOMER_SUPPORT": `{
			"type": "object",
			"properties": {"queue": {"type": "string"}},
			"required": ["queue"]
		}`,
		"PERFORMANCE_OPTIMIZER": `{
			"type": "object",
			"properties": {"targetMetric": {"type": "string"}},
			"required": ["targetMetric"]
		}`,
	}
	for kind, schema := range schemas {
		if err := v.RegisterSchema(kind, []byte(schema)); err != nil {
			logger.Error("register configuration schema", "kind", kind, "error", err)
		}
	}
	return v
}

func redisAddr(redisURL string) string {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return "localhost:6379"
	}
	return opts.Addr
}
