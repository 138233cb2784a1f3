// Package metrics defines the scheduler's Prometheus instrumentation,
// grounded on the teacher's internal/metrics package, retargeted from
// job/worker/reaper counters to agent/dispatch/eventbus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentsched",
		Name:      "dispatch_latency_seconds",
		Help:      "Time from an agent's NextRunTime to its actual dispatch.",
		Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	AgentRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentsched",
		Name:      "agent_run_duration_seconds",
		Help:      "Duration of an AgentRunner.Run invocation.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})

	AgentsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentsched",
		Name:      "agents_in_flight",
		Help:      "Number of agents currently being executed.",
	})

	AgentRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentsched",
		Name:      "agent_runs_total",
		Help:      "Total agent runs, by outcome.",
	}, []string{"outcome"})

	RetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentsched",
		Name:      "retries_total",
		Help:      "Total retry decisions, by outcome.",
	}, []string{"outcome"})

	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentsched",
		Name:      "events_published_total",
		Help:      "Total events published to the event bus, by type.",
	}, []string{"type"})

	EventSinkQueueDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentsched",
		Name:      "event_sink_queue_dropped_total",
		Help:      "Total events dropped because a sink's delivery queue was full.",
	}, []string{"topic"})

	SchedulerLoopStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentsched",
		Name:      "scheduler_loop_start_time_seconds",
		Help:      "Unix timestamp when the scheduler loop started.",
	})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentsched",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentsched",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		DispatchLatency,
		AgentRunDuration,
		AgentsInFlight,
		AgentRunsTotal,
		RetriesTotal,
		EventsPublishedTotal,
		EventSinkQueueDroppedTotal,
		SchedulerLoopStartTime,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
