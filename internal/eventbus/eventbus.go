// Package eventbus implements spec §4.8's publish/subscribe fan-out: one
// topic per "agent:<id>" plus a global "scheduler" topic, best-effort
// fire-and-forget delivery to registered EventSinks. Re-architected per
// spec §9 Design Notes from the teacher's callback-emission style into an
// explicit in-process broadcaster so a slow sink never blocks the
// scheduler loop.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nova-labs/agentsched/internal/metrics"
)

type EventKind string

const (
	AgentStarted    EventKind = "AGENT_STARTED"
	AgentCompleted  EventKind = "AGENT_COMPLETED"
	AgentFailed     EventKind = "AGENT_FAILED"
	AgentProgress   EventKind = "AGENT_PROGRESS"
	AgentPaused     EventKind = "AGENT_PAUSED"
	AgentResumed    EventKind = "AGENT_RESUMED"
	SchedulerStatus EventKind = "SCHEDULER_STATUS"
)

const GlobalTopic = "scheduler"

func AgentTopic(agentID string) string { return "agent:" + agentID }

// Event is the wire-format payload of spec §6.3.
type Event struct {
	Type        EventKind      `json:"type"`
	AgentID     string         `json:"agentId,omitempty"`
	JobID       string         `json:"jobId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	DurationMS  int64          `json:"duration,omitempty"`
	Error       string         `json:"error,omitempty"`
	Progress    int            `json:"progress,omitempty"`
	Message     string         `json:"message,omitempty"`
	CurrentStep int            `json:"currentStep,omitempty"`
	TotalSteps  int            `json:"totalSteps,omitempty"`
	Stats       map[string]any `json:"stats,omitempty"`
}

// Sink is the external EventSink collaborator interface (spec §6.1).
// OnEvent must be non-blocking from the bus's perspective; sink failures
// are isolated from each other and from the publisher.
type Sink interface {
	OnEvent(topic string, event Event)
}

const sinkQueueDepth = 256

// subscription pairs a Sink with a bounded FIFO queue and a single
// delivery goroutine, so events for that sink stay in program order
// (spec §4.8: "STARTED before COMPLETED/FAILED") while the publisher
// itself never blocks on a slow sink — a full queue drops the oldest
// pending event rather than stalling Publish.
type subscription struct {
	sink  Sink
	queue chan queuedEvent
	done  chan struct{}
}

type queuedEvent struct {
	topic string
	event Event
}

// Bus publishes events to subscribed sinks.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]*subscription
	logger *slog.Logger
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]*subscription),
		logger: logger.With("component", "eventbus"),
	}
}

// Subscribe registers sink for topic. Returns an unsubscribe func.
func (b *Bus) Subscribe(topic string, sink Sink) func() {
	sub := &subscription{
		sink:  sink,
		queue: make(chan queuedEvent, sinkQueueDepth),
		done:  make(chan struct{}),
	}
	go b.run(sub)

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		subs := b.topics[topic]
		for i, s := range subs {
			if s == sub {
				b.topics[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.done)
	}
}

// Publish fans event out to every sink subscribed to topic, best-effort.
func (b *Bus) Publish(_ context.Context, topic string, event Event) {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.topics[topic]...)
	b.mu.RUnlock()

	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()

	qe := queuedEvent{topic: topic, event: event}
	for _, sub := range subs {
		select {
		case sub.queue <- qe:
		default:
			// Queue full: drop the oldest pending event to make room
			// rather than block the publisher.
			select {
			case <-sub.queue:
			default:
			}
			select {
			case sub.queue <- qe:
			default:
			}
			metrics.EventSinkQueueDroppedTotal.WithLabelValues(topic).Inc()
			b.logger.Warn("event sink queue full, dropped oldest event", "topic", topic)
		}
	}
}

func (b *Bus) run(sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case qe := <-sub.queue:
			b.deliver(sub.sink, qe.topic, qe.event)
		}
	}
}

func (b *Bus) deliver(sink Sink, topic string, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event sink panicked", "topic", topic, "panic", r)
		}
	}()
	sink.OnEvent(topic, event)
}
