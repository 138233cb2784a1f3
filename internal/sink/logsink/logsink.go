// Package logsink implements an EventSink that writes events to structured
// logs, the simplest of the spec's sinks and the one every deployment gets
// for free (spec §6.1).
package logsink

import (
	"log/slog"

	"github.com/nova-labs/agentsched/internal/eventbus"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	return &Sink{logger: logger.With("component", "logsink")}
}

func (s *Sink) OnEvent(topic string, event eventbus.Event) {
	s.logger.Info("scheduler event",
		"topic", topic,
		"type", event.Type,
		"agent_id", event.AgentID,
		"job_id", event.JobID,
		"error", event.Error,
	)
}

var _ eventbus.Sink = (*Sink)(nil)
