// Package redissink implements an EventSink that republishes events onto a
// Redis Pub/Sub channel, letting other processes (dashboards, audit
// consumers) observe scheduler activity without coupling to the
// scheduler's in-process EventBus (spec §6.1).
package redissink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nova-labs/agentsched/internal/eventbus"
)

// channelPrefix namespaces the Redis channels this sink publishes to, kept
// distinct from application channels sharing the same Redis instance.
const channelPrefix = "agentsched:"

const defaultPublishTimeout = 2 * time.Second

type Sink struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *Sink {
	return &Sink{client: client, logger: logger.With("component", "redissink")}
}

func (s *Sink) OnEvent(topic string, event eventbus.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal event for redis publish", "topic", topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	if err := s.client.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
		s.logger.Error("publish event to redis", "topic", topic, "error", err)
	}
}

var _ eventbus.Sink = (*Sink)(nil)
