package eventbus_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/agentsched/internal/eventbus"
)

type recordingSink struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (s *recordingSink) OnEvent(_ string, event eventbus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []eventbus.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]eventbus.Event(nil), s.events...)
}

func newTestBus() *eventbus.Bus {
	return eventbus.New(slog.New(slog.DiscardHandler))
}

func TestPublish_DeliversInOrderPerSink(t *testing.T) {
	bus := newTestBus()
	sink := &recordingSink{}
	bus.Subscribe(eventbus.GlobalTopic, sink)

	bus.Publish(context.Background(), eventbus.GlobalTopic, eventbus.Event{Type: eventbus.AgentStarted})
	bus.Publish(context.Background(), eventbus.GlobalTopic, eventbus.Event{Type: eventbus.AgentCompleted})

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, time.Second, time.Millisecond)

	events := sink.snapshot()
	assert.Equal(t, eventbus.AgentStarted, events[0].Type)
	assert.Equal(t, eventbus.AgentCompleted, events[1].Type)
}

func TestPublish_OnlyDeliversToSubscribedTopic(t *testing.T) {
	bus := newTestBus()
	sink := &recordingSink{}
	bus.Subscribe(eventbus.AgentTopic("agent-1"), sink)

	bus.Publish(context.Background(), eventbus.AgentTopic("agent-2"), eventbus.Event{Type: eventbus.AgentStarted})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	bus := newTestBus()
	sink := &recordingSink{}
	unsubscribe := bus.Subscribe(eventbus.GlobalTopic, sink)

	unsubscribe()
	bus.Publish(context.Background(), eventbus.GlobalTopic, eventbus.Event{Type: eventbus.AgentStarted})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}

// panickingSink verifies that one sink's panic is isolated from others.
type panickingSink struct{}

func (panickingSink) OnEvent(_ string, _ eventbus.Event) { panic("boom") }

func TestDeliver_SinkPanicDoesNotStopOtherSinks(t *testing.T) {
	bus := newTestBus()
	bus.Subscribe(eventbus.GlobalTopic, panickingSink{})
	sink := &recordingSink{}
	bus.Subscribe(eventbus.GlobalTopic, sink)

	bus.Publish(context.Background(), eventbus.GlobalTopic, eventbus.Event{Type: eventbus.AgentStarted})

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, time.Millisecond)
}
