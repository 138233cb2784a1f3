package priorityqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/priorityqueue"
)

func TestBuild_PopsHighestPriorityFirst(t *testing.T) {
	now := time.Now()
	tasks := []domain.ScheduledTask{
		{AgentID: "low", Priority: domain.PriorityLow, NextRunTime: now},
		{AgentID: "critical", Priority: domain.PriorityCritical, NextRunTime: now},
		{AgentID: "normal", Priority: domain.PriorityNormal, NextRunTime: now},
	}

	q := priorityqueue.Build(tasks)

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "critical", first.AgentID)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "normal", second.AgentID)

	third, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "low", third.AgentID)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestBuild_TiesBrokenByEarlierNextRunTimeThenAgentID(t *testing.T) {
	now := time.Now()
	tasks := []domain.ScheduledTask{
		{AgentID: "b", Priority: domain.PriorityNormal, NextRunTime: now.Add(time.Minute)},
		{AgentID: "a", Priority: domain.PriorityNormal, NextRunTime: now},
		{AgentID: "c", Priority: domain.PriorityNormal, NextRunTime: now},
	}

	q := priorityqueue.Build(tasks)

	first, _ := q.Pop()
	assert.Equal(t, "a", first.AgentID, "earlier NextRunTime wins, then lexical AgentID")

	second, _ := q.Pop()
	assert.Equal(t, "c", second.AgentID)

	third, _ := q.Pop()
	assert.Equal(t, "b", third.AgentID)
}

func TestEligible_FiltersPausedBackoffAndInFlight(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)

	tasks := []domain.ScheduledTask{
		{AgentID: "ready", NextRunTime: now.Add(-time.Second)},
		{AgentID: "paused", NextRunTime: now.Add(-time.Second), IsPaused: true},
		{AgentID: "not-due", NextRunTime: future},
		{AgentID: "backing-off", NextRunTime: now.Add(-time.Second), BackoffUntil: &future},
		{AgentID: "in-flight", NextRunTime: now.Add(-time.Second)},
	}
	running := map[string]struct{}{"in-flight": {}}

	eligible := priorityqueue.Eligible(tasks, now, running)

	ids := make([]string, 0, len(eligible))
	for _, task := range eligible {
		ids = append(ids, task.AgentID)
	}
	assert.Equal(t, []string{"ready"}, ids)
}
