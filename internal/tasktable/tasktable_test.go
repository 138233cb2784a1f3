package tasktable_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/tasktable"
)

func TestUpsertAndGet(t *testing.T) {
	tbl := tasktable.New()
	tbl.Upsert(&domain.ScheduledTask{AgentID: "a1", Priority: domain.PriorityNormal})

	got, ok := tbl.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "a1", got.AgentID)

	_, ok = tbl.Get("missing")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	tbl := tasktable.New()
	tbl.Upsert(&domain.ScheduledTask{AgentID: "a1"})
	tbl.Remove("a1")

	_, ok := tbl.Get("a1")
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestRecordSuccess_ClearsRetryState(t *testing.T) {
	tbl := tasktable.New()
	backoff := time.Now().Add(time.Minute)
	tbl.Upsert(&domain.ScheduledTask{
		AgentID:      "a1",
		RetryCount:   2,
		LastError:    "boom",
		BackoffUntil: &backoff,
	})

	next := time.Now().Add(time.Hour)
	tbl.RecordSuccess("a1", next)

	got, _ := tbl.Get("a1")
	assert.Zero(t, got.RetryCount)
	assert.Empty(t, got.LastError)
	assert.Nil(t, got.BackoffUntil)
	assert.Equal(t, next, got.NextRunTime)
}

func TestRecordRetry_IncrementsCountAndSetsBackoff(t *testing.T) {
	tbl := tasktable.New()
	tbl.Upsert(&domain.ScheduledTask{AgentID: "a1"})

	until := time.Now().Add(30 * time.Second)
	tbl.RecordRetry("a1", "connection refused", until)

	got, _ := tbl.Get("a1")
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "connection refused", got.LastError)
	require.NotNil(t, got.BackoffUntil)
	assert.Equal(t, until, *got.BackoffUntil)
}

func TestSetPausedAndMarkRunning(t *testing.T) {
	tbl := tasktable.New()
	tbl.Upsert(&domain.ScheduledTask{AgentID: "a1"})

	tbl.SetPaused("a1", true)
	got, _ := tbl.Get("a1")
	assert.True(t, got.IsPaused)

	tbl.MarkRunning("a1", true)
	got, _ = tbl.Get("a1")
	assert.True(t, got.IsRunning)
}

func TestList_ReturnsDefensiveCopies(t *testing.T) {
	tbl := tasktable.New()
	tbl.Upsert(&domain.ScheduledTask{AgentID: "a1", RetryCount: 0})

	list := tbl.List()
	list[0].RetryCount = 99

	got, _ := tbl.Get("a1")
	assert.Zero(t, got.RetryCount, "mutating a List() copy must not affect table state")
}
