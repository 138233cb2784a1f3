package httptransport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/agentsched/internal/clock"
	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/eventbus"
	"github.com/nova-labs/agentsched/internal/health"
	"github.com/nova-labs/agentsched/internal/repository/memstore"
	"github.com/nova-labs/agentsched/internal/runner"
	"github.com/nova-labs/agentsched/internal/scheduler"
	"github.com/nova-labs/agentsched/internal/sink/wssink"
	httptransport "github.com/nova-labs/agentsched/internal/transport/http"
	"github.com/nova-labs/agentsched/internal/transport/http/handler"

	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
)

const routerTestKey = "router-test-secret-at-least-32-chars"

func init() {
	gin.SetMode(gin.TestMode)
}

func bearerToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(routerTestKey))
	require.NoError(t, err)
	return signed
}

func newTestRouter(t *testing.T) (*gin.Engine, *memstore.AgentStore) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := memstore.New()

	bus := eventbus.New(logger)
	core := scheduler.New(scheduler.DefaultConfig(), store, runner.Func(func(context.Context, domain.AgentRecord) runner.Result {
		return runner.Result{Success: true}
	}), bus, clock.NewSystem(), logger, nil)

	schedHandler := handler.NewSchedulerHandler(core, logger)
	checker := health.NewChecker(map[string]health.Pinger{}, logger, prometheus.NewRegistry())
	healthHandler := handler.NewHealthHandler(checker)
	wsHub := wssink.NewHub(logger)

	router := httptransport.NewRouter(schedHandler, healthHandler, wsHub, []byte(routerTestKey))
	return router, store
}

func TestRouter_HealthEndpointsAreUnauthenticated(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ScheduleRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	body := strings.NewReader(`{"cronExpression": "*/5 * * * *"}`)
	req := httptest.NewRequest(http.MethodPost, "/agents/agent-1/schedule", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ScheduleUnknownAgent_Returns404(t *testing.T) {
	router, _ := newTestRouter(t)

	body := strings.NewReader(`{"cronExpression": "*/5 * * * *"}`)
	req := httptest.NewRequest(http.MethodPost, "/agents/missing-agent/schedule", body)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ScheduleAndRunNow(t *testing.T) {
	router, store := newTestRouter(t)
	now := time.Now()
	store.Seed(domain.AgentRecord{ID: "agent-1", Name: "agent-1", Kind: "GENERIC", Status: domain.StatusIdle, NextRunAt: &now})

	token := bearerToken(t)

	body := strings.NewReader(`{"cronExpression": "*/5 * * * *"}`)
	req := httptest.NewRequest(http.MethodPost, "/agents/agent-1/schedule", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/agents/agent-1/task", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var task domain.ScheduledTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, "agent-1", task.AgentID)

	req = httptest.NewRequest(http.MethodPost, "/agents/agent-1/run-now", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRouter_DoublePauseIsIdempotent(t *testing.T) {
	router, store := newTestRouter(t)
	now := time.Now()
	store.Seed(domain.AgentRecord{ID: "agent-1", Status: domain.StatusIdle, NextRunAt: &now})
	token := bearerToken(t)

	schedule := func() {
		req := httptest.NewRequest(http.MethodPost, "/agents/agent-1/schedule", strings.NewReader(`{"cronExpression": "*/5 * * * *"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	schedule()

	pause := func() int {
		req := httptest.NewRequest(http.MethodPost, "/agents/agent-1/pause", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Pausing an already-paused agent is idempotent, not a conflict; only
	// pausing a currently *running* agent is (exercised at the scheduler.Core
	// level in TestControlAPI_PauseRunningAgent_ReturnsConflict, since
	// triggering an in-flight dispatch needs a blocking runner this router's
	// always-succeeds fake doesn't provide).
	assert.Equal(t, http.StatusNoContent, pause())
	assert.Equal(t, http.StatusNoContent, pause())
}

func TestRouter_ScheduleDisabled_RemovesTaskAndReturns404ForDetails(t *testing.T) {
	router, store := newTestRouter(t)
	now := time.Now()
	store.Seed(domain.AgentRecord{ID: "agent-1", Status: domain.StatusIdle, NextRunAt: &now})
	token := bearerToken(t)

	req := httptest.NewRequest(http.MethodPost, "/agents/agent-1/schedule", strings.NewReader(`{"cronExpression": "*/5 * * * *"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/agents/agent-1/schedule", strings.NewReader(`{"cronExpression": "*/5 * * * *", "enabled": false}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/agents/agent-1/task", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ListTaskDetails(t *testing.T) {
	router, store := newTestRouter(t)
	now := time.Now()
	store.Seed(domain.AgentRecord{ID: "agent-1", Status: domain.StatusIdle, NextRunAt: &now})
	store.Seed(domain.AgentRecord{ID: "agent-2", Status: domain.StatusIdle, NextRunAt: &now})
	token := bearerToken(t)

	for _, id := range []string{"agent-1", "agent-2"} {
		req := httptest.NewRequest(http.MethodPost, "/agents/"+id+"/schedule", strings.NewReader(`{"cronExpression": "*/5 * * * *"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/scheduler/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var tasks []domain.ScheduledTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 2)
}

func TestRouter_StatsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := bearerToken(t)

	req := httptest.NewRequest(http.MethodGet, "/scheduler/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stats scheduler.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.ScheduledCount)
}
