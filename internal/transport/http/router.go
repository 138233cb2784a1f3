// Package httptransport wires the ControlAPI's gin routes, grounded on the
// teacher's internal/transport/http/router.go.
package httptransport

import (
	"github.com/gin-gonic/gin"

	"github.com/nova-labs/agentsched/internal/sink/wssink"
	"github.com/nova-labs/agentsched/internal/transport/http/handler"
	"github.com/nova-labs/agentsched/internal/transport/http/middleware"
)

func NewRouter(schedHandler *handler.SchedulerHandler, healthHandler *handler.HealthHandler, wsHub *wssink.Hub, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Metrics())

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/events", gin.WrapH(wsHub))

	agents := r.Group("/agents/:id", middleware.Auth(jwtKey))
	agents.POST("/schedule", schedHandler.Schedule)
	agents.DELETE("/schedule", schedHandler.Unschedule)
	agents.POST("/run-now", schedHandler.RunNow)
	agents.POST("/pause", schedHandler.Pause)
	agents.POST("/resume", schedHandler.Resume)
	agents.GET("/task", schedHandler.TaskDetails)

	scheduler := r.Group("/scheduler", middleware.Auth(jwtKey))
	scheduler.GET("/stats", schedHandler.Stats)
	scheduler.GET("/paused", schedHandler.PausedJobs)
	scheduler.GET("/tasks", schedHandler.ListTaskDetails)

	return r
}
