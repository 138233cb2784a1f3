// Package handler binds the ControlAPI operations of spec §4.7 onto gin
// HTTP routes, in the teacher's handler-wraps-usecase style (here a
// handler wraps *scheduler.Core directly, since Core already plays the
// usecase role spec §9 calls out).
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/scheduler"
)

type SchedulerHandler struct {
	core   *scheduler.Core
	logger *slog.Logger
}

func NewSchedulerHandler(core *scheduler.Core, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{core: core, logger: logger.With("component", "scheduler_handler")}
}

type scheduleRequest struct {
	CronExpression string  `json:"cronExpression" binding:"required"`
	PriorityHint   *string `json:"priorityHint"`
	Enabled        *bool   `json:"enabled"`
}

func (h *SchedulerHandler) Schedule(c *gin.Context) {
	agentID := c.Param("id")

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var priority *domain.Priority
	if req.PriorityHint != nil {
		p, ok := domain.ParsePriority(*req.PriorityHint)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priorityHint"})
			return
		}
		priority = &p
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	if err := h.core.Schedule(c.Request.Context(), agentID, req.CronExpression, priority, enabled); err != nil {
		h.writeError(c, agentID, "schedule", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SchedulerHandler) Unschedule(c *gin.Context) {
	agentID := c.Param("id")
	if err := h.core.Unschedule(c.Request.Context(), agentID); err != nil {
		h.writeError(c, agentID, "unschedule", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SchedulerHandler) RunNow(c *gin.Context) {
	agentID := c.Param("id")
	if err := h.core.RunNow(c.Request.Context(), agentID); err != nil {
		h.writeError(c, agentID, "run_now", err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *SchedulerHandler) Pause(c *gin.Context) {
	agentID := c.Param("id")
	if err := h.core.PauseJob(c.Request.Context(), agentID); err != nil {
		h.writeError(c, agentID, "pause", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SchedulerHandler) Resume(c *gin.Context) {
	agentID := c.Param("id")
	if err := h.core.ResumeJob(c.Request.Context(), agentID); err != nil {
		h.writeError(c, agentID, "resume", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SchedulerHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.GetStats())
}

func (h *SchedulerHandler) TaskDetails(c *gin.Context) {
	agentID := c.Param("id")
	task, err := h.core.GetTaskDetails(agentID)
	if err != nil {
		h.writeError(c, agentID, "task_details", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *SchedulerHandler) PausedJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pausedJobs": h.core.GetPausedJobs()})
}

func (h *SchedulerHandler) ListTaskDetails(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.ListTaskDetails())
}

func (h *SchedulerHandler) writeError(c *gin.Context, agentID, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCron):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCron})
	case errors.Is(err, domain.ErrAgentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errAgentNotFound})
	case errors.Is(err, domain.ErrNotScheduled):
		c.JSON(http.StatusNotFound, gin.H{"error": errNotScheduled})
	case errors.Is(err, domain.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": errAlreadyRunning})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": errConflict})
	case errors.Is(err, domain.ErrNotPaused):
		c.JSON(http.StatusConflict, gin.H{"error": errNotPaused})
	default:
		h.logger.Error("scheduler control api error", "op", op, "agent_id", agentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
