// Package repository defines the storage-facing interfaces the scheduler
// core depends on, mirroring the teacher's repository-interface discipline
// (internal/repository/*.go): the core depends on an interface, never a
// concrete store, so persistence can be swapped and faked in tests.
package repository

import (
	"context"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
)

// ScheduleUpdate is a partial update applied to an AgentRecord's schedule
// fields (spec §6.1).
type ScheduleUpdate struct {
	Expression         *string
	Enabled            *bool
	NextRunAt          *time.Time
	LastRunAt          *time.Time
	Status             *domain.Status
	ConfigurationPatch map[string]any
}

// AgentStore is the abstract persistence collaborator of spec §6.1.
type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*domain.AgentRecord, error)
	ListScheduledEnabled(ctx context.Context) ([]*domain.AgentRecord, error)
	UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) error
	SetStatus(ctx context.Context, id string, status domain.Status) error
}
