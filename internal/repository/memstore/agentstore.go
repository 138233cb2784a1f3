// Package memstore implements an in-memory AgentStore used by the dev
// server entrypoint and by scheduler tests, matching the teacher's
// fakes-behind-the-repository-interface discipline rather than a
// mock-generator library (the teacher has no in-memory repository, but its
// repository.go interfaces are written to be trivially fakeable this way).
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/repository"
)

type AgentStore struct {
	mu     sync.Mutex
	agents map[string]*domain.AgentRecord
}

func New() *AgentStore {
	return &AgentStore{agents: make(map[string]*domain.AgentRecord)}
}

// Seed inserts or replaces a record directly, used by tests and cmd/seed
// style bootstrapping.
func (s *AgentStore) Seed(rec domain.AgentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec
	s.agents[rec.ID] = &cp
}

func (s *AgentStore) GetAgent(_ context.Context, id string) (*domain.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.agents[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *AgentStore) ListScheduledEnabled(_ context.Context) ([]*domain.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AgentRecord, 0, len(s.agents))
	for _, rec := range s.agents {
		if rec.ScheduleEnabled {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *AgentStore) UpdateSchedule(_ context.Context, id string, update repository.ScheduleUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}

	if update.Expression != nil {
		rec.ScheduleExpression = *update.Expression
	}
	if update.Enabled != nil {
		rec.ScheduleEnabled = *update.Enabled
	}
	if update.NextRunAt != nil {
		next := *update.NextRunAt
		rec.NextRunAt = &next
	}
	if update.LastRunAt != nil {
		last := *update.LastRunAt
		rec.LastRunAt = &last
	}
	if update.Status != nil {
		rec.Status = *update.Status
	}
	if update.ConfigurationPatch != nil {
		if rec.Configuration == nil {
			rec.Configuration = make(map[string]any, len(update.ConfigurationPatch))
		}
		for k, v := range update.ConfigurationPatch {
			rec.Configuration[k] = v
		}
	}
	return nil
}

func (s *AgentStore) SetStatus(_ context.Context, id string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}
	rec.Status = status
	if status == domain.StatusRunning {
		now := time.Now()
		rec.LastRunAt = &now
	}
	return nil
}

var _ repository.AgentStore = (*AgentStore)(nil)
