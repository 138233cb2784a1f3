// Package postgres implements the AgentStore interface against a Postgres
// schema of agents, grounded on the teacher's internal/infrastructure/postgres
// job repository: pgx/v5 + pgxpool, hand-written SQL, sentinel-error
// translation at the scan boundary.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/nova-labs/agentsched/internal/repository"
)

// NewPool opens a pgxpool tuned the way the teacher tunes its job-scheduler
// pool: bounded connection counts, health checks, and a connect timeout so
// a dead database fails fast at startup rather than hanging cmd/scheduler.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// AgentStore persists AgentRecord rows in a Postgres "agents" table.
type AgentStore struct {
	pool *pgxpool.Pool
}

func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

func (s *AgentStore) GetAgent(ctx context.Context, id string) (*domain.AgentRecord, error) {
	const query = `
		SELECT id, name, kind, schedule_expression, schedule_enabled,
		       priority_hint, next_run_at, last_run_at, status, configuration
		FROM agents
		WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	rec, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (s *AgentStore) ListScheduledEnabled(ctx context.Context) ([]*domain.AgentRecord, error) {
	const query = `
		SELECT id, name, kind, schedule_expression, schedule_enabled,
		       priority_hint, next_run_at, last_run_at, status, configuration
		FROM agents
		WHERE schedule_enabled = true`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scheduled agents: %w", err)
	}
	defer rows.Close()

	var out []*domain.AgentRecord
	for rows.Next() {
		rec, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateSchedule applies a partial update. Only non-nil fields of update
// are written; ConfigurationPatch is merged into the existing JSONB blob
// with Postgres's `||` operator rather than round-tripped through Go.
func (s *AgentStore) UpdateSchedule(ctx context.Context, id string, update repository.ScheduleUpdate) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	args = append(args, id)

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if update.Expression != nil {
		add("schedule_expression", *update.Expression)
	}
	if update.Enabled != nil {
		add("schedule_enabled", *update.Enabled)
	}
	if update.NextRunAt != nil {
		add("next_run_at", *update.NextRunAt)
	}
	if update.LastRunAt != nil {
		add("last_run_at", *update.LastRunAt)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.ConfigurationPatch != nil {
		patch, err := json.Marshal(update.ConfigurationPatch)
		if err != nil {
			return fmt.Errorf("marshal configuration patch: %w", err)
		}
		args = append(args, patch)
		sets = append(sets, fmt.Sprintf("configuration = configuration || $%d::jsonb", len(args)))
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE agents SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += ", updated_at = NOW() WHERE id = $1"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (s *AgentStore) SetStatus(ctx context.Context, id string, status domain.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.AgentRecord, error) {
	var (
		rec          domain.AgentRecord
		priorityHint *string
		configRaw    []byte
	)

	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.Kind, &rec.ScheduleExpression, &rec.ScheduleEnabled,
		&priorityHint, &rec.NextRunAt, &rec.LastRunAt, &rec.Status, &configRaw,
	); err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}

	if priorityHint != nil {
		if p, ok := domain.ParsePriority(*priorityHint); ok {
			rec.PriorityHint = &p
		}
	}
	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &rec.Configuration); err != nil {
			return nil, fmt.Errorf("unmarshal configuration: %w", err)
		}
	}
	return &rec, nil
}
