// Package runner defines the abstract AgentRunner collaborator of spec
// §6.1 — the opaque execution backend the scheduler core never implements
// itself.
package runner

import (
	"context"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
)

// Result is the outcome of one agent execution (spec §6.1).
type Result struct {
	Success  bool
	Error    string
	Duration time.Duration
}

// AgentRunner executes an agent and reports success/failure. The full
// AgentRecord is passed, not just its ID, so a runner can read execution
// details (method/URL/headers/body for the HTTP runner) out of
// Configuration. Must be safe to invoke concurrently for different
// agents; the core never calls it concurrently for the same agent ID.
type AgentRunner interface {
	Run(ctx context.Context, agent domain.AgentRecord) Result
}

// Func adapts a plain function to the AgentRunner interface, mirroring the
// http.HandlerFunc adapter idiom used throughout the pack for simple
// collaborators.
type Func func(ctx context.Context, agent domain.AgentRecord) Result

func (f Func) Run(ctx context.Context, agent domain.AgentRecord) Result { return f(ctx, agent) }
