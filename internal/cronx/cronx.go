// Package cronx wraps robfig/cron's standard 5-field parser behind the
// scheduler's nextAfter operation (spec §4.1). robfig/cron/v3's
// ParseStandard already fires on the union of day-of-month and
// day-of-week when both are restricted, which is the ambiguity policy
// spec §4.1 and §9 OQ4 mandate — so this package adds no custom cron math,
// only the deterministic "strictly after t" contract the scheduler needs.
package cronx

import (
	"fmt"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
	"github.com/robfig/cron/v3"
)

// NextAfter returns the earliest fire time of expr strictly greater than t.
// Returns domain.ErrInvalidCron (wrapped) if expr cannot be parsed.
func NextAfter(expr string, t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", expr, domain.ErrInvalidCron)
	}
	return sched.Next(t), nil
}

// Validate reports whether expr is parseable by cron.ParseStandard: a
// standard 5-field cron expression or a descriptor such as "@every 10s".
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", expr, domain.ErrInvalidCron)
	}
	return nil
}
