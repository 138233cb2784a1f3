package domain

import "strings"

// Priority is a closed sum type used to order dispatch candidates.
// Modeled as a dedicated type rather than a bare int or string so the
// comparator and the API boundary's case-insensitive parsing live in one
// place (spec §9 Design Notes: "stringly-typed priority from config").
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority accepts case-insensitive strings only at the API boundary;
// internal code always works with the Priority type.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PriorityLow, true
	case "NORMAL":
		return PriorityNormal, true
	case "HIGH":
		return PriorityHigh, true
	case "CRITICAL":
		return PriorityCritical, true
	default:
		return 0, false
	}
}

// defaultPriorityByKind implements spec §4.9 step 3: a default table by
// agent kind, consulted only when no explicit override exists.
var defaultPriorityByKind = map[string]Priority{
	"CUSTOMER_SUPPORT":      PriorityHigh,
	"PERFORMANCE_OPTIMIZER": PriorityHigh,
}

// DerivePriority implements the full resolution order of spec §4.9:
// explicit override, then configuration string, then kind default, then
// NORMAL.
func DerivePriority(explicit *Priority, configured string, kind string) Priority {
	if explicit != nil {
		return *explicit
	}
	if p, ok := ParsePriority(configured); ok {
		return p
	}
	if p, ok := defaultPriorityByKind[strings.ToUpper(kind)]; ok {
		return p
	}
	return PriorityNormal
}
