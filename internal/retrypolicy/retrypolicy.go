// Package retrypolicy implements the pure attempt -> outcome function of
// spec §4.5, grounded on internal/scheduler/worker.go's retryDelay from the
// teacher repo (exponential backoff capped at a ceiling).
package retrypolicy

import "time"

const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = 1 * time.Second
	DefaultMaxBackoff  = 300 * time.Second
)

type Policy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func Default() Policy {
	return Policy{
		MaxRetries:  DefaultMaxRetries,
		BaseBackoff: DefaultBaseBackoff,
		MaxBackoff:  DefaultMaxBackoff,
	}
}

type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeTerminal
)

// Decide implements spec §4.5: attempt n is 1-indexed (first try is 1).
// n > MaxRetries is terminal; otherwise the task retries after
// min(MaxBackoff, BaseBackoff * 2^(n-1)).
func (p Policy) Decide(attempt int) (Outcome, time.Duration) {
	if attempt > p.MaxRetries {
		return OutcomeTerminal, 0
	}
	delay := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			delay = p.MaxBackoff
			break
		}
	}
	if delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}
	return OutcomeRetry, delay
}
