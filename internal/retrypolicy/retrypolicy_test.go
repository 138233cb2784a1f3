package retrypolicy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nova-labs/agentsched/internal/retrypolicy"
)

func TestDecide_ExponentialBackoffUntilCap(t *testing.T) {
	p := retrypolicy.Policy{MaxRetries: 5, BaseBackoff: time.Second, MaxBackoff: 10 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // would be 16s, capped
	}

	for _, tc := range cases {
		outcome, delay := p.Decide(tc.attempt)
		assert.Equal(t, retrypolicy.OutcomeRetry, outcome, "attempt %d", tc.attempt)
		assert.Equal(t, tc.want, delay, "attempt %d", tc.attempt)
	}
}

func TestDecide_BeyondMaxRetriesIsTerminal(t *testing.T) {
	p := retrypolicy.Default()

	outcome, delay := p.Decide(p.MaxRetries + 1)

	assert.Equal(t, retrypolicy.OutcomeTerminal, outcome)
	assert.Zero(t, delay)
}

func TestDefault_MatchesDocumentedConstants(t *testing.T) {
	p := retrypolicy.Default()

	assert.Equal(t, retrypolicy.DefaultMaxRetries, p.MaxRetries)
	assert.Equal(t, retrypolicy.DefaultBaseBackoff, p.BaseBackoff)
	assert.Equal(t, retrypolicy.DefaultMaxBackoff, p.MaxBackoff)
}
