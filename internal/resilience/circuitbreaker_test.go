package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/agentsched/internal/resilience"
)

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		MaxRequests:      1,
	})

	boom := errors.New("boom")
	_ = cb.Execute(context.Background(), func(context.Context) error { return boom })
	_ = cb.Execute(context.Background(), func(context.Context) error { return boom })

	assert.Equal(t, resilience.CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterTimeoutThenCloses(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
		MaxRequests:      1,
	})

	boom := errors.New("boom")
	_ = cb.Execute(context.Background(), func(context.Context) error { return boom })
	require.Equal(t, resilience.CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, resilience.CircuitClosed, cb.State())
}

func TestCircuitBreaker_ContextCancellationDoesNotCountAsFailure(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		MaxRequests:      1,
	})

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.CircuitClosed, cb.State(), "cancellation should not trip the breaker")
}
