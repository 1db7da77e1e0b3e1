package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := New(3, time.Minute, 2)

	assert.True(t, cb.CanExecute())
	cb.OnFailure()
	cb.OnFailure()
	assert.True(t, cb.CanExecute())
	cb.OnFailure()

	assert.Equal(t, StateOpen, cb.CurrentState())
	assert.False(t, cb.CanExecute())
}

func TestBreakerAllowsProbeAfterCooldown(t *testing.T) {
	cb := New(1, 10*time.Millisecond, 1)

	cb.OnFailure()
	assert.False(t, cb.CanExecute())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.CanExecute(), "cooldown elapsed, a probe request may pass")
}

func TestBreakerClosesAfterSuccessfulProbes(t *testing.T) {
	cb := New(1, time.Millisecond, 2)

	cb.OnFailure()
	time.Sleep(5 * time.Millisecond)

	cb.OnSuccess()
	assert.Equal(t, StateHalfOpen, cb.CurrentState())
	cb.OnSuccess()
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(1, time.Millisecond, 2)

	cb.OnFailure()
	time.Sleep(5 * time.Millisecond)
	cb.OnSuccess()
	cb.OnFailure()

	assert.Equal(t, StateOpen, cb.CurrentState())
}
