package oracle_test

import (
	"testing"
	"time"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStateString(t *testing.T) {
	tests := []struct {
		state oracle.BreakerState
		want  string
	}{
		{oracle.BreakerClosed, "closed"},
		{oracle.BreakerOpen, "open"},
		{oracle.BreakerHalfOpen, "half-open"},
		{oracle.BreakerState(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestBreaker(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	b := oracle.NewBreaker(config.BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		CoolDown:         30 * time.Second,
	})
	b.SetClock(func() time.Time { return now })

	t.Run("successes reset the failure count", func(t *testing.T) {
		for range 2 {
			require.True(t, b.Allow())
			b.RecordFailure()
		}
		b.RecordSuccess()
		for range 2 {
			require.True(t, b.Allow())
			b.RecordFailure()
		}
		assert.Equal(t, oracle.BreakerClosed, b.State())
	})

	t.Run("consecutive failures open it", func(t *testing.T) {
		b.RecordFailure()
		assert.Equal(t, oracle.BreakerOpen, b.State())
		assert.False(t, b.Allow())
	})

	t.Run("a single probe after cool-down", func(t *testing.T) {
		now = now.Add(31 * time.Second)
		assert.True(t, b.Allow())
		assert.Equal(t, oracle.BreakerHalfOpen, b.State())
		assert.False(t, b.Allow(), "only one probe at a time")
	})

	t.Run("a failed probe reopens it", func(t *testing.T) {
		b.RecordFailure()
		assert.Equal(t, oracle.BreakerOpen, b.State())
		assert.False(t, b.Allow())
	})

	t.Run("a successful probe closes it", func(t *testing.T) {
		now = now.Add(31 * time.Second)
		require.True(t, b.Allow())
		b.RecordSuccess()
		assert.Equal(t, oracle.BreakerClosed, b.State())
		assert.True(t, b.Allow())
	})
}
