package oracle

import (
	"sync"
	"time"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/internal/metrics"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calls to an oracle that keeps failing. It opens after
// FailureThreshold consecutive failures, lets a single probe through once
// CoolDown has passed, and closes after SuccessThreshold probe successes.
type Breaker struct {
	mu            sync.Mutex
	state         BreakerState
	failures      int
	successes     int
	probing       bool
	openedAt      time.Time
	conf          config.BreakerConfig
	now           func() time.Time
	onStateChange func(from, to BreakerState)
}

func NewBreaker(conf config.BreakerConfig) *Breaker {
	if conf.SuccessThreshold <= 0 {
		conf.SuccessThreshold = 1
	}
	return &Breaker{
		state: BreakerClosed,
		conf:  conf,
		now:   time.Now,
		onStateChange: func(_, to BreakerState) {
			metrics.OracleBreakerState.Set(float64(to))
		},
	}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.conf.CoolDown {
			return false
		}
		b.transitionTo(BreakerHalfOpen)
		b.probing = true
		return true
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.probing = false
		b.successes++
		if b.successes >= b.conf.SuccessThreshold {
			b.transitionTo(BreakerClosed)
			b.failures = 0
			b.successes = 0
		}
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.conf.FailureThreshold {
			b.open()
		}
	case BreakerHalfOpen:
		b.open()
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) open() {
	b.transitionTo(BreakerOpen)
	b.openedAt = b.now()
	b.probing = false
	b.successes = 0
}

// requires b.mu
func (b *Breaker) transitionTo(state BreakerState) {
	if b.state == state {
		return
	}
	from := b.state
	b.state = state
	if b.onStateChange != nil {
		b.onStateChange(from, state)
	}
}
