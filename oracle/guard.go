package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/metrics"
	"github.com/habiliai/agentmemory/internal/mylog"
)

// Guarded wraps an Oracle with a per-attempt timeout, bounded retries with
// exponential backoff and a circuit breaker. Malformed answers are returned
// as-is and never retried. Every other failure comes back marked
// errors.ErrOracleUnavailable.
type Guarded struct {
	next       Oracle
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	breaker    *Breaker
	logger     *slog.Logger
}

var (
	_ Oracle = (*Guarded)(nil)
)

func NewGuarded(next Oracle, conf *config.OracleConfig, logger *slog.Logger) *Guarded {
	return &Guarded{
		next:       next,
		timeout:    conf.Timeout,
		maxRetries: conf.MaxRetries,
		backoff:    conf.RetryBackoff,
		breaker:    NewBreaker(conf.Breaker),
		logger:     mylog.OrDefault(logger),
	}
}

func (g *Guarded) Breaker() *Breaker {
	return g.breaker
}

func (g *Guarded) Invoke(ctx context.Context, kind TaskKind, payload any, out any) error {
	startedAt := time.Now()
	defer func() {
		metrics.OracleLatency.WithLabelValues(string(kind)).Observe(time.Since(startedAt).Seconds())
	}()

	if !g.breaker.Allow() {
		metrics.OracleCallsTotal.WithLabelValues(string(kind), "rejected").Inc()
		return errors.Wrapf(errors.ErrOracleUnavailable, "circuit breaker is open for %s", kind)
	}

	var err error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			wait := g.backoff * time.Duration(1<<(attempt-1))
			g.logger.Debug("retrying oracle call",
				slog.String("task", string(kind)),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
			)
			select {
			case <-ctx.Done():
				g.breaker.RecordFailure()
				metrics.OracleCallsTotal.WithLabelValues(string(kind), "unavailable").Inc()
				return errors.Wrapf(errors.Mark(ctx.Err(), errors.ErrOracleUnavailable), "oracle %s cancelled", kind)
			case <-time.After(wait):
			}
		}

		err = g.attempt(ctx, kind, payload, out)
		if err == nil {
			g.breaker.RecordSuccess()
			metrics.OracleCallsTotal.WithLabelValues(string(kind), "ok").Inc()
			return nil
		}
		if errors.Is(err, errors.ErrOracleMalformed) {
			// the oracle is reachable, it just answered badly
			g.breaker.RecordSuccess()
			metrics.OracleCallsTotal.WithLabelValues(string(kind), "malformed").Inc()
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}

	g.breaker.RecordFailure()
	metrics.OracleCallsTotal.WithLabelValues(string(kind), "unavailable").Inc()
	return err
}

func (g *Guarded) attempt(ctx context.Context, kind TaskKind, payload any, out any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := g.next.Invoke(ctx, kind, payload, out)
	if err == nil || errors.Is(err, errors.ErrOracleMalformed) || errors.Is(err, errors.ErrOracleUnavailable) {
		return err
	}
	return errors.Wrapf(errors.Mark(err, errors.ErrOracleUnavailable), "oracle %s failed", kind)
}
