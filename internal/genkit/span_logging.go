package genkit

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
)

// loggingSpanProcessor writes genkit spans to the logger at debug level.
type loggingSpanProcessor struct {
	verbose bool
	logger  *slog.Logger
}

var _ trace.SpanProcessor = (*loggingSpanProcessor)(nil)

func (l *loggingSpanProcessor) OnStart(ctx context.Context, s trace.ReadWriteSpan) {
	l.logger.DebugContext(ctx, "span start", l.buildArgs(s)...)
}

func (l *loggingSpanProcessor) OnEnd(s trace.ReadOnlySpan) {
	args := append(l.buildArgs(s), slog.Duration("elapsed", s.EndTime().Sub(s.StartTime())))
	if s.Status().Code == codes.Error {
		l.logger.Warn("span failed", append(args, slog.String("status", s.Status().Description))...)
		return
	}
	l.logger.Debug("span end", args...)
}

func (l *loggingSpanProcessor) Shutdown(context.Context) error {
	return nil
}

func (l *loggingSpanProcessor) ForceFlush(context.Context) error {
	return nil
}

func (l *loggingSpanProcessor) buildArgs(s trace.ReadOnlySpan) []any {
	args := []any{
		slog.String("name", s.Name()),
	}
	for _, attr := range s.Attributes() {
		value := attr.Value.Emit()
		if !l.verbose && len(value) > 256 {
			continue
		}
		args = append(args, slog.String(string(attr.Key), value))
	}
	return args
}
