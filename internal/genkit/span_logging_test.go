package genkit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLoggingSpanProcessor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&loggingSpanProcessor{logger: logger}))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(t.Context(), "generate")
	span.SetAttributes(
		attribute.String("genkit:type", "action"),
		attribute.String("genkit:input", strings.Repeat("x", 300)),
	)
	span.SetStatus(codes.Error, "deadline exceeded")
	span.End()

	out := buf.String()
	assert.Contains(t, out, "span start")
	assert.Contains(t, out, "span failed")
	assert.Contains(t, out, "genkit:type=action")
	assert.NotContains(t, out, "genkit:input", "long attributes are elided unless verbose")
	assert.Contains(t, out, "deadline exceeded")
}
