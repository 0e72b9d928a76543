package config

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNewLogger_ServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggerConfig{Level: "warn", Format: "json"}, "repairshop-api", &buf)

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	line := decodeLine(t, &buf)
	assert.Equal(t, "repairshop-api", line["service"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "kept", line["message"])
	assert.NotContains(t, line, "caller")
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggerConfig{Level: "verbose", Format: "json"}, "svc", &buf)

	logger.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Info().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewLogger_DebugAddsCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggerConfig{Level: "debug", Format: "json"}, "svc", &buf)

	logger.Debug().Msg("here")

	line := decodeLine(t, &buf)
	assert.Contains(t, line["caller"], "logger_test.go")
}

func TestNewLogger_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggerConfig{Level: "info", Format: "json"}, "svc", &buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.Info().Ctx(ctx).Msg("traced")
	line := decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", line["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", line["span_id"])

	buf.Reset()
	logger.Info().Msg("untraced")
	assert.NotContains(t, decodeLine(t, &buf), "trace_id")
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggerConfig{Level: "info", Format: "console"}, "svc", &buf)

	logger.Info().Msg("booking created")

	out := buf.String()
	assert.Contains(t, out, "booking created")
	assert.Contains(t, out, "svc")
	assert.False(t, json.Valid(buf.Bytes()))
}
