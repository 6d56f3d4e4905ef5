package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func TestTraceOp_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceOp(context.Background(), "sqlite", "kv.Get", "SELECT value FROM kv_entries WHERE key = ?")
	end(nil)

	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}

	span := spans[0]
	if span.Name != "db.kv.Get" {
		t.Errorf("span name = %q, want %q", span.Name, "db.kv.Get")
	}

	attrs := make(map[string]string)
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	if attrs["db.system"] != "sqlite" {
		t.Errorf("db.system = %q, want %q", attrs["db.system"], "sqlite")
	}
	if attrs["db.operation"] != "kv.Get" {
		t.Errorf("db.operation = %q, want %q", attrs["db.operation"], "kv.Get")
	}
	if attrs["db.statement"] != "SELECT value FROM kv_entries WHERE key = ?" {
		t.Errorf("db.statement = %q, want the SQL text", attrs["db.statement"])
	}
	if span.Status.Code != codes.Unset {
		t.Errorf("span status = %v, want Unset", span.Status.Code)
	}
}

func TestTraceOp_NoStatementAttribute(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceOp(context.Background(), "redis", "kv.Set", "")
	end(nil)

	span := exporter.GetSpans()[0]
	for _, a := range span.Attributes {
		if a.Key == "db.statement" {
			t.Error("db.statement should be omitted when empty")
		}
	}
}

func TestTraceOp_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceOp(context.Background(), "postgresql", "kv.Set", "INSERT INTO kv_entries")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event to be recorded on span")
	}
}

func TestSlowOpLogging_Slow(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	SetSlowOpLogging(time.Nanosecond, logger)
	t.Cleanup(func() { SetSlowOpLogging(0, nil) })

	_, end := TraceOp(context.Background(), "redis", "kv.Get", "")
	end(errors.New("i/o timeout"))

	out := buf.String()
	if !strings.Contains(out, "slow storage operation") {
		t.Errorf("expected slow operation log, got: %s", out)
	}
	if !strings.Contains(out, "kv.Get") {
		t.Errorf("expected operation name in log, got: %s", out)
	}
	if !strings.Contains(out, "i/o timeout") {
		t.Errorf("expected error in log, got: %s", out)
	}
}

func TestSlowOpLogging_Fast_NoLog(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	SetSlowOpLogging(time.Hour, logger)
	t.Cleanup(func() { SetSlowOpLogging(0, nil) })

	_, end := TraceOp(context.Background(), "sqlite", "kv.Get", "SELECT 1")
	end(nil)

	if strings.Contains(buf.String(), "slow storage operation") {
		t.Error("did not expect slow operation log for fast operation")
	}
}

func TestSlowOpLogging_Disabled(t *testing.T) {
	setupTestTracer(t)
	SetSlowOpLogging(0, nil)

	_, end := TraceOp(context.Background(), "sqlite", "kv.Get", "SELECT 1")
	end(nil)
}
