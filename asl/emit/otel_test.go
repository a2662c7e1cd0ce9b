package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (trace string, get func() []tracetest.SpanStub) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return "test", exporter.GetSpans
}

func TestOTelEmitterEmitCreatesSpan(t *testing.T) {
	tracerName, spans := newTestTracer(t)
	emitter := NewOTelEmitter(otel.Tracer(tracerName))

	emitter.Emit(Event{
		ExecutionID: "exec-1",
		StateName:   "FetchData",
		Msg:         "state_enter",
		Meta:        map[string]any{"attempt": 2},
	})

	got := spans()
	if len(got) != 1 {
		t.Fatalf("expected 1 span, got %d", len(got))
	}
	span := got[0]
	if span.Name != "state_enter" {
		t.Errorf("span name = %q, want %q", span.Name, "state_enter")
	}
	attrs := attributeMap(span.Attributes)
	if attrs["asl.execution_id"] != "exec-1" {
		t.Errorf("execution_id = %v, want exec-1", attrs["asl.execution_id"])
	}
	if attrs["asl.state_name"] != "FetchData" {
		t.Errorf("state_name = %v, want FetchData", attrs["asl.state_name"])
	}
	if attrs["asl.attempt"] != int64(2) {
		t.Errorf("attempt = %v, want 2", attrs["asl.attempt"])
	}
	if !span.EndTime.After(span.StartTime) {
		t.Error("span was not ended")
	}
}

func TestOTelEmitterEmitWithErrorSetsStatus(t *testing.T) {
	tracerName, spans := newTestTracer(t)
	emitter := NewOTelEmitter(otel.Tracer(tracerName))

	emitter.Emit(Event{
		ExecutionID: "exec-1",
		StateName:   "FetchData",
		Msg:         "error",
		Meta:        map[string]any{"error": "States.Timeout"},
	})

	got := spans()
	if len(got) != 1 {
		t.Fatalf("expected 1 span, got %d", len(got))
	}
	span := got[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status code = %v, want Error", span.Status.Code)
	}
	if span.Status.Description != "States.Timeout" {
		t.Errorf("status description = %q, want %q", span.Status.Description, "States.Timeout")
	}
	if len(span.Events) == 0 {
		t.Error("expected a recorded error event")
	}
}

func TestOTelEmitterEmitBatch(t *testing.T) {
	tracerName, spans := newTestTracer(t)
	emitter := NewOTelEmitter(otel.Tracer(tracerName))

	events := []Event{
		{ExecutionID: "exec-1", StateName: "A", Msg: "state_enter"},
		{ExecutionID: "exec-1", StateName: "A", Msg: "state_exit"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}

	got := spans()
	if len(got) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(got))
	}
}

func TestOTelEmitterFlushForwardsToSDKProvider(t *testing.T) {
	tracerName, _ := newTestTracer(t)
	emitter := NewOTelEmitter(otel.Tracer(tracerName))

	if err := emitter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
}

func attributeMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}
