package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)

	e.Emit(Event{ExecutionID: "exec-1", StateName: "FetchData", Msg: "state_enter", Meta: map[string]any{"attempt": 1}})

	out := buf.String()
	if !strings.Contains(out, "state_enter") {
		t.Fatalf("expected msg in output, got %q", out)
	}
	if !strings.Contains(out, "executionId=exec-1") {
		t.Fatalf("expected executionId in output, got %q", out)
	}
	if !strings.Contains(out, "attempt=1") {
		t.Fatalf("expected meta key in output, got %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)

	e.Emit(Event{ExecutionID: "exec-1", StateName: "FetchData", Msg: "retry", Meta: map[string]any{"error_code": "States.Timeout"}})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v, got %q", err, buf.String())
	}
	if decoded["stateName"] != "FetchData" {
		t.Fatalf("expected stateName FetchData, got %v", decoded["stateName"])
	}
	if decoded["msg"] != "retry" {
		t.Fatalf("expected msg retry, got %v", decoded["msg"])
	}
}

func TestLogEmitterDefaultsToStdout(t *testing.T) {
	e := NewLogEmitter(nil, false)
	if e.writer == nil {
		t.Fatal("expected a non-nil default writer")
	}
}

func TestLogEmitterEmitBatchPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)

	events := []Event{
		{ExecutionID: "exec-1", StateName: "A", Msg: "state_enter"},
		{ExecutionID: "exec-1", StateName: "A", Msg: "state_exit"},
	}
	if err := e.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "state_enter") || !strings.Contains(lines[1], "state_exit") {
		t.Fatalf("expected enter then exit, got %v", lines)
	}
}
