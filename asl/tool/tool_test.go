package tool

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryCallDispatchesToRegisteredTool(t *testing.T) {
	r := NewRegistry()
	mock := &MockTool{ToolName: "search_web", Responses: []map[string]any{{"ok": true}}}
	r.Register(mock)

	out, err := r.Call(context.Background(), "search_web", map[string]any{"q": "go"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out["ok"] != true {
		t.Errorf("out = %v", out)
	}
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount())
	}
}

func TestRegistryCallUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(context.Background(), "missing", nil)
	if !errors.Is(err, ErrToolNotRegistered) {
		t.Errorf("err = %v, want ErrToolNotRegistered", err)
	}
}
