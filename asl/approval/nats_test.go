package approval

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/asl-engine/asl"
)

// TestNATSCollaboratorEmitAndAwait runs against a real NATS server. Set
// TEST_NATS_URL (e.g. "nats://localhost:4222") to run it; otherwise it's
// skipped, following the store package's TEST_MYSQL_DSN/TEST_REDIS_ADDR
// convention.
func TestNATSCollaboratorEmitAndAwait(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("skipping NATS approval test: TEST_NATS_URL not set")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	defer nc.Close()

	collab := NewNATSCollaborator(nc, "asl_test.approvals", nil)

	token, err := collab.Emit(context.Background(), asl.ApprovalRequest{
		ExecutionID:    "exec-1",
		StateName:      "AwaitApproval",
		Prompt:         asl.String("approve deploy?"),
		Options:        []string{"approve", "reject"},
		TimeoutSeconds: 5,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	decision := wireDecision{Option: "approve", Approver: "alice"}
	payload, _ := json.Marshal(decision)
	if err := nc.Publish("asl_test.approvals.decision."+token, payload); err != nil {
		t.Fatalf("Publish decision: %v", err)
	}

	got, err := collab.Await(context.Background(), token)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got.Option != "approve" || got.Approver != "alice" {
		t.Errorf("decision = %+v", got)
	}
}

func TestNATSCollaboratorAwaitTimesOut(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("skipping NATS approval test: TEST_NATS_URL not set")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	defer nc.Close()

	collab := NewNATSCollaborator(nc, "asl_test.approvals", nil)
	token, err := collab.Emit(context.Background(), asl.ApprovalRequest{
		ExecutionID:    "exec-2",
		StateName:      "AwaitApproval",
		TimeoutSeconds: 0.1,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	got, err := collab.Await(context.Background(), token)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !got.TimedOut {
		t.Error("expected TimedOut decision")
	}
}

func TestNATSCollaboratorEscalatesBeforeTimingOut(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("skipping NATS approval test: TEST_NATS_URL not set")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	defer nc.Close()

	var escalations int
	sub, err := nc.Subscribe("asl_test.approvals.escalation.*.oncall", func(msg *nats.Msg) {
		escalations++
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	collab := NewNATSCollaborator(nc, "asl_test.approvals", nil)
	token, err := collab.Emit(context.Background(), asl.ApprovalRequest{
		ExecutionID:    "exec-4",
		StateName:      "AwaitApproval",
		TimeoutSeconds: 0.1,
		Escalation:     &asl.EscalationSpec{Recipients: []string{"oncall"}, Repeat: 2},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	got, err := collab.Await(context.Background(), token)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !got.TimedOut {
		t.Error("expected TimedOut decision once repeats are exhausted")
	}
	nc.FlushTimeout(time.Second)
	if escalations != 2 {
		t.Errorf("expected 2 escalation re-emits, got %d", escalations)
	}
}

func TestNATSCollaboratorCancelUnsubscribes(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("skipping NATS approval test: TEST_NATS_URL not set")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats.Connect: %v", err)
	}
	defer nc.Close()

	collab := NewNATSCollaborator(nc, "asl_test.approvals", nil)
	token, err := collab.Emit(context.Background(), asl.ApprovalRequest{ExecutionID: "exec-3"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := collab.Cancel(token); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := collab.Await(ctx, token); err == nil {
		t.Error("expected error awaiting a cancelled token")
	}
}

func TestDefaultIDGeneratorProducesUniqueIDs(t *testing.T) {
	gen := defaultIDGenerator()
	a := gen()
	b := gen()
	if a == b {
		t.Errorf("expected unique IDs, got %q twice", a)
	}
}
