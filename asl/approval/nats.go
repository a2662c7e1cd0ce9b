// Package approval provides a NATS-backed asl.ApprovalCollaborator: human
// decisions travel as NATS messages, so the decision for an Approval state
// (§4.8) can be published from whatever process a human's decision-delivery
// tool runs in. The pending-request table and its decision subscriptions
// live in the memory of the NATSCollaborator that emitted the request, so
// only that instance can Await the decision; they do not survive a restart.
//
// There is no teacher analogue for this transport (dshills-langgraph-go has
// no human-in-the-loop state at all); it is grounded on the NATS usage
// pattern in semspec's e2e NATS test client — request/response over
// subjects using the vanilla *nats.Conn, not semspec's own internal
// natsclient wrapper, since that wrapper isn't part of this module's
// dependency surface.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/asl-engine/asl"
)

// NATSCollaborator implements asl.ApprovalCollaborator over a NATS
// connection. Emit publishes the request to "<prefix>.request.<token>" and
// subscribes on "<prefix>.decision.<token>" for the eventual reply; Await
// blocks on that subscription or synthesizes a timed-out decision once
// request.TimeoutSeconds elapses.
type NATSCollaborator struct {
	nc     *nats.Conn
	prefix string
	nextID func() string

	mu      sync.Mutex
	pending map[string]*pendingApproval
}

type pendingApproval struct {
	sub         *nats.Subscription
	decision    chan asl.ApprovalDecision
	timeout     time.Duration
	payload     []byte
	recipients  []string
	repeatsLeft int
}

// NewNATSCollaborator returns a collaborator publishing under subjects
// prefixed with subjectPrefix (e.g. "asl.approvals"). idGen generates
// resume tokens; pass nil to use a process-local counter seeded from the
// current time.
func NewNATSCollaborator(nc *nats.Conn, subjectPrefix string, idGen func() string) *NATSCollaborator {
	if idGen == nil {
		idGen = defaultIDGenerator()
	}
	return &NATSCollaborator{
		nc:      nc,
		prefix:  subjectPrefix,
		nextID:  idGen,
		pending: make(map[string]*pendingApproval),
	}
}

func defaultIDGenerator() func() string {
	var mu sync.Mutex
	n := time.Now().UnixNano()
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("appr-%d", n)
	}
}

func (c *NATSCollaborator) requestSubject(token string) string {
	return fmt.Sprintf("%s.request.%s", c.prefix, token)
}

func (c *NATSCollaborator) decisionSubject(token string) string {
	return fmt.Sprintf("%s.decision.%s", c.prefix, token)
}

func (c *NATSCollaborator) Emit(ctx context.Context, request asl.ApprovalRequest) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	token := c.nextID()

	payload, err := json.Marshal(wireRequest{
		ExecutionID:    request.ExecutionID,
		StateName:      request.StateName,
		Prompt:         request.Prompt.String(),
		Options:        request.Options,
		TimeoutSeconds: request.TimeoutSeconds,
		ResumeToken:    token,
	})
	if err != nil {
		return "", fmt.Errorf("asl/approval: marshal request: %w", err)
	}

	var recipients []string
	var repeatsLeft int
	if request.Escalation != nil {
		recipients = request.Escalation.Recipients
		repeatsLeft = request.Escalation.Repeat
	}

	decisionCh := make(chan asl.ApprovalDecision, 1)
	sub, err := c.nc.Subscribe(c.decisionSubject(token), func(msg *nats.Msg) {
		var wire wireDecision
		if err := json.Unmarshal(msg.Data, &wire); err != nil {
			return
		}
		decisionCh <- wire.toDecision()
	})
	if err != nil {
		return "", fmt.Errorf("asl/approval: subscribe for decision: %w", err)
	}

	c.mu.Lock()
	c.pending[token] = &pendingApproval{
		sub:         sub,
		decision:    decisionCh,
		timeout:     time.Duration(request.TimeoutSeconds * float64(time.Second)),
		payload:     payload,
		recipients:  recipients,
		repeatsLeft: repeatsLeft,
	}
	c.mu.Unlock()

	if err := c.nc.Publish(c.requestSubject(token), payload); err != nil {
		c.Cancel(token)
		return "", fmt.Errorf("asl/approval: publish request: %w", err)
	}

	return token, nil
}

// Await blocks on the decision subscription until a decision arrives, the
// request times out, or ctx is cancelled. OnTimeout=Escalate (§4.8) is
// handled here rather than by the engine: on each timeout with repeats
// remaining, the request is re-published to Escalation.Recipients and the
// timeout window restarts, up to Escalation.Repeat times; once repeats are
// exhausted (or Escalation was unset), the timeout is reported as a
// TimedOut decision for approvalState.handleTimeout to act on.
func (c *NATSCollaborator) Await(ctx context.Context, resumeToken string) (asl.ApprovalDecision, error) {
	c.mu.Lock()
	p, ok := c.pending[resumeToken]
	c.mu.Unlock()
	if !ok {
		return asl.ApprovalDecision{}, fmt.Errorf("asl/approval: unknown resume token %q", resumeToken)
	}

	repeatsLeft := p.repeatsLeft

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if p.timeout > 0 {
		timer = time.NewTimer(p.timeout)
		timeoutCh = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case decision := <-p.decision:
			return decision, nil
		case <-timeoutCh:
			if repeatsLeft > 0 {
				repeatsLeft--
				c.republishEscalation(resumeToken, p)
				timer = time.NewTimer(p.timeout)
				timeoutCh = timer.C
				continue
			}
			return asl.ApprovalDecision{TimedOut: true}, nil
		case <-ctx.Done():
			return asl.ApprovalDecision{}, ctx.Err()
		}
	}
}

// republishEscalation re-emits a pending request's payload to its escalation
// recipients (one subject per recipient), or to the original request subject
// when no recipients were configured.
func (c *NATSCollaborator) republishEscalation(token string, p *pendingApproval) {
	if len(p.recipients) == 0 {
		_ = c.nc.Publish(c.requestSubject(token), p.payload)
		return
	}
	for _, recipient := range p.recipients {
		_ = c.nc.Publish(c.escalationSubject(token, recipient), p.payload)
	}
}

func (c *NATSCollaborator) escalationSubject(token, recipient string) string {
	return fmt.Sprintf("%s.escalation.%s.%s", c.prefix, token, recipient)
}

func (c *NATSCollaborator) Cancel(resumeToken string) error {
	c.mu.Lock()
	p, ok := c.pending[resumeToken]
	delete(c.pending, resumeToken)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return p.sub.Unsubscribe()
}

// wireRequest is the JSON shape published on a "<prefix>.request.<token>"
// subject for a decision-delivery tool to consume.
type wireRequest struct {
	ExecutionID    string   `json:"execution_id"`
	StateName      string   `json:"state_name"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	TimeoutSeconds float64  `json:"timeout_seconds"`
	ResumeToken    string   `json:"resume_token"`
}

// wireDecision is the JSON shape a decision-delivery tool publishes back on
// "<prefix>.decision.<token>".
type wireDecision struct {
	Option       string            `json:"option"`
	Approver     string            `json:"approver"`
	Comment      string            `json:"comment"`
	EditedFields map[string]string `json:"edited_fields,omitempty"`
}

func (w wireDecision) toDecision() asl.ApprovalDecision {
	d := asl.ApprovalDecision{Option: w.Option, Approver: w.Approver, Comment: w.Comment}
	if len(w.EditedFields) > 0 {
		d.EditedFields = make(map[string]asl.Value, len(w.EditedFields))
		for k, v := range w.EditedFields {
			d.EditedFields[k] = asl.String(v)
		}
	}
	return d
}
