package asl

import (
	"fmt"
	"sync"
	"time"
)

// ModelPricing is a model's USD-per-million-token rate, used only as a
// fallback estimate when an agent invocation reports `_tokens` but omits
// `_cost` (§4.1 step 5 leaves cost accounting to the agent; this is a
// convenience for hosts that want an approximate figure regardless).
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultModelPricing mirrors widely published provider rates as of
// 2025-01-01; hosts should call CostEstimator.SetPricing to keep current.
var defaultModelPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":              {InputPer1M: 0.50, OutputPer1M: 1.50},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-sonnet-20240229":   {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// ModelCall records one Task invocation's reported usage for attribution,
// keyed by the AgentName that made it and, when the Task's Model config
// block names one, the underlying model id.
type ModelCall struct {
	AgentName string
	Model     string
	Tokens    int64
	CostUSD   float64
	Estimated bool
	Timestamp time.Time
}

// CostEstimator accumulates per-execution usage for host-side reporting and
// budget dashboards, independent of the engine's own totals bookkeeping
// (ExecutionContext.Usage). It never influences control flow; States.
// BudgetExceeded is raised by the agent/collaborator per §6.1, not by this
// type.
type CostEstimator struct {
	mu      sync.Mutex
	pricing map[string]ModelPricing
	calls   []ModelCall
	total   float64
}

// NewCostEstimator returns an estimator seeded with defaultModelPricing.
func NewCostEstimator() *CostEstimator {
	pricing := make(map[string]ModelPricing, len(defaultModelPricing))
	for k, v := range defaultModelPricing {
		pricing[k] = v
	}
	return &CostEstimator{pricing: pricing}
}

// SetPricing overrides or adds a model's rate.
func (c *CostEstimator) SetPricing(model string, inputPer1M, outputPer1M float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pricing[model] = ModelPricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}

// Record folds one Task invocation's usage in. If costUSD is already known
// (the agent reported `_cost`), pass it through verbatim and estimated is
// false. If costUSD is zero but tokens and a recognized model are present,
// Record estimates a blended cost using the model's average per-token rate
// as a rough order-of-magnitude figure, clearly flagged Estimated.
func (c *CostEstimator) Record(agentName, model string, tokens int64, costUSD float64, now time.Time) ModelCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	estimated := false
	if costUSD == 0 && tokens > 0 {
		if p, ok := c.pricing[model]; ok {
			blended := (p.InputPer1M + p.OutputPer1M) / 2
			costUSD = float64(tokens) / 1_000_000.0 * blended
			estimated = true
		}
	}

	call := ModelCall{AgentName: agentName, Model: model, Tokens: tokens, CostUSD: costUSD, Estimated: estimated, Timestamp: now}
	c.calls = append(c.calls, call)
	c.total += costUSD
	return call
}

// Total returns the running cost across every recorded call.
func (c *CostEstimator) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Calls returns a copy of every recorded call, in recording order.
func (c *CostEstimator) Calls() []ModelCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ModelCall, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *CostEstimator) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("CostEstimator{calls=%d, total=$%.4f}", len(c.calls), c.total)
}
