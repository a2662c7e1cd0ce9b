package asl

import (
	"encoding/json"
	"fmt"
)

// StateType discriminates the ten state kinds (§3.1).
type StateType string

const (
	StateTypeTask       StateType = "Task"
	StateTypeChoice     StateType = "Choice"
	StateTypeMap        StateType = "Map"
	StateTypeParallel   StateType = "Parallel"
	StateTypePass       StateType = "Pass"
	StateTypeWait       StateType = "Wait"
	StateTypeSucceed    StateType = "Succeed"
	StateTypeFail       StateType = "Fail"
	StateTypeApproval   StateType = "Approval"
	StateTypeCheckpoint StateType = "Checkpoint"
)

// PathField represents a wire value that distinguishes three states: the key
// absent from the document, the key present with JSON null, and the key
// present with a string path. ResultPath's default-to-"$"-vs-discard-on-null
// behavior (§4.1 step 7) depends on telling these apart, which a plain
// *string or "" sentinel cannot do.
type PathField struct {
	IsNull bool
	Path   string
}

// UnmarshalJSON implements the present/null/string distinction described on
// PathField. It is only invoked when the key is present in the source
// object; an absent key leaves the containing *PathField nil.
func (p *PathField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		p.IsNull = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("asl: path field must be a string or null: %w", err)
	}
	p.Path = s
	return nil
}

// MarshalJSON round-trips a PathField back to null or a string.
func (p PathField) MarshalJSON() ([]byte, error) {
	if p.IsNull {
		return []byte("null"), nil
	}
	return json.Marshal(p.Path)
}

// ChoiceRule is one entry of a Choice state's Choices array (§4.2), or an
// And/Or/Not compound. Comparator fields are pointers so the validator can
// tell "absent" from the comparator's zero value.
type ChoiceRule struct {
	Variable string `json:"Variable,omitempty"`

	And []ChoiceRule `json:"And,omitempty"`
	Or  []ChoiceRule `json:"Or,omitempty"`
	Not *ChoiceRule  `json:"Not,omitempty"`

	StringEquals          *string `json:"StringEquals,omitempty"`
	StringEqualsPath       *string `json:"StringEqualsPath,omitempty"`
	StringLessThan         *string `json:"StringLessThan,omitempty"`
	StringLessThanPath     *string `json:"StringLessThanPath,omitempty"`
	StringLessThanEquals   *string `json:"StringLessThanEquals,omitempty"`
	StringLessThanEqualsPath *string `json:"StringLessThanEqualsPath,omitempty"`
	StringGreaterThan      *string `json:"StringGreaterThan,omitempty"`
	StringGreaterThanPath  *string `json:"StringGreaterThanPath,omitempty"`
	StringGreaterThanEquals *string `json:"StringGreaterThanEquals,omitempty"`
	StringGreaterThanEqualsPath *string `json:"StringGreaterThanEqualsPath,omitempty"`
	StringMatches          *string `json:"StringMatches,omitempty"`

	NumericEquals              *float64 `json:"NumericEquals,omitempty"`
	NumericEqualsPath          *string  `json:"NumericEqualsPath,omitempty"`
	NumericLessThan            *float64 `json:"NumericLessThan,omitempty"`
	NumericLessThanPath        *string  `json:"NumericLessThanPath,omitempty"`
	NumericLessThanEquals      *float64 `json:"NumericLessThanEquals,omitempty"`
	NumericLessThanEqualsPath  *string  `json:"NumericLessThanEqualsPath,omitempty"`
	NumericGreaterThan         *float64 `json:"NumericGreaterThan,omitempty"`
	NumericGreaterThanPath     *string  `json:"NumericGreaterThanPath,omitempty"`
	NumericGreaterThanEquals   *float64 `json:"NumericGreaterThanEquals,omitempty"`
	NumericGreaterThanEqualsPath *string `json:"NumericGreaterThanEqualsPath,omitempty"`

	BooleanEquals     *bool   `json:"BooleanEquals,omitempty"`
	BooleanEqualsPath *string `json:"BooleanEqualsPath,omitempty"`

	IsPresent  *bool `json:"IsPresent,omitempty"`
	IsNull     *bool `json:"IsNull,omitempty"`
	IsString   *bool `json:"IsString,omitempty"`
	IsNumeric  *bool `json:"IsNumeric,omitempty"`
	IsBoolean  *bool `json:"IsBoolean,omitempty"`
	IsTimestamp *bool `json:"IsTimestamp,omitempty"`

	Next string `json:"Next,omitempty"`
}

// StateSpec is the discriminated wire record for one state (§3.1, §6.4).
// Every field not applicable to Type is simply left zero; the validator
// (§4.13) enforces the required subset per type.
type StateSpec struct {
	Type    StateType `json:"Type"`
	Comment string    `json:"Comment,omitempty"`

	Next string `json:"Next,omitempty"`
	End  bool   `json:"End,omitempty"`

	InputPath  *string `json:"InputPath,omitempty"`
	OutputPath *string `json:"OutputPath,omitempty"`
	ResultPath *PathField `json:"ResultPath,omitempty"`

	// Task
	AgentName      string `json:"AgentName,omitempty"`
	Parameters     *Value `json:"Parameters,omitempty"`
	ResultSelector *Value `json:"ResultSelector,omitempty"`
	TimeoutSeconds float64 `json:"TimeoutSeconds,omitempty"`
	HeartbeatSeconds float64 `json:"HeartbeatSeconds,omitempty"`

	// Surfaced pass-through configuration blocks (§4.1 step 3, Non-goals).
	Memory     Value `json:"Memory,omitempty"`
	Context    Value `json:"Context,omitempty"`
	Tools      Value `json:"Tools,omitempty"`
	Guardrails Value `json:"Guardrails,omitempty"`
	Reasoning  Value `json:"Reasoning,omitempty"`
	Generation Value `json:"Generation,omitempty"`
	Model      Value `json:"Model,omitempty"`
	Budget     Value `json:"Budget,omitempty"`
	Streaming  Value `json:"Streaming,omitempty"`
	Idempotent bool  `json:"Idempotent,omitempty"`
	IdempotencyKey string `json:"IdempotencyKey,omitempty"`

	// Choice / Approval routing
	Choices []ChoiceRule `json:"Choices,omitempty"`
	Default string       `json:"Default,omitempty"`

	// Map
	ItemsPath             string  `json:"ItemsPath,omitempty"`
	ItemSelector          *Value  `json:"ItemSelector,omitempty"`
	MaxConcurrency        int     `json:"MaxConcurrency,omitempty"`
	Iterator              *Definition `json:"Iterator,omitempty"`
	ToleratedFailureCount *int    `json:"ToleratedFailureCount,omitempty"`
	ToleratedFailurePercentage *float64 `json:"ToleratedFailurePercentage,omitempty"`

	// Parallel
	Branches []*Definition `json:"Branches,omitempty"`

	// Pass
	Result *Value `json:"Result,omitempty"`

	// Wait
	Seconds       *float64 `json:"Seconds,omitempty"`
	SecondsPath   string   `json:"SecondsPath,omitempty"`
	Timestamp     string   `json:"Timestamp,omitempty"`
	TimestampPath string   `json:"TimestampPath,omitempty"`

	// Fail
	Error     string `json:"Error,omitempty"`
	Cause     string `json:"Cause,omitempty"`
	ErrorPath string `json:"ErrorPath,omitempty"`
	CausePath string `json:"CausePath,omitempty"`

	// Approval
	Prompt         *Value   `json:"Prompt,omitempty"`
	Options        []string `json:"Options,omitempty"`
	Timeout        float64  `json:"Timeout,omitempty"`
	Escalation     *EscalationSpec `json:"Escalation,omitempty"`
	EditableFields []string `json:"EditableFields,omitempty"`
	OnTimeout      string   `json:"OnTimeout,omitempty"`

	// Checkpoint
	Name             string `json:"Name,omitempty"`
	CheckpointIdPath string `json:"CheckpointIdPath,omitempty"`
	DataPath         string `json:"DataPath,omitempty"`
	Compress         bool   `json:"Compress,omitempty"`
	SuspendAfter     bool   `json:"SuspendAfter,omitempty"`
	TTL              string `json:"TTL,omitempty"`

	// Retry / Catch (§4.9), applicable to Task, Map, Parallel.
	Retry []RetrySpec `json:"Retry,omitempty"`
	Catch []CatchSpec `json:"Catch,omitempty"`
}

// EscalationSpec configures Approval's OnTimeout=Escalate behavior (§4.8).
type EscalationSpec struct {
	Recipients []string `json:"Recipients,omitempty"`
	Repeat     int      `json:"Repeat,omitempty"`
}

// RetrySpec is the wire form of one Retry[] entry (§4.9); JitterStrategy is
// a string (NONE/FULL/DECORRELATED) translated to JitterStrategy by the
// factory.
type RetrySpec struct {
	ErrorEquals     []string `json:"ErrorEquals"`
	IntervalSeconds float64  `json:"IntervalSeconds,omitempty"`
	MaxAttempts     *int     `json:"MaxAttempts,omitempty"`
	BackoffRate     float64  `json:"BackoffRate,omitempty"`
	MaxDelaySeconds float64  `json:"MaxDelaySeconds,omitempty"`
	JitterStrategy  string   `json:"JitterStrategy,omitempty"`
}

// CatchSpec is the wire form of one Catch[] entry (§4.9).
type CatchSpec struct {
	ErrorEquals []string   `json:"ErrorEquals"`
	ResultPath  *PathField `json:"ResultPath,omitempty"`
	Next        string     `json:"Next"`
}

// Definition is a loaded, named graph of states (§3.1): the top-level
// document, or a Map's Iterator, or one of Parallel's Branches.
type Definition struct {
	Comment string               `json:"Comment,omitempty"`
	Version string               `json:"Version,omitempty"`
	StartAt string               `json:"StartAt"`
	States  map[string]StateSpec `json:"States"`
}

// ParseDefinition decodes a wire-format definition document (§6.4). Keys
// that exist only for pre-processing (Imports, Module, Exports, top-level
// Parameters, Budget, Memory, DefaultTools, Progress, RealTime) are ignored
// by virtue of not appearing in Definition's field set; callers are expected
// to have already inlined any template composition before reaching here.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("asl: invalid definition document: %w", err)
	}
	return &def, nil
}

// effectiveRetryMaxAttempts applies the default of 3 (§4.9) when unset.
func effectiveRetryMaxAttempts(r RetrySpec) int {
	if r.MaxAttempts != nil {
		return *r.MaxAttempts
	}
	return 3
}

// effectiveRetryInterval applies the default of 1 second (§4.9).
func effectiveRetryInterval(r RetrySpec) float64 {
	if r.IntervalSeconds > 0 {
		return r.IntervalSeconds
	}
	return 1
}

// effectiveRetryBackoffRate applies the default of 2.0 (§4.9).
func effectiveRetryBackoffRate(r RetrySpec) float64 {
	if r.BackoffRate > 0 {
		return r.BackoffRate
	}
	return 2.0
}

func jitterStrategyFromString(s string) JitterStrategy {
	switch s {
	case "FULL":
		return JitterFull
	case "DECORRELATED":
		return JitterDecorrelated
	default:
		return JitterNone
	}
}
