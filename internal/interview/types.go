// Package interview implements the concurrent interview scheduler of
// §4.10: it fans requests out across personas and tools, generates
// test arguments either via an LLM or a deterministic structural
// synthesizer, invokes each tool, assesses the outcome, and folds the
// results into tool-level behavioral notes ready for baseline.Build.
package interview

import (
	"context"
	"time"

	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/telemetry"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

// Persona is a named question-generation strategy with a guiding prompt
// (§4.2's Persona entity). Immutable once constructed.
type Persona struct {
	ID       string
	Prompt   string
	Guidance string
}

// Category tags the intent behind one generated question.
type Category string

const (
	CategoryHappyPath Category = "happy_path"
	CategoryEdgeCase  Category = "edge_case"
	CategoryError     Category = "error"
	CategorySecurity  Category = "security"
)

// Phase is a stage of interview progress, surfaced via Config.OnProgress.
type Phase string

const (
	PhaseStarting     Phase = "starting"
	PhaseInterviewing Phase = "interviewing"
	PhasePrompts      Phase = "prompts"
	PhaseResources    Phase = "resources"
	PhaseWorkflows    Phase = "workflows"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseComplete     Phase = "complete"
)

// ProgressEvent is one update delivered to Config.OnProgress.
type ProgressEvent struct {
	Phase   Phase
	Persona string
	Tool    string
	Detail  string
}

// Question is one generated (or synthesized) test case for a tool.
type Question struct {
	Persona  string
	Tool     string
	Text     string
	Args     map[string]any
	Category Category
	// ExpectedOutcome mirrors the category's implied expectation: "error"
	// and "security" questions expect a failure, "happy_path" questions
	// expect success, and edge cases plus prompt, resource, scenario and
	// workflow interactions use "either".
	ExpectedOutcome string
}

// OutcomeAssessment is the LLM's (or, in structural mode, a rule-based)
// judgment of whether a tool's response matched the question's intent.
type OutcomeAssessment struct {
	Correct bool
	Notes   string
}

// Interaction is one complete persona/tool/question round trip (§4.2).
type Interaction struct {
	Persona         string
	Tool            string
	Question        string
	Category        Category
	Args            map[string]any
	Response        any
	Err             error
	LatencyMS       int64
	ExpectedOutcome string
	Outcome         OutcomeAssessment
	FromCache       bool
	// Assertions carries the per-assertion detail for scenario-driven
	// interactions (§4.9); nil for generated question/answer interactions,
	// which have no declared assertions to check.
	Assertions []scenario.AssertionResult
}

// succeeded reports whether the tool call itself returned without error.
func (i Interaction) succeeded() bool { return i.Err == nil }

// ToolResult aggregates every interaction for one tool plus the derived
// behavioral notes that feed baseline.ToolObservation.
type ToolResult struct {
	Tool                string
	Interactions        []Interaction
	ResponseFingerprint string
	ErrorPatterns       []string
	Expects             []string
	Requires            []string
	Warns               []string
	Notes               []string
	// Confidence is the either-weighted score over Interactions: success-
	// expected interactions count full weight, either-expected interactions
	// count half weight, error-expected interactions are excluded.
	Confidence float64
}

// Config bundles every input §4.10 lists for Run.
type Config struct {
	Tools               []mcptypes.Tool
	Prompts             []mcptypes.Prompt
	Resources           []mcptypes.Resource
	Personas            []Persona
	MaxQuestionsPerTool int
	Scenarios           []scenario.Scenario
	Workflows           []workflow.Definition
	StructuralOnly      bool
	ParallelPersonas    bool
	PersonaConcurrency  int
	CacheEnabled        bool

	Caller QuestionCaller
	// PromptCaller drives the "prompts" phase (§4.10). Nil skips it
	// entirely, leaving Prompts listed in the discovery result but never
	// exercised — a server with no PromptCaller wired still gets a
	// Baseline with Prompts populated via the at-minimum listing path.
	PromptCaller PromptCaller
	// ResourceCaller drives the "resources" phase (§4.10). Nil skips it,
	// for the same reason as PromptCaller.
	ResourceCaller ResourceCaller

	// Telemetry records interaction outcomes, cache hits, and tool-call
	// latency. Nil disables recording entirely.
	Telemetry *telemetry.Recorder

	OnProgress func(ProgressEvent)
}

// QuestionCaller is the subset of mcpclient.Client an interview needs:
// calling a tool by name and arguments. Matches mcpclient.Client.CallTool
// and workflow.ToolCaller's signature exactly, so the same *mcpclient.Client
// satisfies both without an adapter.
type QuestionCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)
}

// PromptCaller is the subset of mcpclient.Client needed to exercise a
// discovered prompt during the "prompts" phase.
type PromptCaller interface {
	GetPrompt(ctx context.Context, name string, args map[string]any) (*mcptypes.GetPromptResult, error)
}

// ResourceCaller is the subset of mcpclient.Client needed to read a
// discovered resource during the "resources" phase.
type ResourceCaller interface {
	ReadResource(ctx context.Context, uri string) (*mcptypes.ReadResourceResult, error)
}

// Result is the full output of Run.
type Result struct {
	Interactions []Interaction
	Tools        map[string]*ToolResult
	// PromptInteractions and ResourceInteractions hold the "prompts" and
	// "resources" phases' results (§4.10). Kept separate from Tools since
	// prompts/resources are not tools and have no schema-derived profile.
	PromptInteractions   []Interaction
	ResourceInteractions []Interaction
	Summary              string
	Cancelled            bool
	Duration             time.Duration
}
