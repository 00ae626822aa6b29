package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dotsetlabs/bellwether/internal/llm"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/retry"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

// Scheduler runs an interview against a set of tools, fanning out across
// personas per §4.10.
type Scheduler struct {
	cfg   Config
	llm   llm.Provider
	retry retry.Policy
	cache *responseCache

	mu                   sync.Mutex
	tools                map[string]*ToolResult
	promptInteractions   []Interaction
	resourceInteractions []Interaction
}

// New constructs a Scheduler. provider may be nil when cfg.StructuralOnly
// is true; Run returns an error otherwise if it is nil.
func New(cfg Config, provider llm.Provider, policy retry.Policy) *Scheduler {
	s := &Scheduler{
		cfg:   cfg,
		llm:   provider,
		retry: policy,
		tools: map[string]*ToolResult{},
	}
	if cfg.CacheEnabled {
		s.cache = newResponseCache()
	}
	for _, tool := range cfg.Tools {
		s.tools[tool.Name] = &ToolResult{Tool: tool.Name}
	}
	return s
}

// Run executes the full interview: discovery-driven persona/tool fanout,
// then declared scenarios and workflows, then synthesis. Cancellation at
// any point drains in-flight tasks cooperatively and returns partial
// results with Cancelled set.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	if !s.cfg.StructuralOnly && s.llm == nil {
		return Result{}, fmt.Errorf("interview: an LLM provider is required outside structural-only mode")
	}
	if s.cfg.Caller == nil {
		return Result{}, fmt.Errorf("interview: a tool caller is required")
	}

	start := time.Now()
	s.progress(PhaseStarting, "", "", "")

	cancelled := s.runFanout(ctx)

	if !cancelled {
		s.progress(PhasePrompts, "", "", "interviewing discovered prompts")
		cancelled = s.runPrompts(ctx)
	}
	if !cancelled {
		s.progress(PhaseResources, "", "", "reading discovered resources")
		cancelled = s.runResources(ctx)
	}
	if !cancelled {
		s.progress(PhaseInterviewing, "", "", "running declared scenarios")
		cancelled = s.runScenarios(ctx)
	}
	if !cancelled {
		s.progress(PhaseWorkflows, "", "", "running declared workflows")
		cancelled = s.runWorkflows(ctx)
	}

	s.progress(PhaseSynthesizing, "", "", "")
	s.synthesizeProfiles(ctx)

	summary := s.buildSummary(ctx)
	s.progress(PhaseComplete, "", "", "")

	return s.buildResult(summary, cancelled, time.Since(start)), nil
}

// runFanout executes the (persona, tool) cross product per §4.10 steps
// 1-2, honoring ParallelPersonas/PersonaConcurrency. Returns true if the
// run was cancelled before completing every persona.
func (s *Scheduler) runFanout(ctx context.Context) bool {
	s.progress(PhaseInterviewing, "", "", "")

	if !s.cfg.ParallelPersonas || len(s.cfg.Personas) <= 1 {
		for _, persona := range s.cfg.Personas {
			if ctx.Err() != nil {
				return true
			}
			s.runPersona(ctx, persona)
		}
		return ctx.Err() != nil
	}

	limit := s.cfg.PersonaConcurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, persona := range s.cfg.Personas {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			s.runPersona(gctx, persona)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err() != nil
}

// runPersona runs one persona's tools serially — §4.10 step 2 requires
// this regardless of ParallelPersonas, since tool calls never exceed one
// outstanding call per (session, tool) pair.
func (s *Scheduler) runPersona(ctx context.Context, persona Persona) {
	for _, tool := range s.cfg.Tools {
		if ctx.Err() != nil {
			return
		}
		s.interviewTool(ctx, persona, tool)
	}
}

func (s *Scheduler) interviewTool(ctx context.Context, persona Persona, tool mcptypes.Tool) {
	maxQ := s.cfg.MaxQuestionsPerTool
	if maxQ < 1 {
		maxQ = 1
	}

	questions, err := s.generateQuestions(ctx, persona, tool, maxQ)
	if err != nil {
		s.recordInteraction(tool.Name, Interaction{
			Persona: persona.ID, Tool: tool.Name, Category: CategoryError,
			Err: fmt.Errorf("question generation failed: %w", err),
		})
		return
	}

	for _, q := range questions {
		if ctx.Err() != nil {
			return
		}
		q.Persona = persona.ID
		s.askQuestion(ctx, persona, tool, q)
	}
}

func (s *Scheduler) generateQuestions(ctx context.Context, persona Persona, tool mcptypes.Tool, maxQ int) ([]Question, error) {
	if s.cfg.StructuralOnly {
		return structuralQuestions(tool, maxQ)
	}
	return llmQuestions(ctx, s.llm, s.retry, persona, tool, maxQ)
}

func (s *Scheduler) askQuestion(ctx context.Context, persona Persona, tool mcptypes.Tool, q Question) {
	key, keyErr := makeCacheKey(persona.ID, tool.Name, q.Args)
	if keyErr == nil && s.cache != nil {
		if entry, ok := s.cache.get(key); ok {
			cached := entry.Interaction
			cached.FromCache = true
			s.recordInteraction(tool.Name, cached)
			if s.cfg.Telemetry != nil {
				s.cfg.Telemetry.RecordCacheHit(ctx, tool.Name)
			}
			return
		}
	}
	if s.cfg.Telemetry != nil {
		s.cfg.Telemetry.RecordCacheMiss(ctx, tool.Name)
	}

	started := time.Now()
	callResult, callErr := s.cfg.Caller.CallTool(ctx, tool.Name, q.Args)
	latency := time.Since(started)
	if s.cfg.Telemetry != nil {
		s.cfg.Telemetry.RecordToolCall(ctx, tool.Name, latency.Seconds(), callErr == nil)
	}

	response := decodeToolResult(callResult)
	if callErr == nil && callResult != nil && callResult.IsError {
		callErr = fmt.Errorf("tool %s returned an error result", tool.Name)
	}

	// Failures on an "error"/"security" question are the expected signal,
	// not a retry candidate (§4.10 step 1d) — there is nothing more to do
	// here than record it; Scheduler never retries a tool call itself.
	outcome := s.assess(ctx, q, response, callErr)

	interaction := Interaction{
		Persona: persona.ID, Tool: tool.Name, Question: q.Text, Category: q.Category,
		Args: q.Args, Response: response, Err: callErr, LatencyMS: latency.Milliseconds(),
		ExpectedOutcome: q.ExpectedOutcome, Outcome: outcome,
	}
	s.recordInteraction(tool.Name, interaction)
	if s.cfg.Telemetry != nil {
		s.cfg.Telemetry.RecordInteraction(ctx, persona.ID, tool.Name, string(q.Category), outcome.Correct)
	}

	if keyErr == nil && s.cache != nil {
		s.cache.put(key, cacheEntry{Interaction: interaction})
	}
}

func (s *Scheduler) assess(ctx context.Context, q Question, response any, callErr error) OutcomeAssessment {
	if s.cfg.StructuralOnly {
		return ruleOutcomeAssessment(q, callErr)
	}
	assessment, err := assessOutcome(ctx, s.llm, s.retry, q, response, callErr)
	if err != nil {
		return OutcomeAssessment{Correct: callErr == nil, Notes: "outcome assessment unavailable: " + err.Error()}
	}
	return assessment
}

func (s *Scheduler) recordInteraction(tool string, i Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.tools[tool]
	if !ok {
		tr = &ToolResult{Tool: tool}
		s.tools[tool] = tr
	}
	tr.Interactions = append(tr.Interactions, i)
}

// runPrompts exercises every discovered prompt via prompts/get, the
// "prompts" phase of §4.10's phase list. A nil PromptCaller skips the
// phase: the prompt list still reaches the baseline (§3's Discovery
// result), it just isn't interviewed.
func (s *Scheduler) runPrompts(ctx context.Context) bool {
	if s.cfg.PromptCaller == nil {
		return ctx.Err() != nil
	}
	for _, p := range s.cfg.Prompts {
		if ctx.Err() != nil {
			return true
		}
		args := defaultPromptArgs(p)
		result, err := s.cfg.PromptCaller.GetPrompt(ctx, p.Name, args)

		var response any
		if result != nil {
			response = result.Messages
		}
		interaction := Interaction{
			Tool: "prompt:" + p.Name, Question: fmt.Sprintf("get prompt %q", p.Name),
			Category: CategoryHappyPath, Args: args, Response: response, Err: err,
			ExpectedOutcome: "either",
			Outcome:         OutcomeAssessment{Correct: err == nil, Notes: "prompt retrieval outcome"},
		}
		s.mu.Lock()
		s.promptInteractions = append(s.promptInteractions, interaction)
		s.mu.Unlock()
	}
	return ctx.Err() != nil
}

// defaultPromptArgs synthesizes one placeholder string per declared
// prompt argument, mirroring structuralQuestions' schema-driven approach
// for tools.
func defaultPromptArgs(p mcptypes.Prompt) map[string]any {
	if len(p.Arguments) == 0 {
		return nil
	}
	args := make(map[string]any, len(p.Arguments))
	for _, a := range p.Arguments {
		args[a.Name] = "example"
	}
	return args
}

// runResources reads every discovered resource via resources/read, the
// "resources" phase of §4.10's phase list. A nil ResourceCaller skips
// the phase for the same reason as runPrompts.
func (s *Scheduler) runResources(ctx context.Context) bool {
	if s.cfg.ResourceCaller == nil {
		return ctx.Err() != nil
	}
	for _, r := range s.cfg.Resources {
		if ctx.Err() != nil {
			return true
		}
		result, err := s.cfg.ResourceCaller.ReadResource(ctx, r.URI)

		var response any
		if result != nil {
			response = result.Contents
		}
		interaction := Interaction{
			Tool: "resource:" + r.URI, Question: fmt.Sprintf("read resource %q", r.URI),
			Category: CategoryHappyPath, Args: map[string]any{"uri": r.URI}, Response: response, Err: err,
			ExpectedOutcome: "either",
			Outcome:         OutcomeAssessment{Correct: err == nil, Notes: "resource read outcome"},
		}
		s.mu.Lock()
		s.resourceInteractions = append(s.resourceInteractions, interaction)
		s.mu.Unlock()
	}
	return ctx.Err() != nil
}

// runScenarios executes user-declared scenarios in order (§4.10 step 4).
func (s *Scheduler) runScenarios(ctx context.Context) bool {
	for _, sc := range s.cfg.Scenarios {
		if ctx.Err() != nil {
			return true
		}
		callResult, callErr := s.cfg.Caller.CallTool(ctx, sc.Tool, argsOf(sc.Args))
		response := decodeToolResult(callResult)

		var checks []scenario.AssertionResult
		if callErr == nil {
			checks = scenario.EvaluateAll(response, sc.Assertions)
		}
		passed := callErr == nil
		for _, c := range checks {
			if !c.Passed {
				passed = false
			}
		}

		category := Category(sc.Category)
		if category == "" {
			category = CategoryHappyPath
		}

		s.recordInteraction(sc.Tool, Interaction{
			Tool: sc.Tool, Question: sc.Name, Category: category,
			Args: argsOf(sc.Args), Response: response, Err: callErr,
			ExpectedOutcome: "either", Outcome: OutcomeAssessment{Correct: passed, Notes: scenarioOutcomeNotes(sc.Name, checks)},
			Assertions: checks,
		})
	}
	return ctx.Err() != nil
}

func scenarioOutcomeNotes(name string, checks []scenario.AssertionResult) string {
	failed := 0
	for _, c := range checks {
		if !c.Passed {
			failed++
		}
	}
	if failed == 0 {
		return fmt.Sprintf("scenario %q: all assertions passed", name)
	}
	return fmt.Sprintf("scenario %q: %d of %d assertions failed", name, failed, len(checks))
}

func argsOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

// runWorkflows executes user-declared and auto-discovered workflows in
// order, recording each step as an interaction against its tool.
func (s *Scheduler) runWorkflows(ctx context.Context) bool {
	executor := workflow.NewExecutor(s.cfg.Caller)
	for _, def := range s.cfg.Workflows {
		if ctx.Err() != nil {
			return true
		}
		result := executor.Execute(ctx, def)
		for _, step := range result.Steps {
			if step.Skipped {
				continue
			}
			s.recordInteraction(step.Tool, Interaction{
				Tool: step.Tool, Question: fmt.Sprintf("workflow %s step %s", def.Name, step.StepID),
				Args: step.ResolvedArgs, Response: step.Result, Err: step.Err,
				ExpectedOutcome: "either",
				Outcome:         OutcomeAssessment{Correct: step.Err == nil, Notes: "workflow step outcome"},
			})
		}
	}
	return ctx.Err() != nil
}

func (s *Scheduler) synthesizeProfiles(ctx context.Context) {
	for name, tr := range s.tools {
		if len(tr.Interactions) == 0 {
			continue
		}
		tr.ResponseFingerprint = responseFingerprint(tr.Interactions)
		tr.ErrorPatterns = errorPatterns(tr.Interactions)
		tr.Confidence = confidenceScore(tr.Interactions)

		var fields toolProfileFields
		if s.cfg.StructuralOnly {
			fields = structuralToolProfile(tr.Interactions)
		} else {
			var err error
			fields, err = synthesizeToolProfile(ctx, s.llm, s.retry, name, tr.Interactions)
			if err != nil {
				fields = structuralToolProfile(tr.Interactions)
				fields.Notes = append(fields.Notes, "LLM synthesis unavailable: "+err.Error())
			}
		}
		tr.Expects, tr.Requires, tr.Warns, tr.Notes = fields.Expects, fields.Requires, fields.Warns, fields.Notes
	}
}

func (s *Scheduler) buildSummary(ctx context.Context) string {
	if s.cfg.StructuralOnly {
		return structuralOverallSummary(s.tools)
	}
	summary, err := synthesizeOverallSummary(ctx, s.llm, s.retry, s.tools)
	if err != nil {
		return structuralOverallSummary(s.tools)
	}
	return summary
}

func (s *Scheduler) buildResult(summary string, cancelled bool, duration time.Duration) Result {
	var all []Interaction
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		all = append(all, s.tools[name].Interactions...)
	}

	return Result{
		Interactions:         all,
		Tools:                s.tools,
		PromptInteractions:   s.promptInteractions,
		ResourceInteractions: s.resourceInteractions,
		Summary:              summary,
		Cancelled:            cancelled,
		Duration:             duration,
	}
}

func (s *Scheduler) progress(phase Phase, persona, tool, detail string) {
	if s.cfg.OnProgress == nil {
		return
	}
	s.cfg.OnProgress(ProgressEvent{Phase: phase, Persona: persona, Tool: tool, Detail: detail})
}

// decodeToolResult extracts a tool's text content and attempts to parse
// it as JSON, falling back to the raw string. Grounded on the identical
// idiom in internal/workflow's executor.
func decodeToolResult(result *mcptypes.CallToolResult) any {
	if result == nil {
		return nil
	}
	text := result.TextOrEmpty()
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded
	}
	return text
}
