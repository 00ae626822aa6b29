// Package interview implements Bellwether's concurrent interview
// scheduler (§4.10): for every (persona, tool) pair it generates test
// arguments — either via an LLM constrained to the tool's own schema, or
// deterministically from the schema alone in structural-only mode —
// invokes the tool, assesses whether the response matched the question's
// intent, and folds the results into per-tool behavioral notes that feed
// baseline.Build.
//
// Example configuration:
//
//	cfg := interview.Config{
//	    Tools:               tools,
//	    Prompts:             prompts,
//	    Resources:           resources,
//	    Personas:            []interview.Persona{{ID: "security-reviewer", Prompt: "..."}},
//	    MaxQuestionsPerTool: 5,
//	    ParallelPersonas:    true,
//	    PersonaConcurrency:  4,
//	    Caller:              mcpClient,
//	    PromptCaller:        mcpClient,
//	    ResourceCaller:      mcpClient,
//	}
//	scheduler := interview.New(cfg, provider, retry.DefaultPolicy)
//	result, err := scheduler.Run(ctx)
//
// Prompts/Resources are themselves discovered once via mcpClient.ListPrompts/
// ListResources before Config is built; PromptCaller/ResourceCaller are
// optional — nil skips interviewing them, leaving only the list in the
// eventual Baseline.
//
// Personas run in parallel only across each other; a single persona's
// tool calls stay strictly serial, since §4.10 requires at most one
// outstanding call per (session, tool) pair for deterministic baselines.
// Cancellation drains cooperatively: no new tasks start, and Result.Cancelled
// is set so a caller can tell a partial run from a complete one.
package interview
