package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/scenario"
)

// ToolCaller is the subset of mcpclient.Client the executor needs,
// narrowed to an interface so tests can script tool responses without a
// live transport.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)
}

// stepRef matches an argMapping reference of the form
// "$steps[0].result.id" — the first group captures the index, the second
// the dotted path into that step's stored result.
var stepRef = regexp.MustCompile(`^\$steps\[(\d+)\]\.result(?:\.(.+))?$`)

// Executor runs Definitions against a ToolCaller (§4.9).
type Executor struct {
	caller ToolCaller
}

// NewExecutor constructs an Executor calling tools through caller.
func NewExecutor(caller ToolCaller) *Executor {
	return &Executor{caller: caller}
}

// Execute runs def's steps in order. A step's argMapping entries are
// resolved against earlier steps' decoded results before the tool is
// called. A non-optional step's failure halts execution and sets
// FailedStepIndex; an optional step's failure is recorded but execution
// continues to the next step.
func (e *Executor) Execute(ctx context.Context, def Definition) ExecutionResult {
	result := ExecutionResult{Workflow: def.Name, Status: "completed"}
	stepResults := make([]any, len(def.Steps))

	for i, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			result.Status = "failed"
			idx := i
			result.FailedStepIndex = &idx
			result.Steps = append(result.Steps, StepResult{StepID: step.ID, Tool: step.Tool, Skipped: true, Err: bwerrors.New(bwerrors.Cancelled, "workflow", "Execute", err)})
			break
		}

		resolvedArgs, edges, err := resolveArgs(step, i, stepResults)
		if err != nil {
			sr := StepResult{StepID: step.ID, Tool: step.Tool, Err: err}
			if !step.Optional {
				result.Status = "failed"
				idx := i
				result.FailedStepIndex = &idx
				result.Steps = append(result.Steps, sr)
				break
			}
			result.Steps = append(result.Steps, sr)
			continue
		}
		result.DataFlow = append(result.DataFlow, edges...)

		callResult, callErr := e.caller.CallTool(ctx, step.Tool, resolvedArgs)
		sr := StepResult{StepID: step.ID, Tool: step.Tool, ResolvedArgs: resolvedArgs}

		if callErr != nil {
			sr.Err = callErr
			if !step.Optional {
				result.Status = "failed"
				idx := i
				result.FailedStepIndex = &idx
				result.Steps = append(result.Steps, sr)
				break
			}
			result.Steps = append(result.Steps, sr)
			continue
		}

		decoded := decodeResult(callResult)
		sr.Result = decoded
		if callResult != nil && callResult.IsError && !step.Optional {
			sr.Err = fmt.Errorf("tool %s returned an error result", step.Tool)
			result.Status = "failed"
			idx := i
			result.FailedStepIndex = &idx
			result.Steps = append(result.Steps, sr)
			break
		}

		stepResults[i] = decoded
		result.Steps = append(result.Steps, sr)
	}

	return result
}

// resolveArgs merges step.Args with step.ArgMapping entries resolved
// against priorResults, and reports the data-flow edges the resolution
// produced.
func resolveArgs(step Step, stepIndex int, priorResults []any) (map[string]any, []DataFlowEdge, error) {
	resolved := make(map[string]any, len(step.Args)+len(step.ArgMapping))
	for k, v := range step.Args {
		resolved[k] = v
	}

	var edges []DataFlowEdge
	for param, ref := range step.ArgMapping {
		m := stepRef.FindStringSubmatch(ref)
		if m == nil {
			return nil, nil, fmt.Errorf("step %s: argMapping %q is not a recognized $steps[i].result.<path> reference", step.ID, ref)
		}
		fromStep, _ := strconv.Atoi(m[1])
		if fromStep < 0 || fromStep >= stepIndex || fromStep >= len(priorResults) {
			return nil, nil, fmt.Errorf("step %s: argMapping %q references a step that has not yet run", step.ID, ref)
		}
		sourcePath := m[2]
		var value any
		var found bool
		if sourcePath == "" {
			value, found = priorResults[fromStep], priorResults[fromStep] != nil
		} else {
			value, found = scenario.Resolve(priorResults[fromStep], sourcePath)
		}
		if !found {
			return nil, nil, fmt.Errorf("step %s: argMapping %q did not resolve to a value", step.ID, ref)
		}
		resolved[param] = value
		edges = append(edges, DataFlowEdge{FromStep: fromStep, ToStep: stepIndex, Param: param, SourcePath: "result." + sourcePath})
	}
	return resolved, edges, nil
}

// decodeResult extracts the tool's text content and attempts to parse it
// as JSON (the common case for CRUD-style tools), falling back to the
// raw string when it is not JSON.
func decodeResult(result *mcptypes.CallToolResult) any {
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
