package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/llm"
	"github.com/dotsetlabs/bellwether/internal/retry"
)

// toolProfileFields is what a synthesis LLM call is asked to return.
type toolProfileFields struct {
	Expects  []string `json:"expects"`
	Requires []string `json:"requires"`
	Warns    []string `json:"warns"`
	Notes    []string `json:"notes"`
}

// synthesizeToolProfile summarizes a tool's interactions into cloud-
// assertion-form behavioral notes via one LLM call (§4.10 step 6).
func synthesizeToolProfile(ctx context.Context, provider llm.Provider, policy retry.Policy, tool string, interactions []Interaction) (toolProfileFields, error) {
	prompt := toolSynthesisPrompt(tool, interactions)

	var text string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		out, _, callErr := provider.Chat(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		}, llm.Options{ResponseFormat: llm.FormatJSON})
		text = out
		return callErr
	})
	if err != nil {
		return toolProfileFields{}, fmt.Errorf("synthesizing profile for %s: %w", tool, err)
	}

	return llm.ParseJSON[toolProfileFields](text)
}

func toolSynthesisPrompt(tool string, interactions []Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the behavior of MCP tool %q from the interactions below into cloud-assertion form.\n", tool)
	fmt.Fprint(&b, "Respond with JSON only: {\"expects\": [...], \"requires\": [...], \"warns\": [...], \"notes\": [...]}.\n\n")
	for _, i := range interactions {
		status := "succeeded"
		if !i.succeeded() {
			status = "failed: " + i.Err.Error()
		}
		fmt.Fprintf(&b, "- [%s] %q with args %v -> %s (outcome correct: %v)\n", i.Category, i.Question, i.Args, status, i.Outcome.Correct)
	}
	return b.String()
}

// structuralToolProfile replaces the LLM synthesis pass in structural-only
// mode with a deterministic template derived from the same interactions.
func structuralToolProfile(interactions []Interaction) toolProfileFields {
	var fields toolProfileFields
	successes, failures := 0, 0
	for _, i := range interactions {
		if i.succeeded() {
			successes++
		} else {
			failures++
		}
	}
	if successes > 0 {
		fields.Expects = append(fields.Expects, fmt.Sprintf("responds successfully to %d of %d structural test cases", successes, len(interactions)))
	}
	if failures > 0 {
		fields.Warns = append(fields.Warns, fmt.Sprintf("failed %d of %d structural test cases", failures, len(interactions)))
	}
	for _, i := range interactions {
		if i.Category == CategoryError && i.succeeded() {
			fields.Notes = append(fields.Notes, "accepted input expected to be rejected: "+i.Question)
		}
	}
	return fields
}

// overallSummaryPrompt builds the prompt for the overall interview summary
// an LLM call produces once every tool has been interviewed.
func overallSummaryPrompt(tools map[string]*ToolResult) string {
	var b strings.Builder
	fmt.Fprint(&b, "Summarize this MCP server audit in two or three sentences for a human reviewer. ")
	fmt.Fprint(&b, "Mention any tool with notable warnings or failures by name.\n\n")
	for name, tr := range tools {
		fmt.Fprintf(&b, "- %s: %d interactions, %d warnings\n", name, len(tr.Interactions), len(tr.Warns))
	}
	return b.String()
}

func synthesizeOverallSummary(ctx context.Context, provider llm.Provider, policy retry.Policy, tools map[string]*ToolResult) (string, error) {
	var text string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		out, _, callErr := provider.Chat(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: overallSummaryPrompt(tools)},
		}, llm.Options{})
		text = out
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("synthesizing overall summary: %w", err)
	}
	return text, nil
}

// structuralOverallSummary is the template-based replacement for
// synthesizeOverallSummary in structural-only mode.
func structuralOverallSummary(tools map[string]*ToolResult) string {
	total, toolsWithWarnings := 0, 0
	for _, tr := range tools {
		total += len(tr.Interactions)
		if len(tr.Warns) > 0 {
			toolsWithWarnings++
		}
	}
	return fmt.Sprintf("Interviewed %d tool(s) with %d interaction(s); %d tool(s) raised warnings.", len(tools), total, toolsWithWarnings)
}
