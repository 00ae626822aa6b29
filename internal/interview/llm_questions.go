package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/llm"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/retry"
)

// generatedQuestion is the shape the question-generation prompt is asked
// to return, one per element of a JSON array.
type generatedQuestion struct {
	Text     string         `json:"text"`
	Args     map[string]any `json:"args"`
	Category string         `json:"category"`
}

// llmQuestions asks provider to generate up to maxQuestions test cases
// for tool, guided by persona and constrained to the tool's own schema
// (§4.10 step 1a).
func llmQuestions(ctx context.Context, provider llm.Provider, policy retry.Policy, persona Persona, tool mcptypes.Tool, maxQuestions int) ([]Question, error) {
	prompt := questionPrompt(persona, tool, maxQuestions)

	var text string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		out, _, callErr := provider.Chat(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: persona.Prompt},
			{Role: llm.RoleUser, Content: prompt},
		}, llm.Options{ResponseFormat: llm.FormatJSON})
		text = out
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("generating questions for %s/%s: %w", persona.ID, tool.Name, err)
	}

	parsed, err := llm.ParseJSON[[]generatedQuestion](text)
	if err != nil {
		return nil, fmt.Errorf("parsing generated questions for %s/%s: %w", persona.ID, tool.Name, err)
	}

	questions := make([]Question, 0, len(parsed))
	for _, g := range parsed {
		if len(questions) >= maxQuestions {
			break
		}
		category := Category(g.Category)
		questions = append(questions, Question{
			Persona:         persona.ID,
			Tool:            tool.Name,
			Text:            g.Text,
			Args:            g.Args,
			Category:        category,
			ExpectedOutcome: expectedOutcomeFor(category),
		})
	}
	return questions, nil
}

func expectedOutcomeFor(c Category) string {
	switch c {
	case CategoryError, CategorySecurity:
		return "error"
	case CategoryHappyPath:
		return "success"
	default:
		return "either"
	}
}

func questionPrompt(persona Persona, tool mcptypes.Tool, maxQuestions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are interviewing the MCP tool %q as part of a %s testing persona.\n", tool.Name, persona.ID)
	if persona.Guidance != "" {
		fmt.Fprintf(&b, "Guidance: %s\n", persona.Guidance)
	}
	fmt.Fprintf(&b, "Tool description: %s\n", tool.Description)
	fmt.Fprintf(&b, "Input schema:\n%s\n", string(tool.InputSchema))
	fmt.Fprintf(&b, "Generate up to %d test questions as a JSON array of objects with keys "+
		"\"text\" (a short description of the test's intent), \"args\" (a JSON object of arguments "+
		"that conform to the schema's required/optional properties), and \"category\" (one of "+
		"\"happy_path\", \"edge_case\", \"error\", \"security\"). Respond with JSON only.\n", maxQuestions)
	return b.String()
}

// assessOutcome asks the LLM whether the tool's response matched the
// question's intent (§4.10 step 1c). Structural mode never calls this;
// ruleOutcomeAssessment substitutes a deterministic judgment there.
func assessOutcome(ctx context.Context, provider llm.Provider, policy retry.Policy, q Question, response any, callErr error) (OutcomeAssessment, error) {
	respJSON, _ := json.Marshal(response)
	var errText string
	if callErr != nil {
		errText = callErr.Error()
	}

	prompt := fmt.Sprintf(
		"Question intent: %s\nExpected outcome: %s\nActual error (empty if none): %s\nActual response: %s\n"+
			"Did the tool's behavior correctly match the question's intent? Respond with JSON only: "+
			"{\"correct\": true|false, \"notes\": \"...\"}.",
		q.Text, q.ExpectedOutcome, errText, string(respJSON))

	var text string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		out, _, callErr := provider.Chat(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		}, llm.Options{ResponseFormat: llm.FormatJSON})
		text = out
		return callErr
	})
	if err != nil {
		return OutcomeAssessment{}, fmt.Errorf("assessing outcome for %s: %w", q.Tool, err)
	}

	assessment, err := llm.ParseJSON[OutcomeAssessment](text)
	if err != nil {
		return OutcomeAssessment{}, fmt.Errorf("parsing outcome assessment for %s: %w", q.Tool, err)
	}
	return assessment, nil
}

// ruleOutcomeAssessment substitutes for assessOutcome in structural-only
// mode: a question's outcome is correct when the call's success/failure
// matches its declared expectation. "either" always passes.
func ruleOutcomeAssessment(q Question, callErr error) OutcomeAssessment {
	switch q.ExpectedOutcome {
	case "success":
		if callErr == nil {
			return OutcomeAssessment{Correct: true, Notes: "call succeeded as expected"}
		}
		return OutcomeAssessment{Correct: false, Notes: "expected success but the call failed: " + callErr.Error()}
	case "error":
		if callErr != nil {
			return OutcomeAssessment{Correct: true, Notes: "call failed as expected"}
		}
		return OutcomeAssessment{Correct: false, Notes: "expected an error but the call succeeded"}
	default:
		return OutcomeAssessment{Correct: true, Notes: "no expectation declared"}
	}
}
