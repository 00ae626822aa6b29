package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/scenario"
)

func TestResult_ToolObservationsCarriesConfidenceAndNotes(t *testing.T) {
	result := Result{
		Tools: map[string]*ToolResult{
			"create_widget": {
				Tool:                "create_widget",
				ResponseFingerprint: "fp-1",
				ErrorPatterns:       []string{"boom"},
				Expects:             []string{"a name"},
				Requires:            []string{"auth"},
				Warns:               []string{"rate limited"},
				Notes:               []string{"slow on cold start"},
				Confidence:          0.8,
			},
		},
	}

	obs := result.ToolObservations()
	require.Contains(t, obs, "create_widget")
	got := obs["create_widget"]
	assert.Equal(t, "fp-1", got.ResponseFingerprint)
	assert.Equal(t, []string{"boom"}, got.ErrorPatterns)
	assert.Equal(t, []string{"a name"}, got.Expects)
	assert.Equal(t, []string{"auth"}, got.Requires)
	assert.Equal(t, []string{"rate limited"}, got.Warns)
	assert.Equal(t, []string{"slow on cold start"}, got.Notes)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestResult_AssertionsCollectsOnlyScenarioDrivenInteractions(t *testing.T) {
	result := Result{
		Interactions: []Interaction{
			{Tool: "create_widget", Question: "happy path question", Outcome: OutcomeAssessment{Correct: true}},
			{
				Tool: "get_widget", Question: "fetch returns a name",
				Outcome: OutcomeAssessment{Correct: true},
				Assertions: []scenario.AssertionResult{
					{Assertion: scenario.Assertion{Path: "name"}, Passed: true},
				},
			},
		},
	}

	assertions := result.Assertions()
	require.Len(t, assertions, 1)
	assert.Equal(t, "fetch returns a name", assertions[0].Scenario)
	assert.Equal(t, "get_widget", assertions[0].Tool)
	assert.True(t, assertions[0].Passed)
	assert.Len(t, assertions[0].Checks, 1)
}
