package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

func buildBaseline(t *testing.T, tools []mcptypes.Tool) baseline.Baseline {
	t.Helper()
	b, err := baseline.Build(baseline.BuildInput{
		ServerInfo:      mcptypes.Implementation{Name: "widget-server", Version: "1.0.0"},
		ProtocolVersion: "2025-06-18",
		Capabilities:    []string{"tools"},
		Tools:           tools,
	})
	require.NoError(t, err)
	return b
}

func schemaTool(name string, schema string) mcptypes.Tool {
	return mcptypes.Tool{Name: name, InputSchema: []byte(schema)}
}

// S1: identical baselines produce no deltas and severity "none".
func TestCompare_IdenticalBaselinesYieldNoSeverity(t *testing.T) {
	tools := []mcptypes.Tool{
		schemaTool("get_widget", `{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
	}
	b := buildBaseline(t, tools)

	result, err := Compare(b, b, nil)
	require.NoError(t, err)

	assert.Empty(t, result.ToolsAdded)
	assert.Empty(t, result.ToolsRemoved)
	assert.Empty(t, result.ToolsModified)
	assert.Equal(t, SeverityNone, result.Severity)
	assert.Equal(t, 0, result.RiskScore)
}

// S2: removing a tool is breaking and produces a critical action item.
func TestCompare_RemovedToolIsBreakingAndCritical(t *testing.T) {
	before := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object"}`),
		schemaTool("delete_widget", `{"type":"object"}`),
	})
	after := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object"}`),
	})

	result, err := Compare(before, after, nil)
	require.NoError(t, err)

	require.Len(t, result.ToolsRemoved, 1)
	assert.Equal(t, "delete_widget", result.ToolsRemoved[0])
	assert.Equal(t, SeverityBreaking, result.Severity)
	require.NotEmpty(t, result.ActionItems)
	assert.Equal(t, PriorityCritical, result.ActionItems[0].Priority)
	assert.Equal(t, "delete_widget", result.ActionItems[0].Tool)
}

// S3: adding a required parameter is breaking.
func TestCompare_NewRequiredParameterIsBreaking(t *testing.T) {
	before := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
	})
	after := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object","properties":{"name":{"type":"string"},"owner":{"type":"string"}},"required":["name","owner"]}`),
	})

	result, err := Compare(before, after, nil)
	require.NoError(t, err)

	require.Len(t, result.ToolsModified, 1)
	diff := result.ToolsModified[0]
	assert.Equal(t, "create_widget", diff.Tool)

	var found bool
	for _, c := range diff.Changes {
		if c.Kind == ChangeRequiredAdded && c.Path == "owner" {
			found = true
			assert.True(t, c.Breaking)
		}
	}
	assert.True(t, found, "expected a parameter_required_added change for owner")
	assert.Equal(t, SeverityBreaking, result.Severity)
}

// S4: relaxing a maxLength constraint is non-breaking; severity caps at warning.
func TestCompare_RelaxedMaxLengthIsNonBreaking(t *testing.T) {
	before := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object","properties":{"name":{"type":"string","maxLength":10}}}`),
	})
	after := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object","properties":{"name":{"type":"string","maxLength":20}}}`),
	})

	result, err := Compare(before, after, nil)
	require.NoError(t, err)

	require.Len(t, result.ToolsModified, 1)
	changes := result.ToolsModified[0].Changes
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeConstraintRelaxed, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
	assert.NotEqual(t, SeverityBreaking, result.Severity)
}

func TestCompare_AddedToolIsNonBreaking(t *testing.T) {
	before := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object"}`),
	})
	after := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object"}`),
		schemaTool("archive_widget", `{"type":"object"}`),
	})

	result, err := Compare(before, after, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"archive_widget"}, result.ToolsAdded)
	assert.NotEqual(t, SeverityBreaking, result.Severity)
}

func TestCompare_SchemaHashUnchangedButResponseDriftedProducesReconciliationWarning(t *testing.T) {
	tool := schemaTool("get_widget", `{"type":"object"}`)
	before, err := baseline.Build(baseline.BuildInput{
		ServerInfo: mcptypes.Implementation{Name: "s"}, ProtocolVersion: "v1",
		Tools:        []mcptypes.Tool{tool},
		Observations: map[string]baseline.ToolObservation{"get_widget": {ResponseFingerprint: "fp-a"}},
	})
	require.NoError(t, err)
	after, err := baseline.Build(baseline.BuildInput{
		ServerInfo: mcptypes.Implementation{Name: "s"}, ProtocolVersion: "v1",
		Tools:        []mcptypes.Tool{tool},
		Observations: map[string]baseline.ToolObservation{"get_widget": {ResponseFingerprint: "fp-b"}},
	})
	require.NoError(t, err)

	result, err := Compare(before, after, nil)
	require.NoError(t, err)

	assert.Empty(t, result.ToolsModified)
	require.Len(t, result.Reconciliation, 1)
	assert.Equal(t, "get_widget", result.Reconciliation[0].Tool)
	assert.NotEqual(t, SeverityBreaking, result.Severity)
}

func TestCompare_AffectedWorkflowsCrossReferencesModifiedTools(t *testing.T) {
	before := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
	})
	after := buildBaseline(t, []mcptypes.Tool{
		schemaTool("create_widget", `{"type":"object","properties":{"name":{"type":"string"},"owner":{"type":"string"}},"required":["name","owner"]}`),
	})

	defs := []workflow.Definition{
		{Name: "provision_widget", Steps: []workflow.Step{{ID: "s0", Tool: "create_widget"}}},
		{Name: "unrelated_flow", Steps: []workflow.Step{{ID: "s0", Tool: "list_widgets"}}},
	}

	result, err := Compare(before, after, defs)
	require.NoError(t, err)

	assert.Equal(t, []string{"provision_widget"}, result.AffectedWorkflows)
}
